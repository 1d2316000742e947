package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aelexs/fuzzyclock/internal/display"
	"github.com/aelexs/fuzzyclock/internal/domain"
	"github.com/aelexs/fuzzyclock/internal/fuzzy"
	"github.com/aelexs/fuzzyclock/internal/text"
	"github.com/aelexs/fuzzyclock/pkg/protocol"
)

var nowOpts struct {
	clockOptions
	at   string
	next bool
}

var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Print the fuzzy phrase for the current time",
	Long: `Print the fuzzy phrase for the current time, or for --at.

Examples:
  fuzzyclock now
  fuzzyclock now --policy precise --format 24
  fuzzyclock now --at 16:37 --next
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runNow(cmd.OutOrStdout(), domain.RealClock{}, os.Getenv)
	},
}

func init() {
	nowOpts.bind(nowCmd.Flags())
	nowCmd.Flags().StringVar(&nowOpts.at, "at", "", "Render HH:MM[:SS] instead of the current time")
	nowCmd.Flags().BoolVar(&nowOpts.next, "next", false, "Also print when the phrase next changes")
	rootCmd.AddCommand(nowCmd)
}

func runNow(w io.Writer, clock domain.Clock, getenv func(string) string) error {
	setup, err := nowOpts.resolve(getenv)
	if err != nil {
		return err
	}
	now := clock.Now().In(setup.loc)
	if nowOpts.at != "" {
		if now, err = parseAt(nowOpts.at, now); err != nil {
			return err
		}
	}

	policy := fuzzy.MustPolicy(setup.kind)
	sample := fuzzy.SampleAt(now, setup.format.Resolve(setup.formats))
	phrase := policy.Phrase(sample)
	offset := policy.WakeOffset(sample)

	if nowOpts.json {
		f, err := protocol.NewFrame(protocol.FrameTypeSnapshot, protocol.Snapshot{
			InstanceID: domain.DefaultInstanceID,
			Policy:     setup.kind.String(),
			HourFormat: sample.Format().String(),
			Sample:     now.Format("15:04:05"),
			Phrase:     display.WirePhrase(phrase),
			Text:       text.Sentence(setup.resolver, phrase),
			Changed:    true,
			WakeAt:     now.Truncate(time.Second).Add(offset).UnixMilli(),
		})
		if err != nil {
			return err
		}
		return json.NewEncoder(w).Encode(f)
	}

	if _, err := fmt.Fprintln(w, text.Caption(setup.tag, setup.resolver, phrase)); err != nil {
		return err
	}
	if nowOpts.next {
		next := now.Truncate(time.Second).Add(offset)
		_, err = fmt.Fprintf(w, "next change at %s (in %s)\n", next.Format("15:04:05"), offset)
	}
	return err
}

// parseAt replaces the time of day of ref with HH:MM or HH:MM:SS.
func parseAt(raw string, ref time.Time) (time.Time, error) {
	var t time.Time
	var err error
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err = time.Parse(layout, raw); err == nil {
			y, m, d := ref.Date()
			return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, ref.Location()), nil
		}
	}
	return time.Time{}, fmt.Errorf("--at %q: want HH:MM or HH:MM:SS: %w", raw, domain.ErrInvalidSample)
}

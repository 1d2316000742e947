package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aelexs/fuzzyclock/internal/alarm"
	"github.com/aelexs/fuzzyclock/internal/display"
	"github.com/aelexs/fuzzyclock/internal/domain"
	"github.com/aelexs/fuzzyclock/internal/observability"
	"github.com/aelexs/fuzzyclock/internal/prefs"
	"github.com/aelexs/fuzzyclock/internal/scheduler"
)

var liveOpts struct {
	clockOptions
	logLevel string
}

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Show a live fuzzy clock in the terminal",
	Long: `Print the fuzzy phrase now and again each time it changes, until
interrupted. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()
		return runLive(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), domain.RealClock{}, nil, os.Getenv)
	},
}

func init() {
	liveOpts.bind(liveCmd.Flags())
	liveCmd.Flags().StringVar(&liveOpts.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	rootCmd.AddCommand(liveCmd)
}

// runLive drives a single display until ctx is cancelled. A nil timers uses
// real timers.
func runLive(ctx context.Context, out, errOut io.Writer, clock domain.Clock, timers alarm.Timers, getenv func(string) string) error {
	setup, err := liveOpts.resolve(getenv)
	if err != nil {
		return err
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:       liveOpts.logLevel,
		Format:      "text",
		ServiceName: "fuzzyclock",
		Environment: "local",
		Output:      errOut,
	})

	var sink scheduler.DisplaySink = display.NewWriterSink(out, setup.tag, setup.resolver, false)
	if liveOpts.json {
		sink = display.NewFrameSink(out, setup.resolver)
	}

	id := domain.MustInstanceID(domain.DefaultInstanceID)
	store := prefs.NewMemoryStore()
	if err := store.Put(ctx, id, scheduler.Preferences{
		Portrait:   setup.kind,
		Landscape:  setup.kind,
		HourFormat: setup.format,
	}); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	events := make(chan scheduler.Event, domain.EventQueueSize)
	alarms := alarm.NewService(alarm.Config{
		Clock:  clock,
		Timers: timers,
		Fire: func(id domain.InstanceID) {
			select {
			case events <- scheduler.TickFor(id):
			case <-ctx.Done():
			}
		},
		Logger: logger,
	})
	defer alarms.Stop()

	reg := scheduler.NewRegistry(scheduler.RegistryConfig{
		Clock:    clock,
		Location: setup.loc,
		Formats:  setup.formats,
		Alarms:   alarms,
		Sink:     sink,
		Prefs:    store,
		Logger:   logger,
	})
	if err := reg.Handle(ctx, scheduler.Added(id)); err != nil {
		return fmt.Errorf("start live clock: %w", err)
	}
	logger.Info("live clock started",
		slog.String("policy", setup.kind.String()),
		slog.String("timezone", setup.loc.String()),
	)

	g.Go(func() error {
		return reg.Run(ctx, events)
	})
	return g.Wait()
}

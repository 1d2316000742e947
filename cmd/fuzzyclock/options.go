package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/text/language"

	"github.com/aelexs/fuzzyclock/internal/domain"
	"github.com/aelexs/fuzzyclock/internal/fuzzy"
	"github.com/aelexs/fuzzyclock/internal/scheduler"
	"github.com/aelexs/fuzzyclock/internal/text"
)

// clockOptions are the flags shared by now and live.
type clockOptions struct {
	policy string
	format string
	tz     string
	lang   string
	json   bool
}

func (o *clockOptions) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.policy, "policy", "p", fuzzy.DefaultKind.String(), "Fuzzy policy: fast, precise, slow or warped")
	fs.StringVarP(&o.format, "format", "f", scheduler.FormatAuto.String(), "Hour format: auto, 12 or 24")
	fs.StringVar(&o.tz, "tz", "", "IANA timezone (default: system zone)")
	fs.StringVar(&o.lang, "lang", "", "Language tag for captions (default: from LC_ALL, LC_TIME or LANG)")
	fs.BoolVar(&o.json, "json", false, "Write JSON snapshot frames instead of captions")
}

// clockSetup is clockOptions after validation.
type clockSetup struct {
	kind     fuzzy.Kind
	format   scheduler.FormatPreference
	formats  scheduler.FormatProvider
	loc      *time.Location
	tag      language.Tag
	resolver *text.Table
}

func (o *clockOptions) resolve(getenv func(string) string) (clockSetup, error) {
	kind, err := fuzzy.ParseKind(o.policy)
	if err != nil {
		return clockSetup{}, err
	}
	format, err := scheduler.ParseFormatPreference(o.format)
	if err != nil {
		return clockSetup{}, err
	}
	loc, err := domain.LoadLocation(strings.TrimSpace(o.tz))
	if err != nil {
		return clockSetup{}, err
	}

	tag := text.LocaleFromEnv(getenv)
	var formats scheduler.FormatProvider = text.LocaleFormat{Getenv: getenv}
	if o.lang != "" {
		if tag, err = language.Parse(o.lang); err != nil {
			return clockSetup{}, fmt.Errorf("lang %q: %w: %w", o.lang, domain.ErrInvalidInput, err)
		}
		formats = scheduler.StaticFormat(text.HourFormatFor(tag))
	}
	return clockSetup{
		kind:     kind,
		format:   format,
		formats:  formats,
		loc:      loc,
		tag:      tag,
		resolver: text.Lookup(tag.String()),
	}, nil
}

package text

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/aelexs/fuzzyclock/internal/fuzzy"
)

// twelveHourRegions default to a 12-hour clock. Everywhere else uses 24.
var twelveHourRegions = map[string]bool{
	"US": true,
	"CA": true,
	"AU": true,
	"NZ": true,
	"PH": true,
	"IN": true,
	"PK": true,
	"EG": true,
	"SA": true,
	"BD": true,
}

// HourFormatFor is the customary clock for tag's region.
func HourFormatFor(tag language.Tag) fuzzy.HourFormat {
	region, _ := tag.Region()
	if twelveHourRegions[region.String()] {
		return fuzzy.Format12
	}
	return fuzzy.Format24
}

// LocaleFromEnv reads the POSIX locale variables in precedence order
// (LC_ALL, LC_TIME, LANG). "C", "POSIX" and unset fall back to American
// English.
func LocaleFromEnv(getenv func(string) string) language.Tag {
	for _, key := range []string{"LC_ALL", "LC_TIME", "LANG"} {
		raw := getenv(key)
		if raw == "" {
			continue
		}
		if tag, ok := parsePOSIXLocale(raw); ok {
			return tag
		}
		break
	}
	return language.AmericanEnglish
}

// parsePOSIXLocale turns "de_DE.UTF-8@euro" into de-DE.
func parsePOSIXLocale(raw string) (language.Tag, bool) {
	name, _, _ := strings.Cut(raw, ".")
	name, _, _ = strings.Cut(name, "@")
	if name == "C" || name == "POSIX" {
		return language.Und, false
	}
	tag, err := language.Parse(strings.ReplaceAll(name, "_", "-"))
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

// LocaleFormat is a format provider that follows the process locale. It
// re-reads the environment on every call so a changed locale is picked up
// on the next trigger.
type LocaleFormat struct {
	Getenv func(string) string
}

func (f LocaleFormat) HourFormat() fuzzy.HourFormat {
	return HourFormatFor(LocaleFromEnv(f.Getenv))
}

// Package datefmt formats publication dates as "dd MMM yyyy" for a locale.
package datefmt

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

var supported = []language.Tag{
	language.BrazilianPortuguese,
	language.English,
	language.Spanish,
}

var matcher = language.NewMatcher(supported)

var shortMonths = map[language.Tag][12]string{
	language.BrazilianPortuguese: {"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"},
	language.English:             {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	language.Spanish:             {"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"},
}

// Formatter formats dates for one resolved locale.
type Formatter struct {
	tag    language.Tag
	months [12]string
}

// New resolves locale (a BCP 47 tag such as "pt-BR") against the supported
// locales. Unknown or unparsable locales fall back to Brazilian Portuguese.
func New(locale string) Formatter {
	tag := language.BrazilianPortuguese
	if parsed, err := language.Parse(locale); err == nil {
		_, idx, conf := matcher.Match(parsed)
		if conf != language.No {
			tag = supported[idx]
		}
	}
	return Formatter{tag: tag, months: shortMonths[tag]}
}

// Locale returns the resolved locale.
func (f Formatter) Locale() language.Tag { return f.tag }

// Format renders t in UTC, e.g. "15 mar 2021". A nil time yields "".
func (f Formatter) Format(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	u := t.UTC()
	return fmt.Sprintf("%02d %s %04d", u.Day(), f.months[u.Month()-1], u.Year())
}

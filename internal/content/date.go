package content

import (
	"time"

	"github.com/goodsign/monday"
)

type dateFormat struct {
	layout string
	locale monday.Locale
}

var dateFormats = map[string]dateFormat{
	"en": {"January 2, 2006", monday.LocaleEnUS},
	"de": {"2. January 2006", monday.LocaleDeDE},
	"es": {"2 de January de 2006", monday.LocaleEsES},
}

// FormatDate renders a date the way it reads inside a sentence in lang.
// Unknown languages get ISO dates.
func FormatDate(t time.Time, lang string) string {
	f, ok := dateFormats[lang]
	if !ok {
		return t.Format("2006-01-02")
	}
	return monday.Format(t, f.layout, f.locale)
}

package converter

import "time"

// DateFormat is the canonical layout dates are written in.
const DateFormat = "2006-01-02"

// dateLayouts are tried in order; the first successful parse wins.
// Layouts without a day resolve to the first of the month.
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"06-1-2",
	"06/1/2",
	"06.1.2",
	"2006年1月2日",
	"2006年1月",
	"1/2/2006",
	"1/2/06",
}

// ParseDate parses s against the known handover date layouts. The boolean is
// false when s is empty or matches none of them.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

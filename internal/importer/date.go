package importer

import (
	"strings"
	"time"
	"unicode"
)

// Layouts tried in order for a header date. Layouts without a year take the
// year closest to the reference time.
var (
	datedLayouts = []string{
		"2006-01-02",
		"02-Jan-06",
		"02-Jan-2006",
		"02Jan06",
		"02Jan2006",
		"02/01/2006",
	}
	yearlessLayouts = []string{
		"02Jan",
		"2Jan",
		"02-Jan",
		"02 Jan",
	}
)

// ParseFlightDate resolves a load plan header date such as "12Oct". When the
// text cannot be parsed it returns the calendar date of now and false; the
// record is still stored under that date.
func ParseFlightDate(raw string, now time.Time) (time.Time, bool) {
	s := normaliseMonth(strings.TrimSpace(raw))

	for _, layout := range datedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range yearlessLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return nearestYear(t, now), true
		}
	}

	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), false
}

// nearestYear places a yearless date in the year that puts it within six
// months of now.
func nearestYear(t, now time.Time) time.Time {
	ref := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	switch {
	case d.Sub(ref) > 183*24*time.Hour:
		d = d.AddDate(-1, 0, 0)
	case ref.Sub(d) > 183*24*time.Hour:
		d = d.AddDate(1, 0, 0)
	}
	return d
}

// normaliseMonth title-cases a month abbreviation so "12OCT" parses as "12Oct".
func normaliseMonth(s string) string {
	r := []rune(s)
	for i, c := range r {
		if !unicode.IsLetter(c) {
			continue
		}
		if i == 0 || !unicode.IsLetter(r[i-1]) {
			r[i] = unicode.ToUpper(c)
		} else {
			r[i] = unicode.ToLower(c)
		}
	}
	return string(r)
}

package loadplan

import "strings"

// Opt reports whether a text field is present. Load plans use the empty
// string for "absent"; surrounding whitespace is not significant.
func Opt(s string) (string, bool) {
	v := strings.TrimSpace(s)
	return v, v != ""
}

// OrDefault renders an optional field, substituting def when absent.
func OrDefault(s, def string) string {
	if v, ok := Opt(s); ok {
		return v
	}
	return def
}

// Package patterns provides extraction functions for load plan parsing.
package patterns

import (
	"strings"
)

// SplitCodes splits a dash-joined SHC field into upper-cased, trimmed tokens.
// Empty tokens are skipped, so "" yields nil.
func SplitCodes(shc string) []string {
	if strings.TrimSpace(shc) == "" {
		return nil
	}
	parts := strings.Split(shc, "-")
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			codes = append(codes, p)
		}
	}
	return codes
}

// HasAnyCode reports whether any token in codes is in set.
func HasAnyCode(codes []string, set map[string]bool) bool {
	for _, c := range codes {
		if set[c] {
			return true
		}
	}
	return false
}

// HasCode reports whether codes contains code exactly.
func HasCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// CodeSet builds a lookup set from a list of codes.
func CodeSet(codes ...string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}

// SplitOrgDes splits a 6-letter ORG/DES token into origin and destination.
// Anything that is not exactly six characters yields two empty strings.
func SplitOrgDes(orgDes string) (origin, destination string) {
	if len(orgDes) != 6 {
		return "", ""
	}
	return orgDes[:3], orgDes[3:]
}

// ExtractInboundFlight splits an inbound flight into carrier and number.
// Unmatched input yields empty strings.
func ExtractInboundFlight(fltIn string) (carrier, number string) {
	m := InboundFlightPattern.FindStringSubmatch(strings.TrimSpace(fltIn))
	if len(m) < 3 {
		return "", ""
	}
	return m[1], m[2]
}

// StripNote removes the asterisks and brackets around a special note line.
func StripNote(line string) string {
	line = strings.ReplaceAll(line, "*", "")
	line = strings.ReplaceAll(line, "[", "")
	line = strings.ReplaceAll(line, "]", "")
	return strings.TrimSpace(line)
}

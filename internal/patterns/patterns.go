// Package patterns provides shared regex patterns and helper functions for load plan parsing.
package patterns

import (
	"regexp"
	"strings"
)

// Header patterns. Each runs over the whole text blob, not line by line.
var (
	// HeaderFlightPattern matches "EK0205 / 12Oct".
	HeaderFlightPattern = regexp.MustCompile(`([A-Z0-9]{2}\d{3,4}[A-Z]?)\s*/\s*(\d{1,2}[A-Za-z]{3})`)

	AircraftTypePattern = regexp.MustCompile(`ACFT\s+TYPE:\s*(\S+)`)
	AircraftRegPattern  = regexp.MustCompile(`ACFT\s+REG:\s*(\S+)`)
	SectorPattern       = regexp.MustCompile(`SECTOR:\s*([A-Z]{6})`)
	STDPattern          = regexp.MustCompile(`STD:\s*(\d{2}:\d{2})`)

	// PreparedPattern matches "PREPARED BY: S294117   PREPARED ON: 12-Oct-25 06:42:10".
	// Either half may be missing, and the two may sit on separate lines. Each
	// value stays on its own line; the time after the date is optional.
	PreparedPattern = regexp.MustCompile(`PREPARED\s+BY:[ \t]*(\S+)(?:[\s\S]*?` + preparedOn + `)?|` + preparedOn)
)

const preparedOn = `PREPARED\s+ON:[ \t]*(\S+(?:[ \t]+\d{1,2}:\d{2}(?::\d{2})?)?)`

// Table structure patterns, applied to trimmed lines.
var (
	SeparatorPattern = regexp.MustCompile(`^[_\-=]+$`)
	TotalsPattern    = regexp.MustCompile(`^TOTALS\s*:`)

	// ULDMarkerPattern matches section markers such as "XX 01PMC 01AKE XX".
	ULDMarkerPattern = regexp.MustCompile(`XX\s+(\d+(?:PMC|AKE|PAG|AMP)(?:\s+\d+(?:PMC|AKE|PAG|AMP))*)\s+XX`)

	// BulkMarkerPattern matches the loose-cargo marker "XX BULK XX".
	BulkMarkerPattern = regexp.MustCompile(`^XX\s+BULK\s+XX$`)
)

// Report patterns.
var (
	// InboundFlightPattern splits an inbound flight such as "EK0509" into carrier and number.
	InboundFlightPattern = regexp.MustCompile(`^([A-Z0-9]{2})(\d{3,4}[A-Z]?)$`)
)

// IsTableHeader reports whether a line opens the shipment table.
func IsTableHeader(line string) bool {
	return strings.Contains(line, "SER.") && strings.Contains(line, "AWB NO")
}

// IsSpecialNote reports whether a line is a bracketed annotation.
func IsSpecialNote(line string) bool {
	return strings.HasPrefix(line, "[") || strings.HasPrefix(line, "**[")
}

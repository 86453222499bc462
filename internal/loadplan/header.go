package loadplan

import (
	"regexp"

	"cargo_loadplan/internal/patterns"
)

// ParseHeader extracts flight metadata from the whole text blob. Each field
// is matched independently; a field that is not found stays empty and no
// cross-checking is done.
func ParseHeader(content string) Header {
	h := Header{}

	if m := patterns.HeaderFlightPattern.FindStringSubmatch(content); len(m) > 2 {
		h.FlightNumber = m[1]
		h.Date = m[2]
	}
	h.AircraftType = firstGroup(patterns.AircraftTypePattern, content)
	h.AircraftReg = firstGroup(patterns.AircraftRegPattern, content)
	h.Sector = firstGroup(patterns.SectorPattern, content)
	h.STD = firstGroup(patterns.STDPattern, content)

	if m := patterns.PreparedPattern.FindStringSubmatch(content); len(m) > 3 {
		h.PreparedBy = m[1]
		h.PreparedOn = m[2]
		if h.PreparedOn == "" {
			h.PreparedOn = m[3]
		}
	}

	return h
}

func firstGroup(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	return ""
}

// Origin returns the first three letters of the sector.
func (h Header) Origin() string {
	o, _ := patterns.SplitOrgDes(h.Sector)
	return o
}

// Destination returns the last three letters of the sector.
func (h Header) Destination() string {
	_, d := patterns.SplitOrgDes(h.Sector)
	return d
}

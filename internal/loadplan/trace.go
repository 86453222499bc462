package loadplan

import (
	"strings"

	"cargo_loadplan/internal/registry"
)

// TraceLine explains how one source line was classified.
type TraceLine struct {
	Line       int                     `json:"line"`
	Text       string                  `json:"text"`
	Kind       LineKind                `json:"kind"`
	CurrentULD string                  `json:"current_uld,omitempty"`
	Serial     string                  `json:"serial,omitempty"`
	Matchers   []*registry.TraceResult `json:"matchers,omitempty"`
}

// Trace classifies every line of content the way ParseShipments does.
// Unparsed lines carry the per-matcher trace so it is visible which format
// came closest.
func Trace(content string) []TraceLine {
	var s State
	var kind LineKind

	lines := splitLines(content)
	out := make([]TraceLine, 0, len(lines))
	for i, line := range lines {
		s, kind = Step(s, line)
		tl := TraceLine{
			Line:       i + 1,
			Text:       strings.TrimSpace(line),
			Kind:       kind,
			CurrentULD: s.CurrentULD,
		}
		if (kind == KindShipmentStrict || kind == KindShipmentLoose) && s.Pending != nil {
			tl.Serial = s.Pending.SerialNo
		}
		if kind == KindUnparsed {
			tl.Matchers = lineMatchers.Trace(tl.Text)
		}
		out = append(out, tl)
	}
	return out
}

package loadplan

import (
	"strconv"
	"strings"
	"sync"

	"cargo_loadplan/internal/patterns"
	"cargo_loadplan/internal/registry"
)

// Formats defines the known shipment line formats.
// Order matters - the strict format is tried first.
var Formats = []patterns.Format{
	// Strict fixed-token layout: manifest description is set off by two or
	// more spaces on each side.
	// Example:
	// 007 176-52231150  DXBMXP     8     96.0   0.60   0.60  SPX-ELI       LITHIUM BATTERIES     DGR  P2  P2 QRT  SS  N  EK0211  12Oct 05:10  Q2/A2  Y
	{
		Name: "shipment_strict",
		Pattern: `^(?P<serial>{SERIAL})\s+(?P<awb>{AWB})\s+(?P<orgdes>{ORGDES})\s+` +
			`(?P<pieces>{INT})\s+(?P<weight>{NUM})\s+(?P<volume>{NUM})\s+(?P<lvol>{NUM})\s+` +
			`(?P<shc>{SHC})\s{2,}(?P<desc>\S.*?)\s{2,}` +
			`(?P<pcode>{PCODE})\s+(?P<pc>{PC})\s+(?P<thc>{THC})\s+(?P<bs>{BS})\s+(?P<pi>{YN})\s+` +
			`(?P<fltin>{FLIGHT})\s+(?P<arrdate>{DAYMON})\s+(?P<arrtime>{HHMM})` +
			`(?:\s+(?P<qnn>{QNN}))?(?:\s+(?P<whs>{WHS}))?\s+(?P<si>{YN})\s*$`,
		Fields: []string{"serial", "awb", "orgdes", "pieces", "weight", "volume", "lvol", "shc", "desc",
			"pcode", "pc", "thc", "bs", "pi", "fltin", "arrdate", "arrtime", "qnn", "whs", "si"},
	},
	// Loose layout for re-typed plans: single spaces around the description,
	// SHC and the inbound flight block may be missing.
	// Example:
	// 010 176-60031144 DXBMXP 24 310.0 1.90 1.90 ICE-HEG HATCHING EGGS PER P1 NORM SS N EK0433 12Oct 00:45 N
	{
		Name: "shipment_loose",
		Pattern: `^(?P<serial>{SERIAL})\s+(?P<awb>{AWB})\s+(?P<orgdes>{ORGDES})\s+` +
			`(?P<pieces>{INT})\s+(?P<weight>{NUM})\s+(?P<volume>{NUM})\s+(?P<lvol>{NUM})\s+` +
			`(?:(?P<shc>{SHC})\s+)?(?P<desc>\S.*?)\s+` +
			`(?P<pcode>{PCODE})\s+(?P<pc>{PC})\s+(?P<thc>{THC})\s+(?P<bs>{BS})\s+(?P<pi>{YN})` +
			`(?:\s+(?P<fltin>{FLIGHT})\s+(?P<arrdate>{DAYMON})\s+(?P<arrtime>{HHMM}))?` +
			`(?:\s+(?P<qnn>{QNN}))?(?:\s+(?P<whs>{WHS}))?\s+(?P<si>{YN})\s*$`,
		Fields: []string{"serial", "awb", "orgdes", "pieces", "weight", "volume", "lvol", "shc", "desc",
			"pcode", "pc", "thc", "bs", "pi", "fltin", "arrdate", "arrtime", "qnn", "whs", "si"},
	},
}

// Grok compiler singleton.
var (
	grokCompiler *patterns.Compiler
	grokOnce     sync.Once
	grokErr      error
)

// getCompiler returns the singleton grok compiler.
func getCompiler() (*patterns.Compiler, error) {
	grokOnce.Do(func() {
		grokCompiler = patterns.NewCompiler(Formats, nil)
		grokErr = grokCompiler.Compile()
	})
	return grokCompiler, grokErr
}

// Line match results.

// ULDMarker is a section marker line.
type ULDMarker struct {
	Label string
}

func (r *ULDMarker) Kind() string { return string(KindULDMarker) }

// ShipmentLine is a parsed AWB line. ULD and SectorIndex are filled in by Step.
type ShipmentLine struct {
	Shipment Shipment
	Format   string
}

func (r *ShipmentLine) Kind() string { return "shipment" }

// SpecialNote is a bracketed annotation line.
type SpecialNote struct {
	Text string
}

func (r *SpecialNote) Kind() string { return string(KindSpecialNote) }

// uldMarkerMatcher recognises "XX 02PMC 01AKE XX".
type uldMarkerMatcher struct{}

func (m *uldMarkerMatcher) Name() string  { return "uld_marker" }
func (m *uldMarkerMatcher) Priority() int { return 10 }

func (m *uldMarkerMatcher) QuickCheck(line string) bool {
	return strings.Contains(line, "XX")
}

func (m *uldMarkerMatcher) Match(line string) registry.Result {
	loc := patterns.ULDMarkerPattern.FindString(line)
	if loc == "" {
		return nil
	}
	return &ULDMarker{Label: loc}
}

// bulkMarkerMatcher recognises "XX BULK XX".
type bulkMarkerMatcher struct{}

func (m *bulkMarkerMatcher) Name() string  { return "bulk_marker" }
func (m *bulkMarkerMatcher) Priority() int { return 11 }

func (m *bulkMarkerMatcher) QuickCheck(line string) bool {
	return strings.Contains(line, "BULK")
}

func (m *bulkMarkerMatcher) Match(line string) registry.Result {
	if !patterns.BulkMarkerPattern.MatchString(line) {
		return nil
	}
	return &ULDMarker{Label: BulkLabel}
}

// shipmentMatcher recognises AWB lines with the strict then loose format.
type shipmentMatcher struct{}

func (m *shipmentMatcher) Name() string  { return "shipment" }
func (m *shipmentMatcher) Priority() int { return 20 }

// QuickCheck requires a leading digit and an AWB dash.
func (m *shipmentMatcher) QuickCheck(line string) bool {
	return line != "" && line[0] >= '0' && line[0] <= '9' && strings.Contains(line, "-")
}

func (m *shipmentMatcher) Match(line string) registry.Result {
	compiler, err := getCompiler()
	if err != nil {
		return nil
	}
	match := compiler.Parse(line)
	if match == nil {
		return nil
	}
	return &ShipmentLine{Shipment: shipmentFromMatch(match), Format: match.FormatName}
}

// MatchWithTrace reports which shipment formats were tried.
func (m *shipmentMatcher) MatchWithTrace(line string) *registry.TraceResult {
	tr := &registry.TraceResult{
		MatcherName: m.Name(),
		QuickCheck:  &registry.QuickCheck{Passed: m.QuickCheck(line)},
	}
	if !tr.QuickCheck.Passed {
		tr.QuickCheck.Reason = "no leading digit or AWB dash"
		return tr
	}

	compiler, err := getCompiler()
	if err != nil {
		tr.QuickCheck.Reason = err.Error()
		return tr
	}
	pt := compiler.ParseWithTrace(line)
	for _, ft := range pt.Formats {
		tr.Formats = append(tr.Formats, registry.FormatTrace{
			Name:     ft.Name,
			Matched:  ft.Matched,
			Pattern:  ft.Pattern,
			Captures: ft.Captures,
		})
	}
	tr.Matched = pt.Match != nil
	return tr
}

// specialNoteMatcher recognises "[...]" and "**[...]**" lines.
type specialNoteMatcher struct{}

func (m *specialNoteMatcher) Name() string  { return "special_note" }
func (m *specialNoteMatcher) Priority() int { return 30 }

func (m *specialNoteMatcher) QuickCheck(line string) bool {
	return patterns.IsSpecialNote(line)
}

func (m *specialNoteMatcher) Match(line string) registry.Result {
	return &SpecialNote{Text: patterns.StripNote(line)}
}

// lineMatchers holds the table line matchers in priority order.
var lineMatchers = registry.New()

func init() {
	lineMatchers.Register(&uldMarkerMatcher{})
	lineMatchers.Register(&bulkMarkerMatcher{})
	lineMatchers.Register(&shipmentMatcher{})
	lineMatchers.Register(&specialNoteMatcher{})
	lineMatchers.Sort()
}

func shipmentFromMatch(m *patterns.Match) Shipment {
	origin, dest := patterns.SplitOrgDes(m.GetCapture("orgdes", ""))

	s := Shipment{
		SerialNo:     m.GetCapture("serial", ""),
		AWBNo:        m.GetCapture("awb", ""),
		Origin:       origin,
		Destination:  dest,
		Pieces:       atoi(m.GetCapture("pieces", "")),
		Weight:       atof(m.GetCapture("weight", "")),
		Volume:       atof(m.GetCapture("volume", "")),
		LVol:         atof(m.GetCapture("lvol", "")),
		SHC:          m.GetCapture("shc", ""),
		ManDesc:      strings.TrimSpace(m.GetCapture("desc", "")),
		PCode:        m.GetCapture("pcode", ""),
		PC:           m.GetCapture("pc", ""),
		THC:          m.GetCapture("thc", ""),
		BS:           m.GetCapture("bs", ""),
		PI:           m.GetCapture("pi", ""),
		FltIn:        m.GetCapture("fltin", ""),
		QnnAqnn:      m.GetCapture("qnn", ""),
		WHS:          m.GetCapture("whs", ""),
		SI:           m.GetCapture("si", ""),
		SpecialNotes: []string{},
	}
	if date := m.GetCapture("arrdate", ""); date != "" {
		s.ArrDtTime = strings.TrimSpace(date + " " + m.GetCapture("arrtime", ""))
	}
	return s
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

package loadplan

import (
	"strings"
	"time"

	"cargo_loadplan/internal/logger"
	"cargo_loadplan/internal/metrics"
	"cargo_loadplan/internal/patterns"
)

// BulkLabel is the section label for loose cargo.
const BulkLabel = "BULK"

// LineKind classifies one source line.
type LineKind string

const (
	KindOutsideTable   LineKind = "outside_table"
	KindTableHeader    LineKind = "table_header"
	KindBlank          LineKind = "blank"
	KindSeparator      LineKind = "separator"
	KindTotals         LineKind = "totals"
	KindULDMarker      LineKind = "uld_marker"
	KindShipmentStrict LineKind = "shipment_strict"
	KindShipmentLoose  LineKind = "shipment_loose"
	KindSpecialNote    LineKind = "special_note"
	KindOrphanNote     LineKind = "orphan_note"
	KindUnparsed       LineKind = "unparsed"
)

// Dropped reports whether a line inside the table was discarded.
func (k LineKind) Dropped() bool {
	return k == KindUnparsed || k == KindOrphanNote
}

// State is the parser state between lines. Step never modifies the slices
// of the State it is given, so earlier states stay valid.
type State struct {
	Finished   []Shipment
	Pending    *Shipment
	CurrentULD string
	InTable    bool
	Sector     int
	Section    int // ULD markers seen in the open table
	Markers    []Marker
}

// Step folds one line into the state.
func Step(s State, line string) (State, LineKind) {
	line = strings.TrimSpace(line)

	if !s.InTable {
		if patterns.IsTableHeader(line) {
			s.InTable = true
			s.CurrentULD = ""
			s.Section = 0
			return s, KindTableHeader
		}
		return s, KindOutsideTable
	}

	switch {
	case line == "":
		return s, KindBlank
	case patterns.SeparatorPattern.MatchString(line):
		return s, KindSeparator
	case patterns.TotalsPattern.MatchString(line):
		s = s.flush()
		s.InTable = false
		s.CurrentULD = ""
		s.Section = 0
		s.Sector++
		return s, KindTotals
	case patterns.IsTableHeader(line):
		// Repeated header after a page break.
		return s, KindTableHeader
	}

	switch r := lineMatchers.DispatchFirst(line).(type) {
	case *ULDMarker:
		s.CurrentULD = r.Label
		s.Section++
		n := len(s.Markers)
		s.Markers = append(s.Markers[:n:n], Marker{SectorIndex: s.Sector, Section: s.Section, Label: r.Label})
		return s, KindULDMarker
	case *ShipmentLine:
		s = s.flush()
		sh := r.Shipment
		sh.ULD = s.CurrentULD
		sh.SectorIndex = s.Sector
		sh.ULDSection = s.Section
		s.Pending = &sh
		if r.Format == "shipment_loose" {
			return s, KindShipmentLoose
		}
		return s, KindShipmentStrict
	case *SpecialNote:
		if s.Pending == nil {
			return s, KindOrphanNote
		}
		p := *s.Pending
		n := len(p.SpecialNotes)
		p.SpecialNotes = append(p.SpecialNotes[:n:n], r.Text)
		s.Pending = &p
		return s, KindSpecialNote
	}

	return s, KindUnparsed
}

// flush moves the pending shipment, if any, to Finished.
func (s State) flush() State {
	if s.Pending == nil {
		return s
	}
	n := len(s.Finished)
	s.Finished = append(s.Finished[:n:n], *s.Pending)
	s.Pending = nil
	return s
}

// Finish flushes a shipment still pending at end of input.
func Finish(s State) []Shipment {
	s = s.flush()
	if s.Finished == nil {
		return []Shipment{}
	}
	return s.Finished
}

// Parser parses load plans, logging dropped lines and recording metrics.
type Parser struct {
	log     logger.Logger
	metrics *metrics.Metrics
}

// NewParser creates a parser. A nil logger or metrics disables that output.
func NewParser(log logger.Logger, m *metrics.Metrics) *Parser {
	if log == nil {
		log = logger.NewNop()
	}
	return &Parser{log: log, metrics: m}
}

// ParseShipments extracts shipment records from the table body. Malformed
// lines are logged at debug and dropped, never returned as errors.
func (p *Parser) ParseShipments(content string) []Shipment {
	shipments, _ := p.parseTable(content)
	return shipments
}

func (p *Parser) parseTable(content string) ([]Shipment, []Marker) {
	var s State
	var kind LineKind
	dropped := 0

	for i, line := range splitLines(content) {
		s, kind = Step(s, line)
		switch kind {
		case KindUnparsed:
			dropped++
			p.log.Debug("dropped unparsed line", "line", i+1, "text", strings.TrimSpace(line))
		case KindOrphanNote:
			dropped++
			p.log.Debug("dropped special note with no pending shipment", "line", i+1, "text", strings.TrimSpace(line))
		}
	}

	shipments := Finish(s)
	p.log.Info("parsed shipments", "shipments", len(shipments), "dropped", dropped)

	if p.metrics != nil {
		p.metrics.ShipmentsParsed.Add(float64(len(shipments)))
		p.metrics.LinesDropped.Add(float64(dropped))
	}

	markers := s.Markers
	if markers == nil {
		markers = []Marker{}
	}
	return shipments, markers
}

// Parse parses the header and shipments of one load plan.
func (p *Parser) Parse(content string) *LoadPlan {
	start := time.Now()

	lp := &LoadPlan{
		Header: ParseHeader(content),
	}
	log := p.log.With("flight", lp.Header.FlightNumber, "date", lp.Header.Date)
	lp.Shipments, lp.Markers = (&Parser{log: log, metrics: p.metrics}).parseTable(content)

	if p.metrics != nil {
		p.metrics.LoadPlansParsed.Inc()
		p.metrics.ParseDuration.Observe(time.Since(start).Seconds())
	}

	return lp
}

// ParseShipments parses with the given logger and no metrics.
func ParseShipments(content string, log logger.Logger) []Shipment {
	return NewParser(log, nil).ParseShipments(content)
}

// Parse parses a whole load plan with the given logger and no metrics.
func Parse(content string, log logger.Logger) *LoadPlan {
	return NewParser(log, nil).Parse(content)
}

func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.Split(content, "\n")
}

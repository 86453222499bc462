// Package reports turns parsed shipments into the special cargo, VUN and QRT
// report rows. Each generator is an independent pass, so one shipment can
// appear in several reports.
package reports

import (
	"strings"

	"cargo_loadplan/internal/classify"
	"cargo_loadplan/internal/loadplan"
	"cargo_loadplan/internal/metrics"
	"cargo_loadplan/internal/patterns"
)

// DefaultCarrier is used when the header flight number has no carrier prefix.
const DefaultCarrier = "EK"

// Report kinds.
const (
	KindSpecialCargo = "special_cargo"
	KindVUN          = "vun"
	KindQRT          = "qrt"
)

// Kinds lists the report kinds in display order.
var Kinds = []string{KindSpecialCargo, KindVUN, KindQRT}

// Unassigned is the ULD label printed when a shipment has no ULD section.
const Unassigned = "***"

// Route shapes for VUN loadInOut.
const (
	ULDToULD = "ULD - ULD"
	BLKToBLK = "BLK - BLK"
	BLKToULD = "BLK - ULD"
	ULDToBLK = "ULD - BLK"
)

// Cargo types for the VUN list.
const (
	CargoLiveAnimals  = "Live Animals"
	CargoHumanRemains = "Human Remains"
	CargoMail         = "Mail"
	CargoHardFreight  = "Hard Freight"
)

// FlightRef identifies a carrier flight on a date.
type FlightRef struct {
	Carrier  string `json:"carrier"`
	FlightNo string `json:"flight_no"`
	Date     string `json:"date,omitempty"`
}

// SpecialCargoRow is one line of the special cargo report.
type SpecialCargoRow struct {
	SerialNo     string    `json:"serial_no"`
	AWBNo        string    `json:"awb_no"`
	Origin       string    `json:"origin"`
	Destination  string    `json:"destination"`
	Pieces       int       `json:"pieces"`
	Weight       float64   `json:"weight"`
	SHC          string    `json:"shc"`
	ManDesc      string    `json:"man_desc"`
	ULD          string    `json:"uld"`
	Inbound      FlightRef `json:"inbound"`
	InArrival    string    `json:"in_arrival"`
	Outbound     FlightRef `json:"outbound"`
	SpecialNotes []string  `json:"special_notes"`
	HasHUM       bool      `json:"has_hum"`
}

// SpecialCargoReport splits special cargo into the general and weapons lists.
// A shipment is in exactly one of them.
type SpecialCargoReport struct {
	Regular []SpecialCargoRow `json:"regular"`
	Weapons []SpecialCargoRow `json:"weapons"`
}

// VUNListRow is one line of the vulnerable cargo list.
type VUNListRow struct {
	SerialNo  string    `json:"serial_no"`
	AWBNo     string    `json:"awb_no"`
	Origin    string    `json:"origin"`
	Pieces    int       `json:"pieces"`
	Weight    float64   `json:"weight"`
	SHC       string    `json:"shc"`
	ManDesc   string    `json:"man_desc"`
	CargoType string    `json:"cargo_type"`
	LoadInOut string    `json:"load_in_out"`
	Inbound   FlightRef `json:"inbound"`
	InULD     string    `json:"in_uld"`
	Outbound  FlightRef `json:"outbound"`
	OutULD    string    `json:"out_uld"`
}

// QRTListRow is one line of the quick ramp transfer list.
type QRTListRow struct {
	SerialNo    string    `json:"serial_no"`
	AWBNo       string    `json:"awb_no"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Pieces      int       `json:"pieces"`
	Weight      float64   `json:"weight"`
	SHC         string    `json:"shc"`
	THC         string    `json:"thc"`
	ManDesc     string    `json:"man_desc"`
	Inbound     FlightRef `json:"inbound"`
	InArrival   string    `json:"in_arrival"`
	ULD         string    `json:"uld"`
	Outbound    FlightRef `json:"outbound"`
}

// Bundle holds every report for one load plan.
type Bundle struct {
	Header       loadplan.Header    `json:"header"`
	SpecialCargo SpecialCargoReport `json:"special_cargo"`
	VUN          []VUNListRow       `json:"vun"`
	QRT          []QRTListRow       `json:"qrt"`
}

// Generator builds reports. The zero value uses DefaultCarrier and records
// no metrics.
type Generator struct {
	DefaultCarrier string
	Metrics        *metrics.Metrics
}

// NewGenerator creates a generator for the given default carrier.
func NewGenerator(defaultCarrier string, m *metrics.Metrics) *Generator {
	return &Generator{DefaultCarrier: defaultCarrier, Metrics: m}
}

// Outbound derives the outbound flight from the header. A flight number
// without a recognisable carrier prefix keeps the whole number and takes the
// default carrier.
func (g *Generator) Outbound(h loadplan.Header) FlightRef {
	carrier, number := patterns.ExtractInboundFlight(h.FlightNumber)
	if carrier == "" {
		number = h.FlightNumber
	}
	return FlightRef{
		Carrier:  loadplan.OrDefault(carrier, loadplan.OrDefault(g.DefaultCarrier, DefaultCarrier)),
		FlightNo: number,
		Date:     h.Date,
	}
}

// Inbound splits a shipment's inbound flight. Unmatched input gives empty fields.
func Inbound(s loadplan.Shipment) FlightRef {
	carrier, number := patterns.ExtractInboundFlight(s.FltIn)
	return FlightRef{Carrier: carrier, FlightNo: number}
}

// SpecialCargo filters to general special cargo, applies the ICE exception
// policy, and forks survivors into the weapons or regular list.
func (g *Generator) SpecialCargo(h loadplan.Header, shipments []loadplan.Shipment) SpecialCargoReport {
	out := g.Outbound(h)
	report := SpecialCargoReport{
		Regular: []SpecialCargoRow{},
		Weapons: []SpecialCargoRow{},
	}

	for _, s := range shipments {
		if !classify.IsGeneralSpecialCargo(s) || !classify.ShouldKeepIceShipment(s) {
			continue
		}

		row := SpecialCargoRow{
			SerialNo:     s.SerialNo,
			AWBNo:        s.AWBNo,
			Origin:       s.Origin,
			Destination:  s.Destination,
			Pieces:       s.Pieces,
			Weight:       s.Weight,
			SHC:          s.SHC,
			ManDesc:      s.ManDesc,
			ULD:          loadplan.OrDefault(s.ULD, Unassigned),
			Inbound:      Inbound(s),
			InArrival:    s.ArrDtTime,
			Outbound:     out,
			SpecialNotes: notes(s),
			HasHUM:       classify.HasHUM(s),
		}

		if classify.IsWeaponsCargo(s) {
			report.Weapons = append(report.Weapons, row)
		} else {
			report.Regular = append(report.Regular, row)
		}
	}

	g.count(KindSpecialCargo)
	return report
}

// VUNList lists shipments carrying the VUN code.
func (g *Generator) VUNList(h loadplan.Header, shipments []loadplan.Shipment) []VUNListRow {
	out := g.Outbound(h)
	rows := []VUNListRow{}

	for _, s := range shipments {
		if !classify.IsVUNCargo(s) {
			continue
		}

		inULD := InboundULD(s)
		outULD := loadplan.OrDefault(s.ULD, Unassigned)

		rows = append(rows, VUNListRow{
			SerialNo:  s.SerialNo,
			AWBNo:     s.AWBNo,
			Origin:    s.Origin,
			Pieces:    s.Pieces,
			Weight:    s.Weight,
			SHC:       s.SHC,
			ManDesc:   s.ManDesc,
			CargoType: CargoType(s),
			LoadInOut: LoadInOut(inULD, outULD),
			Inbound:   Inbound(s),
			InULD:     inULD,
			Outbound:  out,
			OutULD:    outULD,
		})
	}

	g.count(KindVUN)
	return rows
}

// QRTList lists shipments whose THC carries the QRT marker.
func (g *Generator) QRTList(h loadplan.Header, shipments []loadplan.Shipment) []QRTListRow {
	out := g.Outbound(h)
	rows := []QRTListRow{}

	for _, s := range shipments {
		if !classify.IsQRTCargo(s) {
			continue
		}
		rows = append(rows, QRTListRow{
			SerialNo:    s.SerialNo,
			AWBNo:       s.AWBNo,
			Origin:      s.Origin,
			Destination: s.Destination,
			Pieces:      s.Pieces,
			Weight:      s.Weight,
			SHC:         s.SHC,
			THC:         s.THC,
			ManDesc:     s.ManDesc,
			Inbound:     Inbound(s),
			InArrival:   s.ArrDtTime,
			ULD:         loadplan.OrDefault(s.ULD, Unassigned),
			Outbound:    out,
		})
	}

	g.count(KindQRT)
	return rows
}

// All runs every generator.
func (g *Generator) All(lp *loadplan.LoadPlan) Bundle {
	return Bundle{
		Header:       lp.Header,
		SpecialCargo: g.SpecialCargo(lp.Header, lp.Shipments),
		VUN:          g.VUNList(lp.Header, lp.Shipments),
		QRT:          g.QRTList(lp.Header, lp.Shipments),
	}
}

// Summary counts the rows of one report kind in a bundle.
type Summary struct {
	Rows        int     `json:"rows"`
	WeaponsRows int     `json:"weapons_rows"`
	Pieces      int     `json:"pieces"`
	Weight      float64 `json:"weight"`
}

// Summarize totals the rows of kind. Weapons rows count towards Rows too.
func (b Bundle) Summarize(kind string) Summary {
	var sum Summary
	add := func(pieces int, weight float64) {
		sum.Rows++
		sum.Pieces += pieces
		sum.Weight += weight
	}
	switch kind {
	case KindSpecialCargo:
		for _, r := range b.SpecialCargo.Regular {
			add(r.Pieces, r.Weight)
		}
		for _, r := range b.SpecialCargo.Weapons {
			add(r.Pieces, r.Weight)
		}
		sum.WeaponsRows = len(b.SpecialCargo.Weapons)
	case KindVUN:
		for _, r := range b.VUN {
			add(r.Pieces, r.Weight)
		}
	case KindQRT:
		for _, r := range b.QRT {
			add(r.Pieces, r.Weight)
		}
	}
	return sum
}

func (g *Generator) count(kind string) {
	if g.Metrics != nil {
		g.Metrics.ReportsGenerated.WithLabelValues(kind).Inc()
	}
}

// CargoType derives the VUN cargo type. First match wins: AVI, then HUM or
// HUU, then MAL; anything else is hard freight.
func CargoType(s loadplan.Shipment) string {
	codes := classify.Codes(s)
	switch {
	case patterns.HasCode(codes, "AVI"):
		return CargoLiveAnimals
	case patterns.HasCode(codes, "HUM"), patterns.HasCode(codes, "HUU"):
		return CargoHumanRemains
	case patterns.HasCode(codes, "MAL"):
		return CargoMail
	default:
		return CargoHardFreight
	}
}

// InboundULD is the shipment's ULD label, or BULK when the serial is marked
// as bulk, or Unassigned.
func InboundULD(s loadplan.Shipment) string {
	if v, ok := loadplan.Opt(s.ULD); ok {
		return v
	}
	if strings.Contains(strings.ToUpper(s.SerialNo), loadplan.BulkLabel) {
		return loadplan.BulkLabel
	}
	return Unassigned
}

// IsBulkLike reports whether a ULD label means loose cargo.
func IsBulkLike(label string) bool {
	v := strings.TrimSpace(label)
	return v == "" || v == loadplan.BulkLabel || v == Unassigned
}

// LoadInOut renders the inbound/outbound route shape.
func LoadInOut(inULD, outULD string) string {
	inBulk, outBulk := IsBulkLike(inULD), IsBulkLike(outULD)
	switch {
	case inBulk && outBulk:
		return BLKToBLK
	case inBulk:
		return BLKToULD
	case outBulk:
		return ULDToBLK
	default:
		return ULDToULD
	}
}

func notes(s loadplan.Shipment) []string {
	if len(s.SpecialNotes) == 0 {
		return []string{}
	}
	return append([]string(nil), s.SpecialNotes...)
}

var defaultGenerator = &Generator{DefaultCarrier: DefaultCarrier}

// GenerateSpecialCargoReport runs SpecialCargo with the default generator.
func GenerateSpecialCargoReport(h loadplan.Header, shipments []loadplan.Shipment) SpecialCargoReport {
	return defaultGenerator.SpecialCargo(h, shipments)
}

// GenerateVUNList runs VUNList with the default generator.
func GenerateVUNList(h loadplan.Header, shipments []loadplan.Shipment) []VUNListRow {
	return defaultGenerator.VUNList(h, shipments)
}

// GenerateQRTList runs QRTList with the default generator.
func GenerateQRTList(h loadplan.Header, shipments []loadplan.Shipment) []QRTListRow {
	return defaultGenerator.QRTList(h, shipments)
}

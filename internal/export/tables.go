package export

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"cargo_loadplan/internal/reports"
)

// table is one report block: a title line, column names and rows. pcsCol and
// wgtCol locate the columns summed into the TOTAL row.
type table struct {
	title   string
	columns []string
	rows    [][]any
	pcsCol  int
	wgtCol  int
	pieces  int
	weight  decimal.Decimal
}

func (t *table) add(pieces int, weight float64, cells ...any) {
	t.rows = append(t.rows, cells)
	t.pieces += pieces
	t.weight = t.weight.Add(decimal.NewFromFloat(weight))
}

// totals renders the summary row: AWB count, total pieces, total weight.
func (t table) totals() []any {
	row := make([]any, len(t.columns))
	row[0] = "TOTAL"
	row[1] = fmt.Sprintf("%d AWB", len(t.rows))
	row[t.pcsCol] = t.pieces
	row[t.wgtCol] = t.weight
	return row
}

func kg(w float64) decimal.Decimal {
	return decimal.NewFromFloat(w)
}

var specialCargoColumns = []string{
	"SER", "AWB NO", "ORG", "DES", "PCS", "WGT", "SHC", "MAN.DESC", "ULD",
	"IN CARRIER", "IN FLIGHT", "ARR DT.TIME", "OUT CARRIER", "OUT FLIGHT", "OUT DATE", "SPECIAL NOTES",
}

func specialCargoTable(title string, rows []reports.SpecialCargoRow) table {
	t := table{title: title, columns: specialCargoColumns, pcsCol: 4, wgtCol: 5}
	for _, r := range rows {
		t.add(r.Pieces, r.Weight,
			r.SerialNo, r.AWBNo, r.Origin, r.Destination, r.Pieces, kg(r.Weight), r.SHC, r.ManDesc, r.ULD,
			r.Inbound.Carrier, r.Inbound.FlightNo, r.InArrival,
			r.Outbound.Carrier, r.Outbound.FlightNo, r.Outbound.Date,
			strings.Join(r.SpecialNotes, "; "),
		)
	}
	return t
}

var vunColumns = []string{
	"SER", "AWB NO", "ORG", "PCS", "WGT", "SHC", "MAN.DESC", "CARGO TYPE", "LOAD IN/OUT",
	"IN CARRIER", "IN FLIGHT", "IN ULD", "OUT CARRIER", "OUT FLIGHT", "OUT DATE", "OUT ULD",
}

func vunTable(title string, rows []reports.VUNListRow) table {
	t := table{title: title, columns: vunColumns, pcsCol: 3, wgtCol: 4}
	for _, r := range rows {
		t.add(r.Pieces, r.Weight,
			r.SerialNo, r.AWBNo, r.Origin, r.Pieces, kg(r.Weight), r.SHC, r.ManDesc, r.CargoType, r.LoadInOut,
			r.Inbound.Carrier, r.Inbound.FlightNo, r.InULD,
			r.Outbound.Carrier, r.Outbound.FlightNo, r.Outbound.Date, r.OutULD,
		)
	}
	return t
}

var qrtColumns = []string{
	"SER", "AWB NO", "ORG", "DES", "PCS", "WGT", "SHC", "THC", "MAN.DESC",
	"IN CARRIER", "IN FLIGHT", "ARR DT.TIME", "ULD", "OUT CARRIER", "OUT FLIGHT", "OUT DATE",
}

func qrtTable(title string, rows []reports.QRTListRow) table {
	t := table{title: title, columns: qrtColumns, pcsCol: 4, wgtCol: 5}
	for _, r := range rows {
		t.add(r.Pieces, r.Weight,
			r.SerialNo, r.AWBNo, r.Origin, r.Destination, r.Pieces, kg(r.Weight), r.SHC, r.THC, r.ManDesc,
			r.Inbound.Carrier, r.Inbound.FlightNo, r.InArrival, r.ULD,
			r.Outbound.Carrier, r.Outbound.FlightNo, r.Outbound.Date,
		)
	}
	return t
}

// Package export writes report rows as CSV, TSV or XLSX. Report headers are
// stamped with the date and shift at export time, not the flight's date.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cargo_loadplan/internal/reports"
)

// Format is an output encoding.
type Format string

// Formats.
const (
	CSV  Format = "csv"
	TSV  Format = "tsv"
	XLSX Format = "xlsx"
)

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown export format")

// ErrUnknownKind is returned for an unsupported report kind.
var ErrUnknownKind = errors.New("unknown report kind")

// ParseFormat resolves a format name. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", CSV:
		return CSV, nil
	case TSV:
		return TSV, nil
	case XLSX:
		return XLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case TSV:
		return "text/tab-separated-values"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

func (f Format) delimiter() rune {
	if f == TSV {
		return '\t'
	}
	return ','
}

// Report titles.
const (
	TitleSpecialCargo = "SPECIAL CARGO REPORT"
	TitleWeapons      = "WEAPONS CARGO REPORT"
	TitleVUN          = "VUN CARGO LIST"
	TitleQRT          = "QRT CARGO LIST"
)

// Exporter renders reports. Now and Location decide the shift in the header.
type Exporter struct {
	now func() time.Time
	loc *time.Location
}

// New creates an exporter. A nil now uses time.Now; a nil loc uses UTC.
func New(now func() time.Time, loc *time.Location) *Exporter {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Exporter{now: now, loc: loc}
}

func (e *Exporter) localNow() time.Time {
	return e.now().In(e.loc)
}

// Shift returns the shift at export time.
func (e *Exporter) Shift() Shift {
	return CurrentShift(e.localNow())
}

// ReportHeader builds the header line for a report title.
func (e *Exporter) ReportHeader(title string) string {
	now := e.localNow()
	return fmt.Sprintf("%s - %s %s", title, now.Format("02-Jan-2006"), CurrentShift(now))
}

// SpecialCargoHeader is the header of the regular special cargo report.
func (e *Exporter) SpecialCargoHeader() string {
	return e.ReportHeader(TitleSpecialCargo)
}

// WeaponsHeader is the header of the weapons sub-report.
func (e *Exporter) WeaponsHeader() string {
	return WeaponsPrefix + " " + e.ReportHeader(TitleWeapons)
}

// Write renders one report kind from the bundle in a delimited format.
func (e *Exporter) Write(w io.Writer, f Format, kind string, b reports.Bundle) error {
	switch kind {
	case reports.KindSpecialCargo:
		return e.WriteSpecialCargo(w, f, b.SpecialCargo)
	case reports.KindVUN:
		return e.WriteVUN(w, f, b.VUN)
	case reports.KindQRT:
		return e.WriteQRT(w, f, b.QRT)
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// WriteSpecialCargo writes the regular list, then the weapons list under its
// own header when it has rows.
func (e *Exporter) WriteSpecialCargo(w io.Writer, f Format, r reports.SpecialCargoReport) error {
	tables := []table{specialCargoTable(e.SpecialCargoHeader(), r.Regular)}
	if len(r.Weapons) > 0 {
		tables = append(tables, specialCargoTable(e.WeaponsHeader(), r.Weapons))
	}
	return writeDelimited(w, f, tables...)
}

// WriteVUN writes the VUN list.
func (e *Exporter) WriteVUN(w io.Writer, f Format, rows []reports.VUNListRow) error {
	return writeDelimited(w, f, vunTable(e.ReportHeader(TitleVUN), rows))
}

// WriteQRT writes the QRT list.
func (e *Exporter) WriteQRT(w io.Writer, f Format, rows []reports.QRTListRow) error {
	return writeDelimited(w, f, qrtTable(e.ReportHeader(TitleQRT), rows))
}

func writeDelimited(w io.Writer, f Format, tables ...table) error {
	if f == XLSX {
		return fmt.Errorf("%w: %q is not delimited", ErrUnknownFormat, f)
	}

	cw := csv.NewWriter(w)
	cw.Comma = f.delimiter()

	for i, t := range tables {
		if i > 0 {
			if err := cw.Write([]string{}); err != nil {
				return fmt.Errorf("write separator: %w", err)
			}
		}
		if err := cw.Write([]string{t.title}); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		if err := cw.Write(t.columns); err != nil {
			return fmt.Errorf("write columns: %w", err)
		}
		for _, row := range t.rows {
			if err := cw.Write(textRow(row)); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
		if err := cw.Write(textRow(t.totals())); err != nil {
			return fmt.Errorf("write totals: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func textRow(cells []any) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		switch v := c.(type) {
		case nil:
		case string:
			out[i] = v
		case int:
			out[i] = strconv.Itoa(v)
		case decimal.Decimal:
			out[i] = v.StringFixed(1)
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

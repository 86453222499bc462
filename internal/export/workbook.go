package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"cargo_loadplan/internal/reports"
)

// Sheet names in the report workbook.
const (
	SheetSpecialCargo = "Special Cargo"
	SheetWeapons      = "Weapons"
	SheetVUN          = "VUN"
	SheetQRT          = "QRT"
)

type sheet struct {
	name string
	t    table
}

// WriteWorkbook writes every report of the bundle to one XLSX workbook, one
// sheet per report. The weapons sheet is only added when it has rows.
func (e *Exporter) WriteWorkbook(w io.Writer, b reports.Bundle) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	sheets := []sheet{
		{SheetSpecialCargo, specialCargoTable(e.SpecialCargoHeader(), b.SpecialCargo.Regular)},
	}
	if len(b.SpecialCargo.Weapons) > 0 {
		sheets = append(sheets, sheet{SheetWeapons, specialCargoTable(e.WeaponsHeader(), b.SpecialCargo.Weapons)})
	}
	sheets = append(sheets,
		sheet{SheetVUN, vunTable(e.ReportHeader(TitleVUN), b.VUN)},
		sheet{SheetQRT, qrtTable(e.ReportHeader(TitleQRT), b.QRT)},
	)

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s.name, s.t, bold); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t table, bold int) error {
	rows := make([][]any, 0, len(t.rows)+3)
	rows = append(rows, []any{t.title})

	cols := make([]any, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c
	}
	rows = append(rows, cols)
	rows = append(rows, t.rows...)
	rows = append(rows, t.totals())

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := sheetValues(row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}

	last, err := excelize.CoordinatesToCellName(len(t.columns), 2)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	return nil
}

// sheetValues converts decimals to floats so weights are numeric cells.
func sheetValues(row []any) []any {
	out := make([]any, len(row))
	for i, c := range row {
		if d, ok := c.(decimal.Decimal); ok {
			out[i] = d.InexactFloat64()
			continue
		}
		out[i] = c
	}
	return out
}

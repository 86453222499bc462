package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"cargo_loadplan/internal/loadplan"
	"cargo_loadplan/internal/logger"
	"cargo_loadplan/internal/reports"
)

var dubai = time.FixedZone("GST", 4*60*60)

func fixedClock(hour, minute int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, time.October, 17, hour, minute, 0, 0, dubai)
	}
}

func fixtureBundle(t *testing.T) reports.Bundle {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "loadplan", "testdata", "ek0205.txt"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	lp := loadplan.Parse(string(data), logger.NewNop())
	return reports.NewGenerator("EK", nil).All(lp)
}

func TestCurrentShiftBoundary(t *testing.T) {
	tests := []struct {
		hour, minute int
		want         Shift
	}{
		{13, 0, DayShift},
		{12, 59, NightShift},
		{23, 59, DayShift},
		{0, 0, NightShift},
		{8, 0, NightShift},
	}

	for _, tt := range tests {
		if got := CurrentShift(fixedClock(tt.hour, tt.minute)()); got != tt.want {
			t.Errorf("CurrentShift(%02d:%02d) = %v, want %v", tt.hour, tt.minute, got, tt.want)
		}
	}
}

func TestSpecialCargoHeaderUsesExportTime(t *testing.T) {
	day := New(fixedClock(13, 0), dubai).SpecialCargoHeader()
	if !strings.Contains(day, "(1300 - 2359Hrs)") || !strings.Contains(day, "DAY") {
		t.Errorf("13:00 header = %q, want day window", day)
	}
	if !strings.Contains(day, "17-Oct-2026") {
		t.Errorf("header %q does not carry today's date", day)
	}

	night := New(fixedClock(12, 59), dubai).SpecialCargoHeader()
	if !strings.Contains(night, "(0800 - 1259Hrs)") || !strings.Contains(night, "NIGHT") {
		t.Errorf("12:59 header = %q, want night window", night)
	}
}

func TestHeaderFollowsLocation(t *testing.T) {
	// 09:30 UTC is 13:30 in Dubai.
	utc := func() time.Time { return time.Date(2026, time.October, 17, 9, 30, 0, 0, time.UTC) }

	if got := New(utc, dubai).Shift(); got != DayShift {
		t.Errorf("Shift() in GST = %v, want day", got)
	}
	if got := New(utc, nil).Shift(); got != NightShift {
		t.Errorf("Shift() in UTC = %v, want night", got)
	}
}

func TestWriteSpecialCargoCSV(t *testing.T) {
	b := fixtureBundle(t)
	e := New(fixedClock(14, 0), dubai)

	var buf bytes.Buffer
	if err := e.WriteSpecialCargo(&buf, CSV, b.SpecialCargo); err != nil {
		t.Fatalf("WriteSpecialCargo() error = %v", err)
	}

	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}

	// regular: header, columns, 8 rows, total; weapons: header, columns, 2 rows, total.
	if len(records) != 11+5 {
		t.Fatalf("expected 16 records, got %d", len(records))
	}
	if records[0][0] != e.SpecialCargoHeader() {
		t.Errorf("header: expected '%s', got '%s'", e.SpecialCargoHeader(), records[0][0])
	}
	if diff := cmp.Diff(specialCargoColumns, records[1]); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	first := records[2]
	if first[0] != "003" || first[5] != "180.0" || first[8] != "XX 02PMC XX" {
		t.Errorf("unexpected first row %v", first)
	}

	total := records[10]
	want := []string{"TOTAL", "8 AWB", "", "", "58", "2944.0"}
	if diff := cmp.Diff(want, total[:6]); diff != "" {
		t.Errorf("regular total mismatch (-want +got):\n%s", diff)
	}

	weaponsHeader := records[11][0]
	if !strings.HasPrefix(weaponsHeader, WeaponsPrefix) {
		t.Errorf("weapons header %q lacks prefix %q", weaponsHeader, WeaponsPrefix)
	}
	if records[15][1] != "2 AWB" || records[15][5] != "114.0" {
		t.Errorf("unexpected weapons total %v", records[15])
	}
}

func TestWriteSpecialCargoWithoutWeapons(t *testing.T) {
	var buf bytes.Buffer
	report := reports.SpecialCargoReport{Regular: []reports.SpecialCargoRow{}, Weapons: []reports.SpecialCargoRow{}}
	if err := New(fixedClock(9, 0), dubai).WriteSpecialCargo(&buf, CSV, report); err != nil {
		t.Fatalf("WriteSpecialCargo() error = %v", err)
	}
	if strings.Contains(buf.String(), WeaponsPrefix) {
		t.Error("empty weapons list must not get a header")
	}
	if !strings.Contains(buf.String(), "TOTAL,0 AWB") {
		t.Errorf("expected empty total row, got %q", buf.String())
	}
}

func TestWriteTSV(t *testing.T) {
	b := fixtureBundle(t)

	var buf bytes.Buffer
	if err := New(fixedClock(14, 0), dubai).Write(&buf, TSV, reports.KindQRT, b); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %q", len(lines), lines)
	}
	fields := strings.Split(lines[2], "\t")
	if fields[0] != "007" || fields[7] != "P2 QRT" {
		t.Errorf("unexpected QRT row %q", fields)
	}
}

func TestWriteUnknown(t *testing.T) {
	e := New(nil, nil)
	if err := e.Write(&bytes.Buffer{}, CSV, "bcr", reports.Bundle{}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
	if err := e.WriteVUN(&bytes.Buffer{}, XLSX, nil); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", CSV, false},
		{"CSV", CSV, false},
		{" tsv ", TSV, false},
		{"xlsx", XLSX, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteWorkbook(t *testing.T) {
	b := fixtureBundle(t)

	var buf bytes.Buffer
	if err := New(fixedClock(14, 0), dubai).WriteWorkbook(&buf, b); err != nil {
		t.Fatalf("WriteWorkbook() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	want := []string{SheetSpecialCargo, SheetWeapons, SheetVUN, SheetQRT}
	if diff := cmp.Diff(want, f.GetSheetList()); diff != "" {
		t.Errorf("sheets mismatch (-want +got):\n%s", diff)
	}

	rows, err := f.GetRows(SheetVUN)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	// header, columns, 5 rows, total
	if len(rows) != 8 {
		t.Fatalf("expected 8 VUN rows, got %d", len(rows))
	}
	if rows[2][0] != "002" || rows[2][7] != reports.CargoHardFreight {
		t.Errorf("unexpected VUN row %v", rows[2])
	}
	if rows[7][0] != "TOTAL" || rows[7][3] != "63" {
		t.Errorf("unexpected VUN total %v", rows[7])
	}
}

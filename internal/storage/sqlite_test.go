package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func setupSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func samplePlan() *LoadPlan {
	return &LoadPlan{
		FlightNumber: "EK0205",
		FlightDate:   time.Date(2025, time.October, 12, 0, 0, 0, 0, time.UTC),
		RawDate:      "12Oct",
		AircraftType: "77WER",
		AircraftReg:  "A6-EQH",
		Sector:       "DXBMXP",
		STD:          "09:30",
		PreparedBy:   "S294117",
		PreparedOn:   "12-Oct-25 06:42:10",
	}
}

func sampleItems() []LoadPlanItem {
	return []LoadPlanItem{
		{SerialNumber: "001", AWBNumber: "176-20257333", Origin: "DXB", Destination: "MXP", Pieces: 12, Weight: 450, SHC: "HEA-CRT-EMD"},
		{SerialNumber: "007", AWBNumber: "176-52231150", Origin: "DXB", Destination: "MXP", Pieces: 8, Weight: 96, SHC: "SPX-ELI",
			THC: "P2 QRT", ULD: "XX 01PMC 01AKE XX", ULDSection: 2, SpecialNotes: []string{"Must be load in Fire containment equipment"}},
	}
}

func TestSaveLoadPlanRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := setupSQLite(t)

	lp := samplePlan()
	if err := s.SaveLoadPlan(ctx, lp, sampleItems()); err != nil {
		t.Fatalf("SaveLoadPlan() error = %v", err)
	}
	if lp.ID == "" {
		t.Fatal("expected ID to be set")
	}

	got, err := s.GetLoadPlan(ctx, lp.ID)
	if err != nil {
		t.Fatalf("GetLoadPlan() error = %v", err)
	}
	if diff := cmp.Diff(lp, got, cmpopts.EquateApproxTime(time.Second)); diff != "" {
		t.Errorf("load plan mismatch (-want +got):\n%s", diff)
	}

	items, err := s.ListItems(ctx, lp.ID)
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].SpecialNotes == nil || len(items[0].SpecialNotes) != 0 {
		t.Errorf("expected empty non-nil notes, got %#v", items[0].SpecialNotes)
	}
	if diff := cmp.Diff([]string{"Must be load in Fire containment equipment"}, items[1].SpecialNotes); diff != "" {
		t.Errorf("notes mismatch (-want +got):\n%s", diff)
	}
	if items[1].LoadPlanID != lp.ID || items[1].THC != "P2 QRT" || items[1].ULDSection != 2 {
		t.Errorf("unexpected item %+v", items[1])
	}
}

func TestSaveLoadPlanUpsertsByFlightAndDate(t *testing.T) {
	ctx := context.Background()
	s := setupSQLite(t)

	first := samplePlan()
	if err := s.SaveLoadPlan(ctx, first, sampleItems()); err != nil {
		t.Fatalf("SaveLoadPlan() error = %v", err)
	}

	second := samplePlan()
	second.AircraftReg = "A6-EQI"
	if err := s.SaveLoadPlan(ctx, second, sampleItems()[:1]); err != nil {
		t.Fatalf("SaveLoadPlan() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("expected upsert to keep id %s, got %s", first.ID, second.ID)
	}

	plans, err := s.ListLoadPlans(ctx)
	if err != nil {
		t.Fatalf("ListLoadPlans() error = %v", err)
	}
	if len(plans) != 1 || plans[0].AircraftReg != "A6-EQI" {
		t.Errorf("expected one updated plan, got %+v", plans)
	}

	items, _ := s.ListItems(ctx, first.ID)
	if len(items) != 1 {
		t.Errorf("expected items to be replaced, got %d", len(items))
	}

	found, err := s.FindLoadPlan(ctx, "EK0205", first.FlightDate)
	if err != nil || found.ID != first.ID {
		t.Errorf("FindLoadPlan() = %+v, %v", found, err)
	}
}

func TestGetLoadPlanNotFound(t *testing.T) {
	s := setupSQLite(t)
	if _, err := s.GetLoadPlan(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetULDEntry(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertULDEntryByCompositeKey(t *testing.T) {
	ctx := context.Background()
	s := setupSQLite(t)

	lp := samplePlan()
	if err := s.SaveLoadPlan(ctx, lp, nil); err != nil {
		t.Fatalf("SaveLoadPlan() error = %v", err)
	}

	key := ULDEntryKey{LoadPlanID: lp.ID, SectorIndex: 0, ULDSectionIndex: 2, EntryIndex: 1}
	e := &ULDEntry{ULDEntryKey: key, ULDType: "AKE"}
	if err := s.UpsertULDEntry(ctx, e); err != nil {
		t.Fatalf("UpsertULDEntry() error = %v", err)
	}

	// A mobile client only knows the key.
	update := &ULDEntry{ULDEntryKey: key, ULDType: "AKE", ULDNumber: "AKE12345EK", Status: 2, UpdatedBy: "S294117"}
	if err := s.UpsertULDEntry(ctx, update); err != nil {
		t.Fatalf("UpsertULDEntry() error = %v", err)
	}
	if update.ID != e.ID {
		t.Errorf("expected upsert to keep id %s, got %s", e.ID, update.ID)
	}

	entries, err := s.ListULDEntries(ctx, lp.ID)
	if err != nil {
		t.Fatalf("ListULDEntries() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ULDNumber != "AKE12345EK" || entries[0].Status != 2 {
		t.Errorf("unexpected entry %+v", entries[0])
	}
}

func TestUpsertULDEntryUnknownLoadPlan(t *testing.T) {
	s := setupSQLite(t)
	e := &ULDEntry{ULDEntryKey: ULDEntryKey{LoadPlanID: "nope"}}
	if err := s.UpsertULDEntry(context.Background(), e); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStatusHistoryAppendOrder(t *testing.T) {
	ctx := context.Background()
	s := setupSQLite(t)

	lp := samplePlan()
	if err := s.SaveLoadPlan(ctx, lp, nil); err != nil {
		t.Fatalf("SaveLoadPlan() error = %v", err)
	}
	e := &ULDEntry{ULDEntryKey: ULDEntryKey{LoadPlanID: lp.ID}, ULDType: "PMC"}
	if err := s.UpsertULDEntry(ctx, e); err != nil {
		t.Fatalf("UpsertULDEntry() error = %v", err)
	}

	at := time.Date(2025, time.October, 12, 10, 0, 0, 0, time.UTC)
	for i, st := range []int{1, 2, 1} {
		r := StatusRecord{ULDEntryID: e.ID, Status: st, Reversal: i == 2, ChangedBy: "S1", ChangedAt: at}
		if err := s.AppendStatusHistory(ctx, r); err != nil {
			t.Fatalf("AppendStatusHistory() error = %v", err)
		}
	}

	history, err := s.StatusHistory(ctx, e.ID)
	if err != nil {
		t.Fatalf("StatusHistory() error = %v", err)
	}
	var got []int
	for _, r := range history {
		got = append(got, r.Status)
	}
	if diff := cmp.Diff([]int{1, 2, 1}, got); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	if !history[2].Reversal || history[1].Reversal {
		t.Errorf("reversal flags wrong: %+v", history)
	}
	if !history[0].ChangedAt.Equal(at) {
		t.Errorf("ChangedAt: expected %v, got %v", at, history[0].ChangedAt)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "mongo"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}

package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"cargo_loadplan/internal/logger"
	"cargo_loadplan/internal/storage"
)

func setupTracker(t *testing.T) (*Tracker, *storage.SQLiteStore, string) {
	t.Helper()
	ctx := context.Background()

	store, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	lp := &storage.LoadPlan{FlightNumber: "EK0205", FlightDate: time.Date(2025, time.October, 12, 0, 0, 0, 0, time.UTC)}
	if err := store.SaveLoadPlan(ctx, lp, nil); err != nil {
		t.Fatalf("SaveLoadPlan() error = %v", err)
	}
	e := &storage.ULDEntry{ULDEntryKey: storage.ULDEntryKey{LoadPlanID: lp.ID, ULDSectionIndex: 1}, ULDType: "PMC"}
	if err := store.UpsertULDEntry(ctx, e); err != nil {
		t.Fatalf("UpsertULDEntry() error = %v", err)
	}

	tr := NewTracker(store, logger.NewNop())
	tr.SetClock(func() time.Time { return t0 })
	return tr, store, e.ID
}

func TestTrackerAdvancePersists(t *testing.T) {
	ctx := context.Background()
	tr, store, id := setupTracker(t)

	var events []StatusChanged
	tr.OnStatusChanged(func(c StatusChanged) { events = append(events, c) })

	if _, err := tr.Advance(ctx, id, OnAircraft, "S1"); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	u, err := tr.Advance(ctx, id, Stored, "S1")
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if u.Status != Stored || len(u.History) != 2 {
		t.Errorf("unexpected ULD %+v", u)
	}

	entry, err := store.GetULDEntry(ctx, id)
	if err != nil {
		t.Fatalf("GetULDEntry() error = %v", err)
	}
	if entry.Status != int(Stored) || entry.UpdatedBy != "S1" {
		t.Errorf("entry not updated: %+v", entry)
	}

	history, _ := store.StatusHistory(ctx, id)
	if len(history) != 2 {
		t.Errorf("expected 2 history rows, got %d", len(history))
	}

	if len(events) != 2 || events[1].From != OnAircraft || events[1].To != Stored || events[1].ULDType != "PMC" {
		t.Errorf("unexpected events %+v", events)
	}
}

func TestTrackerRejectsRegression(t *testing.T) {
	ctx := context.Background()
	tr, store, id := setupTracker(t)

	if _, err := tr.Advance(ctx, id, TunnelInducted, "S1"); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if _, err := tr.Advance(ctx, id, ReceivedByGHA, "S1"); !errors.Is(err, ErrStatusRegression) {
		t.Errorf("expected ErrStatusRegression, got %v", err)
	}

	history, _ := store.StatusHistory(ctx, id)
	if len(history) != 1 {
		t.Errorf("rejected change must not be persisted, got %d rows", len(history))
	}
}

func TestTrackerUnmarkLoadedSurvivesReload(t *testing.T) {
	ctx := context.Background()
	tr, store, id := setupTracker(t)

	_, _ = tr.Advance(ctx, id, OnAircraft, "S1")
	_, _ = tr.Advance(ctx, id, ReceivedByGHA, "S1")
	if _, err := tr.UnmarkLoaded(ctx, id, "S2"); err != nil {
		t.Fatalf("UnmarkLoaded() error = %v", err)
	}

	// A fresh tracker rebuilds status from the stored history.
	fresh := NewTracker(store, nil)
	u, err := fresh.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if u.Status != OnAircraft {
		t.Errorf("Status: expected '%s', got '%s'", OnAircraft, u.Status)
	}
	if len(u.History) != 3 || !u.History[2].Reversal {
		t.Errorf("unexpected history %+v", u.History)
	}
}

func TestTrackerUnknownEntry(t *testing.T) {
	tr, _, _ := setupTracker(t)
	if _, err := tr.Advance(context.Background(), "missing", OnAircraft, "S1"); !errors.Is(err, ErrUnknownULD) {
		t.Errorf("expected ErrUnknownULD, got %v", err)
	}
}

func TestTrackerClientWrittenStatus(t *testing.T) {
	ctx := context.Background()
	tr, store, id := setupTracker(t)

	entry, _ := store.GetULDEntry(ctx, id)
	entry.Status = int(Stored)
	if err := store.UpsertULDEntry(ctx, entry); err != nil {
		t.Fatalf("UpsertULDEntry() error = %v", err)
	}
	tr.Forget(id)

	if _, err := tr.Advance(ctx, id, TunnelInducted, "S1"); !errors.Is(err, ErrStatusRegression) {
		t.Errorf("expected ErrStatusRegression from stored status, got %v", err)
	}
}

func TestTrackerEdit(t *testing.T) {
	ctx := context.Background()
	tr, store, id := setupTracker(t)

	if _, err := tr.Advance(ctx, id, ReceivedByGHA, "S1"); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	stored, _ := store.GetULDEntry(ctx, id)

	edited, created, err := tr.Edit(ctx, storage.ULDEntry{ULDEntryKey: stored.ULDEntryKey, ULDNumber: "PMC12345EK", UpdatedBy: "M1"})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if created || edited.ID != id || edited.Status != int(ReceivedByGHA) || edited.ULDType != "PMC" {
		t.Errorf("Edit() = %+v, created %v", edited, created)
	}

	// The cached entry must carry the new number into later status writes.
	if _, err := tr.Advance(ctx, id, Stored, "S1"); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	got, _ := store.GetULDEntry(ctx, id)
	if got.ULDNumber != "PMC12345EK" || got.Status != int(Stored) {
		t.Errorf("entry after advance = %+v", got)
	}
	u, _ := tr.Get(ctx, id)
	if u.Number != "PMC12345EK" {
		t.Errorf("cached number = %q", u.Number)
	}

	key := stored.ULDEntryKey
	key.EntryIndex = 1
	fresh, created, err := tr.Edit(ctx, storage.ULDEntry{ULDEntryKey: key, ULDType: "AKE"})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if !created || fresh.ID == id || fresh.Status != int(None) {
		t.Errorf("Edit() new entry = %+v, created %v", fresh, created)
	}
}

func TestTrackerEditConcurrentWithAdvance(t *testing.T) {
	ctx := context.Background()
	tr, store, id := setupTracker(t)
	stored, _ := store.GetULDEntry(ctx, id)

	var g errgroup.Group
	for _, next := range []Status{OnAircraft, ReceivedByGHA, TunnelInducted, Stored} {
		g.Go(func() error {
			_, err := tr.Advance(ctx, id, next, "S1")
			if errors.Is(err, ErrStatusRegression) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		_, _, err := tr.Edit(ctx, storage.ULDEntry{ULDEntryKey: stored.ULDEntryKey, ULDNumber: "PMC12345EK"})
		return err
	})
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent updates: %v", err)
	}

	got, _ := store.GetULDEntry(ctx, id)
	if got.ULDNumber != "PMC12345EK" {
		t.Errorf("uld number lost: %+v", got)
	}
	if got.Status == int(None) {
		t.Errorf("status lost: %+v", got)
	}
}

package status

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cargo_loadplan/internal/logger"
	"cargo_loadplan/internal/storage"
)

// Store is the part of storage.Store the tracker needs.
type Store interface {
	GetULDEntry(ctx context.Context, id string) (*storage.ULDEntry, error)
	ListULDEntries(ctx context.Context, loadPlanID string) ([]storage.ULDEntry, error)
	UpsertULDEntry(ctx context.Context, e *storage.ULDEntry) error
	AppendStatusHistory(ctx context.Context, r storage.StatusRecord) error
	StatusHistory(ctx context.Context, uldEntryID string) ([]storage.StatusRecord, error)
}

// StatusChanged is passed to the OnStatusChanged callback.
type StatusChanged struct {
	ULDEntryID string    `json:"uld_entry_id"`
	LoadPlanID string    `json:"load_plan_id"`
	ULDType    string    `json:"uld_type"`
	ULDNumber  string    `json:"uld_number"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	Reversal   bool      `json:"reversal"`
	ChangedBy  string    `json:"changed_by"`
	ChangedAt  time.Time `json:"changed_at"`
}

// Tracker applies status changes to stored ULD entries. Entries are cached
// in memory after first use.
type Tracker struct {
	store Store
	log   logger.Logger
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]*tracked

	onStatusChanged func(StatusChanged)
}

type tracked struct {
	entry storage.ULDEntry
	uld   ULD
}

// NewTracker creates a tracker over store. A nil log discards output.
func NewTracker(store Store, log logger.Logger) *Tracker {
	if log == nil {
		log = logger.NewNop()
	}
	return &Tracker{
		store:   store,
		log:     log,
		now:     time.Now,
		entries: make(map[string]*tracked),
	}
}

// SetClock replaces the time source used to stamp changes.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// OnStatusChanged sets a callback fired after every persisted change.
func (t *Tracker) OnStatusChanged(fn func(StatusChanged)) {
	t.onStatusChanged = fn
}

// Get returns the ULD for a stored entry, with its history.
func (t *Tracker) Get(ctx context.Context, id string) (ULD, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, err := t.loadLocked(ctx, id)
	if err != nil {
		return ULD{}, err
	}
	return tr.uld.clone(), nil
}

// Advance moves an entry forward to next.
func (t *Tracker) Advance(ctx context.Context, id string, next Status, by string) (ULD, error) {
	return t.apply(ctx, id, by, func(u *ULD, at time.Time) (Change, error) {
		return u.Advance(next, by, at)
	})
}

// UnmarkLoaded reverts the latest status change of an entry.
func (t *Tracker) UnmarkLoaded(ctx context.Context, id string, by string) (ULD, error) {
	return t.apply(ctx, id, by, func(u *ULD, at time.Time) (Change, error) {
		return u.UnmarkLoaded(by, at)
	})
}

func (t *Tracker) apply(ctx context.Context, id, by string, step func(*ULD, time.Time) (Change, error)) (ULD, error) {
	t.mu.Lock()
	tr, err := t.loadLocked(ctx, id)
	if err != nil {
		t.mu.Unlock()
		return ULD{}, err
	}

	next := tr.uld.clone()
	from := next.Status
	c, err := step(&next, t.now().UTC())
	if err != nil {
		t.mu.Unlock()
		return ULD{}, err
	}

	entry := tr.entry
	entry.Status = int(c.Status)
	entry.UpdatedBy = by
	entry.UpdatedAt = c.ChangedAt

	if err := t.store.AppendStatusHistory(ctx, storage.StatusRecord{
		ULDEntryID: id,
		Status:     int(c.Status),
		Reversal:   c.Reversal,
		ChangedBy:  c.ChangedBy,
		ChangedAt:  c.ChangedAt,
	}); err != nil {
		t.mu.Unlock()
		return ULD{}, fmt.Errorf("append history: %w", err)
	}
	if err := t.store.UpsertULDEntry(ctx, &entry); err != nil {
		// History is ahead of the entry row; drop the cache so the next
		// load replays it.
		delete(t.entries, id)
		t.mu.Unlock()
		return ULD{}, fmt.Errorf("update entry: %w", err)
	}

	tr.entry = entry
	tr.uld = next
	out := next.clone()
	fn := t.onStatusChanged
	t.mu.Unlock()

	t.log.Info("uld status changed",
		"uld_entry_id", id,
		"from", from.String(),
		"to", c.Status.String(),
		"reversal", c.Reversal,
		"by", by)

	if fn != nil {
		fn(StatusChanged{
			ULDEntryID: id,
			LoadPlanID: entry.LoadPlanID,
			ULDType:    entry.ULDType,
			ULDNumber:  entry.ULDNumber,
			From:       from,
			To:         c.Status,
			Reversal:   c.Reversal,
			ChangedBy:  c.ChangedBy,
			ChangedAt:  c.ChangedAt,
		})
	}
	return out, nil
}

// Edit inserts or updates the entry with e's composite key. The stored status
// is kept, and so is the stored type when e has none. Edits and status
// changes are serialized, so neither overwrites the other. It reports whether
// the entry was created.
func (t *Tracker) Edit(ctx context.Context, e storage.ULDEntry) (storage.ULDEntry, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing, err := t.store.ListULDEntries(ctx, e.LoadPlanID)
	if err != nil {
		return storage.ULDEntry{}, false, fmt.Errorf("list entries: %w", err)
	}

	created := true
	e.ID = ""
	e.Status = int(None)
	for _, cur := range existing {
		if cur.ULDEntryKey != e.ULDEntryKey {
			continue
		}
		e.ID = cur.ID
		e.Status = cur.Status
		if e.ULDType == "" {
			e.ULDType = cur.ULDType
		}
		created = false
		break
	}
	e.UpdatedAt = t.now().UTC()

	if err := t.store.UpsertULDEntry(ctx, &e); err != nil {
		return storage.ULDEntry{}, false, fmt.Errorf("upsert entry: %w", err)
	}

	if tr, ok := t.entries[e.ID]; ok {
		tr.entry = e
		tr.uld.Type = e.ULDType
		tr.uld.Number = e.ULDNumber
	}
	return e, created, nil
}

// Forget drops a cached entry, e.g. after it was edited outside the tracker.
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

func (t *Tracker) loadLocked(ctx context.Context, id string) (*tracked, error) {
	if tr, ok := t.entries[id]; ok {
		return tr, nil
	}

	entry, err := t.store.GetULDEntry(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownULD, id)
		}
		return nil, fmt.Errorf("load entry: %w", err)
	}
	records, err := t.store.StatusHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	u := ULD{
		ID:      entry.ID,
		Type:    entry.ULDType,
		Number:  entry.ULDNumber,
		History: make([]Change, 0, len(records)),
	}
	for _, r := range records {
		u.History = append(u.History, Change{
			Status:    Status(r.Status),
			Reversal:  r.Reversal,
			ChangedBy: r.ChangedBy,
			ChangedAt: r.ChangedAt,
		})
	}
	u.Status = Replay(u.History)
	if len(records) == 0 {
		// Entries written directly by clients may carry a status with no history.
		u.Status = Status(entry.Status)
	}

	tr := &tracked{entry: *entry, uld: u}
	t.entries[id] = tr
	return tr, nil
}

func (u ULD) clone() ULD {
	u.History = append([]Change{}, u.History...)
	return u
}

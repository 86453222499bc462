package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the single-file Store used for local runs and tests.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
// An empty path or ":memory:" uses an in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Each in-memory connection is a separate database.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (d *SQLiteStore) Close() error {
	return d.db.Close()
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS load_plans (
		id TEXT PRIMARY KEY,
		flight_number TEXT NOT NULL,
		flight_date TEXT NOT NULL,
		raw_date TEXT NOT NULL DEFAULT '',
		aircraft_type TEXT NOT NULL DEFAULT '',
		aircraft_reg TEXT NOT NULL DEFAULT '',
		sector TEXT NOT NULL DEFAULT '',
		std TEXT NOT NULL DEFAULT '',
		prepared_by TEXT NOT NULL DEFAULT '',
		prepared_on TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (flight_number, flight_date)
	);

	CREATE TABLE IF NOT EXISTS load_plan_items (
		load_plan_id TEXT NOT NULL REFERENCES load_plans(id) ON DELETE CASCADE,
		sector_index INTEGER NOT NULL DEFAULT 0,
		serial_number TEXT NOT NULL,
		awb_number TEXT NOT NULL,
		origin TEXT NOT NULL DEFAULT '',
		destination TEXT NOT NULL DEFAULT '',
		pieces INTEGER NOT NULL DEFAULT 0,
		weight REAL NOT NULL DEFAULT 0,
		volume REAL NOT NULL DEFAULT 0,
		lvol REAL NOT NULL DEFAULT 0,
		shc TEXT NOT NULL DEFAULT '',
		man_desc TEXT NOT NULL DEFAULT '',
		pcode TEXT NOT NULL DEFAULT '',
		pc TEXT NOT NULL DEFAULT '',
		thc TEXT NOT NULL DEFAULT '',
		bs TEXT NOT NULL DEFAULT '',
		pi TEXT NOT NULL DEFAULT '',
		flt_in TEXT NOT NULL DEFAULT '',
		arr_dt_time TEXT NOT NULL DEFAULT '',
		qnn_aqnn TEXT NOT NULL DEFAULT '',
		whs TEXT NOT NULL DEFAULT '',
		si TEXT NOT NULL DEFAULT '',
		uld TEXT NOT NULL DEFAULT '',
		uld_section_index INTEGER NOT NULL DEFAULT 0,
		special_notes TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (load_plan_id, sector_index, serial_number)
	);

	CREATE TABLE IF NOT EXISTS uld_entries (
		id TEXT PRIMARY KEY,
		load_plan_id TEXT NOT NULL REFERENCES load_plans(id) ON DELETE CASCADE,
		sector_index INTEGER NOT NULL,
		uld_section_index INTEGER NOT NULL,
		entry_index INTEGER NOT NULL,
		uld_type TEXT NOT NULL DEFAULT '',
		uld_number TEXT NOT NULL DEFAULT '',
		status INTEGER NOT NULL DEFAULT 0,
		updated_by TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL,
		UNIQUE (load_plan_id, sector_index, uld_section_index, entry_index)
	);

	CREATE TABLE IF NOT EXISTS uld_status_history (
		id TEXT PRIMARY KEY,
		uld_entry_id TEXT NOT NULL REFERENCES uld_entries(id) ON DELETE CASCADE,
		status INTEGER NOT NULL,
		reversal INTEGER NOT NULL DEFAULT 0,
		changed_by TEXT NOT NULL DEFAULT '',
		changed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_entry ON uld_status_history(uld_entry_id);
	`
	_, err := db.Exec(schema)
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// SaveLoadPlan upserts the plan and replaces its items in one transaction.
func (d *SQLiteStore) SaveLoadPlan(ctx context.Context, lp *LoadPlan, items []LoadPlanItem) error {
	now := time.Now().UTC()
	if lp.ID == "" {
		lp.ID = uuid.NewString()
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id, createdAt string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO load_plans (id, flight_number, flight_date, raw_date, aircraft_type, aircraft_reg,
			sector, std, prepared_by, prepared_on, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (flight_number, flight_date) DO UPDATE SET
			raw_date = excluded.raw_date,
			aircraft_type = excluded.aircraft_type,
			aircraft_reg = excluded.aircraft_reg,
			sector = excluded.sector,
			std = excluded.std,
			prepared_by = excluded.prepared_by,
			prepared_on = excluded.prepared_on,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`, lp.ID, lp.FlightNumber, lp.FlightDate.Format(dateLayout), lp.RawDate, lp.AircraftType, lp.AircraftReg,
		lp.Sector, lp.STD, lp.PreparedBy, lp.PreparedOn, formatTime(now), formatTime(now)).Scan(&id, &createdAt)
	if err != nil {
		return fmt.Errorf("upsert load plan: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM load_plan_items WHERE load_plan_id = ?`, id); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO load_plan_items (load_plan_id, sector_index, serial_number, awb_number, origin, destination,
			pieces, weight, volume, lvol, shc, man_desc, pcode, pc, thc, bs, pi, flt_in, arr_dt_time,
			qnn_aqnn, whs, si, uld, uld_section_index, special_notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (load_plan_id, sector_index, serial_number) DO UPDATE SET
			awb_number = excluded.awb_number,
			pieces = excluded.pieces,
			weight = excluded.weight,
			uld = excluded.uld,
			uld_section_index = excluded.uld_section_index,
			special_notes = excluded.special_notes
	`)
	if err != nil {
		return fmt.Errorf("prepare items: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range items {
		it := &items[i]
		it.LoadPlanID = id
		notes, err := json.Marshal(nonNil(it.SpecialNotes))
		if err != nil {
			return fmt.Errorf("marshal notes: %w", err)
		}
		_, err = stmt.ExecContext(ctx, id, it.SectorIndex, it.SerialNumber, it.AWBNumber, it.Origin, it.Destination,
			it.Pieces, it.Weight, it.Volume, it.LVol, it.SHC, it.ManDesc, it.PCode, it.PC, it.THC, it.BS, it.PI,
			it.FltIn, it.ArrDtTime, it.QnnAqnn, it.WHS, it.SI, it.ULD, it.ULDSection, string(notes))
		if err != nil {
			return fmt.Errorf("insert item %s: %w", it.SerialNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	lp.ID = id
	lp.FlightDate = dateOnly(lp.FlightDate)
	lp.CreatedAt = parseTime(createdAt)
	lp.UpdatedAt = now
	return nil
}

const sqliteLoadPlanColumns = `id, flight_number, flight_date, raw_date, aircraft_type, aircraft_reg,
	sector, std, prepared_by, prepared_on, created_at, updated_at`

func scanSQLiteLoadPlan(row interface{ Scan(...any) error }) (*LoadPlan, error) {
	var lp LoadPlan
	var flightDate, createdAt, updatedAt string
	err := row.Scan(&lp.ID, &lp.FlightNumber, &flightDate, &lp.RawDate, &lp.AircraftType, &lp.AircraftReg,
		&lp.Sector, &lp.STD, &lp.PreparedBy, &lp.PreparedOn, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	lp.FlightDate, _ = time.Parse(dateLayout, flightDate)
	lp.CreatedAt = parseTime(createdAt)
	lp.UpdatedAt = parseTime(updatedAt)
	return &lp, nil
}

// GetLoadPlan retrieves a load plan by id.
func (d *SQLiteStore) GetLoadPlan(ctx context.Context, id string) (*LoadPlan, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+sqliteLoadPlanColumns+` FROM load_plans WHERE id = ?`, id)
	return scanSQLiteLoadPlan(row)
}

// FindLoadPlan retrieves a load plan by its natural key.
func (d *SQLiteStore) FindLoadPlan(ctx context.Context, flightNumber string, flightDate time.Time) (*LoadPlan, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+sqliteLoadPlanColumns+` FROM load_plans
		WHERE flight_number = ? AND flight_date = ?`, flightNumber, flightDate.Format(dateLayout))
	return scanSQLiteLoadPlan(row)
}

// ListLoadPlans returns all load plans, newest flight date first.
func (d *SQLiteStore) ListLoadPlans(ctx context.Context) ([]LoadPlan, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+sqliteLoadPlanColumns+` FROM load_plans
		ORDER BY flight_date DESC, flight_number`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	plans := []LoadPlan{}
	for rows.Next() {
		lp, err := scanSQLiteLoadPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *lp)
	}
	return plans, rows.Err()
}

// ListItems returns the items of a load plan in sector and serial order.
func (d *SQLiteStore) ListItems(ctx context.Context, loadPlanID string) ([]LoadPlanItem, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT load_plan_id, sector_index, serial_number, awb_number, origin, destination,
			pieces, weight, volume, lvol, shc, man_desc, pcode, pc, thc, bs, pi, flt_in, arr_dt_time,
			qnn_aqnn, whs, si, uld, uld_section_index, special_notes
		FROM load_plan_items WHERE load_plan_id = ?
		ORDER BY sector_index, serial_number
	`, loadPlanID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []LoadPlanItem{}
	for rows.Next() {
		var it LoadPlanItem
		var notes string
		err := rows.Scan(&it.LoadPlanID, &it.SectorIndex, &it.SerialNumber, &it.AWBNumber, &it.Origin, &it.Destination,
			&it.Pieces, &it.Weight, &it.Volume, &it.LVol, &it.SHC, &it.ManDesc, &it.PCode, &it.PC, &it.THC, &it.BS, &it.PI,
			&it.FltIn, &it.ArrDtTime, &it.QnnAqnn, &it.WHS, &it.SI, &it.ULD, &it.ULDSection, &notes)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(notes), &it.SpecialNotes); err != nil {
			return nil, fmt.Errorf("unmarshal notes for %s: %w", it.SerialNumber, err)
		}
		it.SpecialNotes = nonNil(it.SpecialNotes)
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpsertULDEntry inserts or updates a ULD entry by its composite key.
func (d *SQLiteStore) UpsertULDEntry(ctx context.Context, e *ULDEntry) error {
	if _, err := d.GetLoadPlan(ctx, e.LoadPlanID); err != nil {
		return fmt.Errorf("load plan %s: %w", e.LoadPlanID, err)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}

	var id string
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO uld_entries (id, load_plan_id, sector_index, uld_section_index, entry_index,
			uld_type, uld_number, status, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (load_plan_id, sector_index, uld_section_index, entry_index) DO UPDATE SET
			uld_type = excluded.uld_type,
			uld_number = excluded.uld_number,
			status = excluded.status,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at
		RETURNING id
	`, e.ID, e.LoadPlanID, e.SectorIndex, e.ULDSectionIndex, e.EntryIndex,
		e.ULDType, e.ULDNumber, e.Status, e.UpdatedBy, formatTime(e.UpdatedAt)).Scan(&id)
	if err != nil {
		return fmt.Errorf("upsert uld entry: %w", err)
	}
	e.ID = id
	return nil
}

const sqliteULDEntryColumns = `id, load_plan_id, sector_index, uld_section_index, entry_index,
	uld_type, uld_number, status, updated_by, updated_at`

func scanSQLiteULDEntry(row interface{ Scan(...any) error }) (*ULDEntry, error) {
	var e ULDEntry
	var updatedAt string
	err := row.Scan(&e.ID, &e.LoadPlanID, &e.SectorIndex, &e.ULDSectionIndex, &e.EntryIndex,
		&e.ULDType, &e.ULDNumber, &e.Status, &e.UpdatedBy, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

// GetULDEntry retrieves a ULD entry by id.
func (d *SQLiteStore) GetULDEntry(ctx context.Context, id string) (*ULDEntry, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+sqliteULDEntryColumns+` FROM uld_entries WHERE id = ?`, id)
	return scanSQLiteULDEntry(row)
}

// ListULDEntries returns the entries of a load plan in key order.
func (d *SQLiteStore) ListULDEntries(ctx context.Context, loadPlanID string) ([]ULDEntry, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+sqliteULDEntryColumns+` FROM uld_entries
		WHERE load_plan_id = ?
		ORDER BY sector_index, uld_section_index, entry_index`, loadPlanID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := []ULDEntry{}
	for rows.Next() {
		e, err := scanSQLiteULDEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// AppendStatusHistory appends one status change. History rows are never
// updated or deleted.
func (d *SQLiteStore) AppendStatusHistory(ctx context.Context, r StatusRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO uld_status_history (id, uld_entry_id, status, reversal, changed_by, changed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.ULDEntryID, r.Status, r.Reversal, r.ChangedBy, formatTime(r.ChangedAt))
	if err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

// StatusHistory returns the history of a ULD entry in append order.
func (d *SQLiteStore) StatusHistory(ctx context.Context, uldEntryID string) ([]StatusRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, uld_entry_id, status, reversal, changed_by, changed_at
		FROM uld_status_history WHERE uld_entry_id = ?
		ORDER BY rowid
	`, uldEntryID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	history := []StatusRecord{}
	for rows.Next() {
		var r StatusRecord
		var changedAt string
		if err := rows.Scan(&r.ID, &r.ULDEntryID, &r.Status, &r.Reversal, &r.ChangedBy, &changedAt); err != nil {
			return nil, err
		}
		r.ChangedAt = parseTime(changedAt)
		history = append(history, r)
	}
	return history, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// PostgresStore is the shared Store used by deployed services.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool.
func (d *PostgresStore) Close() error {
	d.pool.Close()
	return nil
}

// Pool returns the underlying pool for direct queries.
func (d *PostgresStore) Pool() *pgxpool.Pool {
	return d.pool
}

// CreateSchema creates the PostgreSQL tables.
func (d *PostgresStore) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS load_plans (
		id              UUID PRIMARY KEY,
		flight_number   TEXT NOT NULL,
		flight_date     DATE NOT NULL,
		raw_date        TEXT NOT NULL DEFAULT '',
		aircraft_type   TEXT NOT NULL DEFAULT '',
		aircraft_reg    TEXT NOT NULL DEFAULT '',
		sector          TEXT NOT NULL DEFAULT '',
		std             TEXT NOT NULL DEFAULT '',
		prepared_by     TEXT NOT NULL DEFAULT '',
		prepared_on     TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (flight_number, flight_date)
	);

	CREATE TABLE IF NOT EXISTS load_plan_items (
		load_plan_id    UUID NOT NULL REFERENCES load_plans(id) ON DELETE CASCADE,
		sector_index    INTEGER NOT NULL DEFAULT 0,
		serial_number   TEXT NOT NULL,
		awb_number      TEXT NOT NULL,
		origin          TEXT NOT NULL DEFAULT '',
		destination     TEXT NOT NULL DEFAULT '',
		pieces          INTEGER NOT NULL DEFAULT 0,
		weight          DOUBLE PRECISION NOT NULL DEFAULT 0,
		volume          DOUBLE PRECISION NOT NULL DEFAULT 0,
		lvol            DOUBLE PRECISION NOT NULL DEFAULT 0,
		shc             TEXT NOT NULL DEFAULT '',
		man_desc        TEXT NOT NULL DEFAULT '',
		pcode           TEXT NOT NULL DEFAULT '',
		pc              TEXT NOT NULL DEFAULT '',
		thc             TEXT NOT NULL DEFAULT '',
		bs              TEXT NOT NULL DEFAULT '',
		pi              TEXT NOT NULL DEFAULT '',
		flt_in          TEXT NOT NULL DEFAULT '',
		arr_dt_time     TEXT NOT NULL DEFAULT '',
		qnn_aqnn        TEXT NOT NULL DEFAULT '',
		whs             TEXT NOT NULL DEFAULT '',
		si              TEXT NOT NULL DEFAULT '',
		uld             TEXT NOT NULL DEFAULT '',
		uld_section_index INTEGER NOT NULL DEFAULT 0,
		special_notes   TEXT[] NOT NULL DEFAULT '{}',
		PRIMARY KEY (load_plan_id, sector_index, serial_number)
	);

	CREATE TABLE IF NOT EXISTS uld_entries (
		id                  UUID PRIMARY KEY,
		load_plan_id        UUID NOT NULL REFERENCES load_plans(id) ON DELETE CASCADE,
		sector_index        INTEGER NOT NULL,
		uld_section_index   INTEGER NOT NULL,
		entry_index         INTEGER NOT NULL,
		uld_type            TEXT NOT NULL DEFAULT '',
		uld_number          TEXT NOT NULL DEFAULT '',
		status              INTEGER NOT NULL DEFAULT 0,
		updated_by          TEXT NOT NULL DEFAULT '',
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (load_plan_id, sector_index, uld_section_index, entry_index)
	);

	CREATE TABLE IF NOT EXISTS uld_status_history (
		seq             BIGSERIAL PRIMARY KEY,
		id              UUID NOT NULL UNIQUE,
		uld_entry_id    UUID NOT NULL REFERENCES uld_entries(id) ON DELETE CASCADE,
		status          INTEGER NOT NULL,
		reversal        BOOLEAN NOT NULL DEFAULT FALSE,
		changed_by      TEXT NOT NULL DEFAULT '',
		changed_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_history_entry ON uld_status_history(uld_entry_id);
	`

	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveLoadPlan upserts the plan and replaces its items in one transaction.
func (d *PostgresStore) SaveLoadPlan(ctx context.Context, lp *LoadPlan, items []LoadPlanItem) error {
	if lp.ID == "" {
		lp.ID = uuid.NewString()
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO load_plans (id, flight_number, flight_date, raw_date, aircraft_type, aircraft_reg,
			sector, std, prepared_by, prepared_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (flight_number, flight_date) DO UPDATE SET
			raw_date = EXCLUDED.raw_date,
			aircraft_type = EXCLUDED.aircraft_type,
			aircraft_reg = EXCLUDED.aircraft_reg,
			sector = EXCLUDED.sector,
			std = EXCLUDED.std,
			prepared_by = EXCLUDED.prepared_by,
			prepared_on = EXCLUDED.prepared_on,
			updated_at = NOW()
		RETURNING id::text, created_at, updated_at
	`, lp.ID, lp.FlightNumber, dateOnly(lp.FlightDate), lp.RawDate, lp.AircraftType, lp.AircraftReg,
		lp.Sector, lp.STD, lp.PreparedBy, lp.PreparedOn).Scan(&lp.ID, &lp.CreatedAt, &lp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert load plan: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM load_plan_items WHERE load_plan_id = $1`, lp.ID); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range items {
		it := &items[i]
		it.LoadPlanID = lp.ID
		batch.Queue(`
			INSERT INTO load_plan_items (load_plan_id, sector_index, serial_number, awb_number, origin, destination,
				pieces, weight, volume, lvol, shc, man_desc, pcode, pc, thc, bs, pi, flt_in, arr_dt_time,
				qnn_aqnn, whs, si, uld, uld_section_index, special_notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
			ON CONFLICT (load_plan_id, sector_index, serial_number) DO UPDATE SET
				awb_number = EXCLUDED.awb_number,
				pieces = EXCLUDED.pieces,
				weight = EXCLUDED.weight,
				uld = EXCLUDED.uld,
				uld_section_index = EXCLUDED.uld_section_index,
				special_notes = EXCLUDED.special_notes
		`, lp.ID, it.SectorIndex, it.SerialNumber, it.AWBNumber, it.Origin, it.Destination,
			it.Pieces, it.Weight, it.Volume, it.LVol, it.SHC, it.ManDesc, it.PCode, it.PC, it.THC, it.BS, it.PI,
			it.FltIn, it.ArrDtTime, it.QnnAqnn, it.WHS, it.SI, it.ULD, it.ULDSection, nonNil(it.SpecialNotes))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const pgLoadPlanColumns = `id::text, flight_number, flight_date, raw_date, aircraft_type, aircraft_reg,
	sector, std, prepared_by, prepared_on, created_at, updated_at`

func scanPGLoadPlan(row pgx.Row) (*LoadPlan, error) {
	var lp LoadPlan
	err := row.Scan(&lp.ID, &lp.FlightNumber, &lp.FlightDate, &lp.RawDate, &lp.AircraftType, &lp.AircraftReg,
		&lp.Sector, &lp.STD, &lp.PreparedBy, &lp.PreparedOn, &lp.CreatedAt, &lp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lp, nil
}

// GetLoadPlan retrieves a load plan by id.
func (d *PostgresStore) GetLoadPlan(ctx context.Context, id string) (*LoadPlan, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrNotFound
	}
	return scanPGLoadPlan(d.pool.QueryRow(ctx, `SELECT `+pgLoadPlanColumns+` FROM load_plans WHERE id = $1`, id))
}

// FindLoadPlan retrieves a load plan by its natural key.
func (d *PostgresStore) FindLoadPlan(ctx context.Context, flightNumber string, flightDate time.Time) (*LoadPlan, error) {
	return scanPGLoadPlan(d.pool.QueryRow(ctx, `SELECT `+pgLoadPlanColumns+` FROM load_plans
		WHERE flight_number = $1 AND flight_date = $2`, flightNumber, dateOnly(flightDate)))
}

// ListLoadPlans returns all load plans, newest flight date first.
func (d *PostgresStore) ListLoadPlans(ctx context.Context) ([]LoadPlan, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+pgLoadPlanColumns+` FROM load_plans
		ORDER BY flight_date DESC, flight_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []LoadPlan{}
	for rows.Next() {
		lp, err := scanPGLoadPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *lp)
	}
	return plans, rows.Err()
}

// ListItems returns the items of a load plan in sector and serial order.
func (d *PostgresStore) ListItems(ctx context.Context, loadPlanID string) ([]LoadPlanItem, error) {
	if uuid.Validate(loadPlanID) != nil {
		return []LoadPlanItem{}, nil
	}
	rows, err := d.pool.Query(ctx, `
		SELECT load_plan_id::text, sector_index, serial_number, awb_number, origin, destination,
			pieces, weight, volume, lvol, shc, man_desc, pcode, pc, thc, bs, pi, flt_in, arr_dt_time,
			qnn_aqnn, whs, si, uld, uld_section_index, special_notes
		FROM load_plan_items WHERE load_plan_id = $1
		ORDER BY sector_index, serial_number
	`, loadPlanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []LoadPlanItem{}
	for rows.Next() {
		var it LoadPlanItem
		err := rows.Scan(&it.LoadPlanID, &it.SectorIndex, &it.SerialNumber, &it.AWBNumber, &it.Origin, &it.Destination,
			&it.Pieces, &it.Weight, &it.Volume, &it.LVol, &it.SHC, &it.ManDesc, &it.PCode, &it.PC, &it.THC, &it.BS, &it.PI,
			&it.FltIn, &it.ArrDtTime, &it.QnnAqnn, &it.WHS, &it.SI, &it.ULD, &it.ULDSection, &it.SpecialNotes)
		if err != nil {
			return nil, err
		}
		it.SpecialNotes = nonNil(it.SpecialNotes)
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpsertULDEntry inserts or updates a ULD entry by its composite key.
func (d *PostgresStore) UpsertULDEntry(ctx context.Context, e *ULDEntry) error {
	if _, err := d.GetLoadPlan(ctx, e.LoadPlanID); err != nil {
		return fmt.Errorf("load plan %s: %w", e.LoadPlanID, err)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}

	err := d.pool.QueryRow(ctx, `
		INSERT INTO uld_entries (id, load_plan_id, sector_index, uld_section_index, entry_index,
			uld_type, uld_number, status, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (load_plan_id, sector_index, uld_section_index, entry_index) DO UPDATE SET
			uld_type = EXCLUDED.uld_type,
			uld_number = EXCLUDED.uld_number,
			status = EXCLUDED.status,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
		RETURNING id::text
	`, e.ID, e.LoadPlanID, e.SectorIndex, e.ULDSectionIndex, e.EntryIndex,
		e.ULDType, e.ULDNumber, e.Status, e.UpdatedBy, e.UpdatedAt).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("upsert uld entry: %w", err)
	}
	return nil
}

const pgULDEntryColumns = `id::text, load_plan_id::text, sector_index, uld_section_index, entry_index,
	uld_type, uld_number, status, updated_by, updated_at`

func scanPGULDEntry(row pgx.Row) (*ULDEntry, error) {
	var e ULDEntry
	err := row.Scan(&e.ID, &e.LoadPlanID, &e.SectorIndex, &e.ULDSectionIndex, &e.EntryIndex,
		&e.ULDType, &e.ULDNumber, &e.Status, &e.UpdatedBy, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetULDEntry retrieves a ULD entry by id.
func (d *PostgresStore) GetULDEntry(ctx context.Context, id string) (*ULDEntry, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrNotFound
	}
	return scanPGULDEntry(d.pool.QueryRow(ctx, `SELECT `+pgULDEntryColumns+` FROM uld_entries WHERE id = $1`, id))
}

// ListULDEntries returns the entries of a load plan in key order.
func (d *PostgresStore) ListULDEntries(ctx context.Context, loadPlanID string) ([]ULDEntry, error) {
	if uuid.Validate(loadPlanID) != nil {
		return []ULDEntry{}, nil
	}
	rows, err := d.pool.Query(ctx, `SELECT `+pgULDEntryColumns+` FROM uld_entries
		WHERE load_plan_id = $1
		ORDER BY sector_index, uld_section_index, entry_index`, loadPlanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []ULDEntry{}
	for rows.Next() {
		e, err := scanPGULDEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// AppendStatusHistory appends one status change.
func (d *PostgresStore) AppendStatusHistory(ctx context.Context, r StatusRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := d.pool.Exec(ctx, `
		INSERT INTO uld_status_history (id, uld_entry_id, status, reversal, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.ULDEntryID, r.Status, r.Reversal, r.ChangedBy, r.ChangedAt)
	if err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

// StatusHistory returns the history of a ULD entry in append order.
func (d *PostgresStore) StatusHistory(ctx context.Context, uldEntryID string) ([]StatusRecord, error) {
	if uuid.Validate(uldEntryID) != nil {
		return []StatusRecord{}, nil
	}
	rows, err := d.pool.Query(ctx, `
		SELECT id::text, uld_entry_id::text, status, reversal, changed_by, changed_at
		FROM uld_status_history WHERE uld_entry_id = $1
		ORDER BY seq
	`, uldEntryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []StatusRecord{}
	for rows.Next() {
		var r StatusRecord
		if err := rows.Scan(&r.ID, &r.ULDEntryID, &r.Status, &r.Reversal, &r.ChangedBy, &r.ChangedAt); err != nil {
			return nil, err
		}
		history = append(history, r)
	}
	return history, rows.Err()
}

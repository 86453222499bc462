// Package storage persists load plans, their shipment items, ULD entries and
// the ULD status history.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// dateLayout is the storage form of a flight date.
const dateLayout = "2006-01-02"

// LoadPlan is one imported load plan, unique by flight number and date.
type LoadPlan struct {
	ID           string    `json:"id"`
	FlightNumber string    `json:"flight_number"`
	FlightDate   time.Time `json:"flight_date"`
	RawDate      string    `json:"raw_date"`
	AircraftType string    `json:"aircraft_type"`
	AircraftReg  string    `json:"aircraft_reg"`
	Sector       string    `json:"sector"`
	STD          string    `json:"std"`
	PreparedBy   string    `json:"prepared_by"`
	PreparedOn   string    `json:"prepared_on"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LoadPlanItem is one shipment row of a load plan.
type LoadPlanItem struct {
	LoadPlanID   string   `json:"load_plan_id"`
	SerialNumber string   `json:"serial_number"`
	AWBNumber    string   `json:"awb_number"`
	Origin       string   `json:"origin"`
	Destination  string   `json:"destination"`
	Pieces       int      `json:"pieces"`
	Weight       float64  `json:"weight"`
	Volume       float64  `json:"volume"`
	LVol         float64  `json:"lvol"`
	SHC          string   `json:"shc"`
	ManDesc      string   `json:"man_desc"`
	PCode        string   `json:"pcode"`
	PC           string   `json:"pc"`
	THC          string   `json:"thc"`
	BS           string   `json:"bs"`
	PI           string   `json:"pi"`
	FltIn        string   `json:"flt_in"`
	ArrDtTime    string   `json:"arr_dt_time"`
	QnnAqnn      string   `json:"qnn_aqnn"`
	WHS          string   `json:"whs"`
	SI           string   `json:"si"`
	ULD          string   `json:"uld"`
	SpecialNotes []string `json:"special_notes"`
	SectorIndex  int      `json:"sector_index"`
	ULDSection   int      `json:"uld_section_index"`
}

// ULDEntryKey is the composite key mobile clients upsert by.
type ULDEntryKey struct {
	LoadPlanID      string `json:"load_plan_id"`
	SectorIndex     int    `json:"sector_index"`
	ULDSectionIndex int    `json:"uld_section_index"`
	EntryIndex      int    `json:"entry_index"`
}

// ULDEntry is one physical unit declared by a ULD section.
type ULDEntry struct {
	ID string `json:"id"`
	ULDEntryKey
	ULDType   string    `json:"uld_type"`
	ULDNumber string    `json:"uld_number"`
	Status    int       `json:"status"`
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusRecord is one row of the append-only ULD status history.
type StatusRecord struct {
	ID         string    `json:"id"`
	ULDEntryID string    `json:"uld_entry_id"`
	Status     int       `json:"status"`
	Reversal   bool      `json:"reversal"`
	ChangedBy  string    `json:"changed_by"`
	ChangedAt  time.Time `json:"changed_at"`
}

// Store is implemented by the SQLite and PostgreSQL backends.
type Store interface {
	// SaveLoadPlan upserts the plan by flight number and date and replaces
	// its items. lp.ID is set to the stored id.
	SaveLoadPlan(ctx context.Context, lp *LoadPlan, items []LoadPlanItem) error
	GetLoadPlan(ctx context.Context, id string) (*LoadPlan, error)
	FindLoadPlan(ctx context.Context, flightNumber string, flightDate time.Time) (*LoadPlan, error)
	ListLoadPlans(ctx context.Context) ([]LoadPlan, error)
	ListItems(ctx context.Context, loadPlanID string) ([]LoadPlanItem, error)

	// UpsertULDEntry inserts or updates by ULDEntryKey. e.ID is set to the
	// stored id.
	UpsertULDEntry(ctx context.Context, e *ULDEntry) error
	GetULDEntry(ctx context.Context, id string) (*ULDEntry, error)
	ListULDEntries(ctx context.Context, loadPlanID string) ([]ULDEntry, error)

	AppendStatusHistory(ctx context.Context, r StatusRecord) error
	StatusHistory(ctx context.Context, uldEntryID string) ([]StatusRecord, error)

	Close() error
}

// Config selects and configures a Store backend.
type Config struct {
	Driver     string // sqlite or postgres
	SQLitePath string
	Postgres   PostgresConfig
}

// Open opens the configured backend and creates its schema.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "postgres":
		pg, err := OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pg.CreateSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		return pg, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// dateOnly truncates t to its calendar date in UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

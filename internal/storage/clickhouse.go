package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Addr     string // host:port
	Database string
	User     string
	Password string
}

// ReportRun is one generated report, recorded for analytics.
type ReportRun struct {
	ID           uuid.UUID
	GeneratedAt  time.Time
	FlightNumber string
	FlightDate   string
	Kind         string
	Format       string
	Shift        string
	Rows         uint32
	WeaponsRows  uint32
	TotalPieces  uint32
	TotalWeight  float64
}

// ReportAnalytics records report runs in ClickHouse.
type ReportAnalytics struct {
	conn driver.Conn
}

// Conn returns the underlying ClickHouse connection for direct queries.
func (a *ReportAnalytics) Conn() driver.Conn {
	return a.conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ReportAnalytics, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ReportAnalytics{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (a *ReportAnalytics) Close() error {
	return a.conn.Close()
}

// CreateSchema creates the report_runs table.
func (a *ReportAnalytics) CreateSchema(ctx context.Context) error {
	err := a.conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS report_runs (
			id              UUID,
			generated_at    DateTime64(3),
			flight_number   LowCardinality(String),
			flight_date     String,
			kind            LowCardinality(String),
			format          LowCardinality(String),
			shift           LowCardinality(String),
			rows            UInt32,
			weapons_rows    UInt32,
			total_pieces    UInt32,
			total_weight    Float64
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(generated_at)
		ORDER BY (kind, flight_number, generated_at)`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// RecordRuns stores report runs in one batch.
func (a *ReportAnalytics) RecordRuns(ctx context.Context, runs []ReportRun) error {
	if len(runs) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO report_runs (id, generated_at, flight_number, flight_date, kind, format, shift,
			rows, weapons_rows, total_pieces, total_weight)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range runs {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		err := batch.Append(r.ID, r.GeneratedAt, r.FlightNumber, r.FlightDate, r.Kind, r.Format, r.Shift,
			r.Rows, r.WeaponsRows, r.TotalPieces, r.TotalWeight)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// CountByKind returns report run counts grouped by kind.
func (a *ReportAnalytics) CountByKind(ctx context.Context) (map[string]uint64, error) {
	counts := make(map[string]uint64)
	rows, err := a.conn.Query(ctx, "SELECT kind, count() FROM report_runs GROUP BY kind")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count uint64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan count by kind: %w", err)
		}
		counts[kind] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate count by kind: %w", err)
	}
	return counts, nil
}

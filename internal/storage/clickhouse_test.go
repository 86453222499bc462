package storage

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestReportAnalytics(t *testing.T) {
	addr := os.Getenv("CLICKHOUSE_ADDR")
	if addr == "" {
		t.Skip("CLICKHOUSE_ADDR not set")
	}

	ctx := context.Background()
	a, err := OpenClickHouse(ctx, ClickHouseConfig{Addr: addr, Database: "default", User: "default"})
	if err != nil {
		t.Skipf("No ClickHouse connection available: %v", err)
	}
	defer func() { _ = a.Close() }()

	if err := a.CreateSchema(ctx); err != nil {
		t.Fatalf("CreateSchema() error = %v", err)
	}

	before, err := a.CountByKind(ctx)
	if err != nil {
		t.Fatalf("CountByKind() error = %v", err)
	}

	runs := []ReportRun{
		{GeneratedAt: time.Now(), FlightNumber: "EK0205", FlightDate: "2025-10-12", Kind: "vun", Format: "csv", Shift: "DAY", Rows: 5},
		{GeneratedAt: time.Now(), FlightNumber: "EK0205", FlightDate: "2025-10-12", Kind: "qrt", Format: "csv", Shift: "DAY", Rows: 2},
	}
	if err := a.RecordRuns(ctx, runs); err != nil {
		t.Fatalf("RecordRuns() error = %v", err)
	}

	after, err := a.CountByKind(ctx)
	if err != nil {
		t.Fatalf("CountByKind() error = %v", err)
	}
	if after["vun"] != before["vun"]+1 || after["qrt"] != before["qrt"]+1 {
		t.Errorf("counts before %v after %v", before, after)
	}
	if err := a.RecordRuns(ctx, nil); err != nil {
		t.Errorf("RecordRuns(nil) error = %v", err)
	}
}

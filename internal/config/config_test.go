package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no stray .env
	t.Setenv("LOADPLAN_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.StoreDriver != "sqlite" {
		t.Errorf("StoreDriver = %q, want sqlite", cfg.StoreDriver)
	}
	if cfg.DefaultCarrier != "EK" {
		t.Errorf("DefaultCarrier = %q, want EK", cfg.DefaultCarrier)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "loadplan.yaml")
	yml := "port: \"9090\"\nstore_driver: postgres\npostgres:\n  host: db.internal\n  port: 6543\ntimezone: UTC\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LOADPLAN_CONFIG", path)
	t.Setenv("POSTGRES_HOST", "override.internal")
	t.Setenv("READ_TIMEOUT", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090 from file", cfg.Port)
	}
	if cfg.StoreDriver != "postgres" {
		t.Errorf("StoreDriver = %q, want postgres", cfg.StoreDriver)
	}
	if cfg.Postgres.Host != "override.internal" {
		t.Errorf("Postgres.Host = %q, want env override", cfg.Postgres.Host)
	}
	if cfg.Postgres.Port != 6543 {
		t.Errorf("Postgres.Port = %d, want 6543", cfg.Postgres.Port)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.ReadTimeout)
	}
	if cfg.Location() != time.UTC {
		t.Errorf("Location() = %v, want UTC", cfg.Location())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad driver", mutate: func(c *Config) { c.StoreDriver = "mongo" }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStoreAndClickHouse(t *testing.T) {
	cfg := Default()
	cfg.Postgres.Host = "db.internal"

	store := cfg.Store()
	if store.Driver != "sqlite" || store.SQLitePath != "loadplan.db" || store.Postgres.Host != "db.internal" {
		t.Errorf("unexpected store config %+v", store)
	}

	if _, ok := cfg.ClickHouse(); ok {
		t.Error("ClickHouse() should be disabled without an address")
	}
	cfg.ClickHouseAddr = "ch:9000"
	ch, ok := cfg.ClickHouse()
	if !ok || ch.Addr != "ch:9000" || ch.Database != "loadplan" || ch.User != "default" {
		t.Errorf("unexpected clickhouse config %+v, ok=%v", ch, ok)
	}
}

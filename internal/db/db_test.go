package db

import (
	"context"
	"path/filepath"
	"testing"

	"FortuneBox/internal/config"
)

func TestOpenStoreSQLite(t *testing.T) {
	cfg := &config.Config{}
	cfg.DB.Driver = config.DriverSQLite
	cfg.DB.DSN = filepath.Join(t.TempDir(), "fb.db")

	st, err := OpenStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer st.Close()

	tiers, err := st.ListActiveTiers(context.Background())
	if err != nil {
		t.Fatalf("list tiers: %v", err)
	}
	if len(tiers) != 0 {
		t.Fatalf("unexpected tiers: got=%d want=0", len(tiers))
	}
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.DB.Driver = "oracle"
	if _, err := OpenStore(context.Background(), cfg); err == nil {
		t.Fatal("expected error")
	}
}

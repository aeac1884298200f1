package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
db:
  dsn: "postgres://localhost/fortunebox"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DB.Driver != DriverPostgres {
		t.Fatalf("unexpected driver: got=%q want=%q", cfg.DB.Driver, DriverPostgres)
	}
	if cfg.Orders.NumberPrefix != "FB" {
		t.Fatalf("unexpected prefix: got=%q want=%q", cfg.Orders.NumberPrefix, "FB")
	}
	if cfg.Orders.NumberDigits != 6 {
		t.Fatalf("unexpected digits: got=%d want=6", cfg.Orders.NumberDigits)
	}
	if cfg.Payments.SuccessRate != 0.95 {
		t.Fatalf("unexpected success rate: got=%v want=0.95", cfg.Payments.SuccessRate)
	}
	if cfg.Orders.DefaultListLimit != 50 || cfg.Orders.MaxListLimit != 200 {
		t.Fatalf("unexpected list limits: got=%d/%d want=50/200", cfg.Orders.DefaultListLimit, cfg.Orders.MaxListLimit)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
db:
  driver: postgres
  dsn: "postgres://localhost/fortunebox"
payments:
  success_rate: 0.5
`)
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "/tmp/fortunebox.db")
	t.Setenv("PAYMENT_SUCCESS_RATE", "1")
	t.Setenv("ORDER_NUMBER_DIGITS", "8")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("unexpected addr: got=%q want=%q", cfg.Server.Addr, ":9090")
	}
	if cfg.DB.Driver != DriverSQLite || cfg.DB.DSN != "/tmp/fortunebox.db" {
		t.Fatalf("unexpected db: got=%q/%q", cfg.DB.Driver, cfg.DB.DSN)
	}
	if cfg.Payments.SuccessRate != 1 {
		t.Fatalf("unexpected success rate: got=%v want=1", cfg.Payments.SuccessRate)
	}
	if cfg.Orders.NumberDigits != 8 {
		t.Fatalf("unexpected digits: got=%d want=8", cfg.Orders.NumberDigits)
	}
}

func TestLoadRequiresDSN(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "db.dsn") {
		t.Fatalf("expected db.dsn error, got %v", err)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
db:
  driver: oracle
  dsn: "x"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadBadEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
db:
  dsn: "x"
`)
	t.Setenv("ORDER_NUMBER_DIGITS", "many")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

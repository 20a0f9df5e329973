package config

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(map[string]string{"MASTER_SECRET": "x"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("expected default gin mode release, got %q", cfg.GinMode)
	}
	if cfg.TokenExpiry != 7*24*time.Hour {
		t.Fatalf("unexpected token expiry %v", cfg.TokenExpiry)
	}
	if cfg.Ledger.Backend != BackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.Ledger.Backend)
	}
	if cfg.Ledger.LeaseThreshold != 5000 || cfg.Ledger.LeaseExtendTo != 5000 {
		t.Fatalf("unexpected lease defaults: %+v", cfg.Ledger)
	}
	if cfg.Ledger.CloseInterval != 5*time.Second {
		t.Fatalf("unexpected close interval %v", cfg.Ledger.CloseInterval)
	}
	if cfg.Backup.Enabled() {
		t.Fatalf("expected backups disabled")
	}
}

func TestLoadConfigFromEnv_MissingSecret(t *testing.T) {
	_, err := LoadConfigFromEnv(map[string]string{})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadConfigFromEnv_PortOverride(t *testing.T) {
	cfg, err := LoadConfigFromEnv(map[string]string{"MASTER_SECRET": "x", "PORT": "1234"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 1234 {
		t.Fatalf("expected port 1234, got %d", cfg.Port)
	}
}

func TestLoadConfigFromEnv_InvalidPort(t *testing.T) {
	for _, raw := range []string{"abc", "0", "70000"} {
		if _, err := LoadConfigFromEnv(map[string]string{"MASTER_SECRET": "x", "PORT": raw}); err == nil {
			t.Fatalf("expected error for PORT=%q", raw)
		}
	}
}

func TestLoadConfigFromEnv_LedgerBackend(t *testing.T) {
	_, err := LoadConfigFromEnv(map[string]string{"MASTER_SECRET": "x", "LEDGER_BACKEND": "sqlite"})
	if err == nil {
		t.Fatalf("expected error without LEDGER_PATH")
	}

	cfg, err := LoadConfigFromEnv(map[string]string{
		"MASTER_SECRET":   "x",
		"LEDGER_BACKEND":  "sqlite",
		"LEDGER_PATH":     "/tmp/ledger.db",
		"LEASE_THRESHOLD": "100",
		"LEASE_EXTEND_TO": "200",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Ledger.LeaseThreshold != 100 || cfg.Ledger.LeaseExtendTo != 200 {
		t.Fatalf("unexpected lease config: %+v", cfg.Ledger)
	}

	if _, err := LoadConfigFromEnv(map[string]string{"MASTER_SECRET": "x", "LEDGER_BACKEND": "redis"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestLoadConfigFromEnv_Backup(t *testing.T) {
	cfg, err := LoadConfigFromEnv(map[string]string{
		"MASTER_SECRET":   "x",
		"BACKUP_BUCKET":   "snapshots",
		"BACKUP_INTERVAL": "30m",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !cfg.Backup.Enabled() {
		t.Fatalf("expected backups enabled")
	}
	if cfg.Backup.Interval != 30*time.Minute || cfg.Backup.Region != "auto" {
		t.Fatalf("unexpected backup config: %+v", cfg.Backup)
	}
}

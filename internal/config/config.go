package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type Config struct {
	Port               int    `env:"PORT" envDefault:"3000"`
	MasterSecret       string `env:"MASTER_SECRET"`
	GinMode            string `env:"GIN_MODE" envDefault:"release"`
	TLSCertFile        string `env:"TLS_CERT_FILE"`
	TLSKeyFile         string `env:"TLS_KEY_FILE"`
	TokenExpirySeconds int    `env:"TOKEN_EXPIRY_SECONDS" envDefault:"604800"`
	TokenExpiry        time.Duration

	Ledger LedgerConfig
	Backup BackupConfig
}

type LedgerConfig struct {
	Backend        string        `env:"LEDGER_BACKEND" envDefault:"memory"`
	Path           string        `env:"LEDGER_PATH"`
	CloseInterval  time.Duration `env:"LEDGER_CLOSE_INTERVAL" envDefault:"5s"`
	LeaseThreshold uint32        `env:"LEASE_THRESHOLD" envDefault:"5000"`
	LeaseExtendTo  uint32        `env:"LEASE_EXTEND_TO" envDefault:"5000"`
	SweepInterval  time.Duration `env:"LEDGER_SWEEP_INTERVAL" envDefault:"1m"`
}

// BackupConfig enables snapshot uploads when Bucket is set.
type BackupConfig struct {
	Bucket          string        `env:"BACKUP_BUCKET"`
	Endpoint        string        `env:"BACKUP_ENDPOINT"`
	Region          string        `env:"BACKUP_REGION" envDefault:"auto"`
	AccessKeyID     string        `env:"BACKUP_ACCESS_KEY_ID"`
	SecretAccessKey string        `env:"BACKUP_SECRET_ACCESS_KEY"`
	Interval        time.Duration `env:"BACKUP_INTERVAL" envDefault:"1h"`
}

func (b BackupConfig) Enabled() bool { return b.Bucket != "" }

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return validate(cfg)
}

// LoadConfigFromEnv reads only the given variables, ignoring the process
// environment.
func LoadConfigFromEnv(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return validate(cfg)
}

func validate(cfg Config) (Config, error) {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT")
	}
	if cfg.MasterSecret == "" {
		return Config{}, fmt.Errorf("MASTER_SECRET is required")
	}
	if cfg.TokenExpirySeconds <= 0 {
		return Config{}, fmt.Errorf("invalid TOKEN_EXPIRY_SECONDS")
	}
	cfg.TokenExpiry = time.Duration(cfg.TokenExpirySeconds) * time.Second

	switch cfg.Ledger.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if cfg.Ledger.Path == "" {
			return Config{}, fmt.Errorf("LEDGER_PATH is required for %s backend", cfg.Ledger.Backend)
		}
	default:
		return Config{}, fmt.Errorf("invalid LEDGER_BACKEND %q", cfg.Ledger.Backend)
	}
	if cfg.Ledger.CloseInterval <= 0 {
		return Config{}, fmt.Errorf("invalid LEDGER_CLOSE_INTERVAL")
	}
	if cfg.Ledger.LeaseExtendTo == 0 {
		return Config{}, fmt.Errorf("invalid LEASE_EXTEND_TO")
	}
	if cfg.Ledger.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("invalid LEDGER_SWEEP_INTERVAL")
	}

	if cfg.Backup.Enabled() && cfg.Backup.Interval <= 0 {
		return Config{}, fmt.Errorf("invalid BACKUP_INTERVAL")
	}
	return cfg, nil
}

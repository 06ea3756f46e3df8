package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=account_ledger_db;Username=postgres;Timeout=30;CommandTimeout=30"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseDSN   string `env:"DATABASE_DSN"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"account_ledger.db"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`

	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"30"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"20"`
	DBConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"15m"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogDev    bool   `env:"LOG_DEV" envDefault:"false"`

	MetricsAddr string `env:"METRICS_ADDR"`

	MaxConflictRetries   int    `env:"MAX_CONFLICT_RETRIES" envDefault:"5"`
	AccountNumberCountry string `env:"ACCOUNT_NUMBER_COUNTRY" envDefault:"DE"`

	// BloomExpectedAccounts of zero disables the account-number filter.
	BloomExpectedAccounts  uint    `env:"BLOOM_EXPECTED_ACCOUNTS" envDefault:"100000"`
	BloomFalsePositiveRate float64 `env:"BLOOM_FALSE_POSITIVE_RATE" envDefault:"0.01"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.AccountNumberCountry = strings.ToUpper(strings.TrimSpace(cfg.AccountNumberCountry))

	conn := strings.TrimSpace(cfg.DatabaseDSN)
	if conn == "" {
		conn = defaultConnectionString
	}
	cfg.DatabaseDSN = normalizeConnectionString(conn)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for the postgres driver"))
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of postgres, sqlite, memory", c.StoreDriver))
	}

	if c.DBMaxOpenConns < 0 || c.DBMaxIdleConns < 0 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS and DB_MAX_IDLE_CONNS must not be negative"))
	}
	if c.MaxConflictRetries < 0 {
		errs = append(errs, fmt.Errorf("MAX_CONFLICT_RETRIES must not be negative, got %d", c.MaxConflictRetries))
	}
	if !isCountryCode(c.AccountNumberCountry) {
		errs = append(errs, fmt.Errorf("ACCOUNT_NUMBER_COUNTRY %q must be two uppercase letters", c.AccountNumberCountry))
	}
	if c.BloomFalsePositiveRate <= 0 || c.BloomFalsePositiveRate >= 1 {
		errs = append(errs, fmt.Errorf("BLOOM_FALSE_POSITIVE_RATE must be between 0 and 1, got %v", c.BloomFalsePositiveRate))
	}

	return errors.Join(errs...)
}

func isCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, ch := range code {
		if ch < 'A' || ch > 'Z' {
			return false
		}
	}
	return true
}

// normalizeConnectionString rewrites ADO-style "Key=Value;..." strings into
// lib/pq keyword form. URLs and strings already in keyword form are returned
// unchanged.
func normalizeConnectionString(raw string) string {
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return raw
	}
	if !strings.Contains(raw, ";") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}

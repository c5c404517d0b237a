package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Ledger   LedgerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Backend         string
	Path            string
	PostgresDSN     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	BusyTimeout     time.Duration
}

// ServerConfig holds HTTP request layer settings
type ServerConfig struct {
	Addr           string
	MaxInflight    int
	RequestTimeout time.Duration
	RedisAddr      string
	IdempotencyTTL time.Duration
}

// LedgerConfig holds core behaviour switches and tooling settings
type LedgerConfig struct {
	// SerializeTransfers enables the legacy process-wide transfer lock.
	// Degraded mode: throughput drops to one transfer at a time.
	SerializeTransfers bool
	AuditInterval      time.Duration
	SeedFile           string
}

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

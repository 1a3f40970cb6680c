package models

import "time"

// Config represents the application configuration
type Config struct {
	Store    StoreConfig
	Database DatabaseConfig
	Server   ServerConfig
	Payments PaymentsConfig
	Formance FormanceConfig
	Events   EventsConfig
	Escrow   EscrowConfig
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Backend string // "sqlite" or "memory"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// PaymentsConfig configures the payment collaborator used to execute releases
type PaymentsConfig struct {
	Backend            string // "simulated" or "formance"
	Timeout            time.Duration
	BreakerFailures    int
	BreakerOpenTimeout time.Duration
}

// FormanceConfig holds Formance Stack connection settings
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// EventsConfig configures event fan-out
type EventsConfig struct {
	NatsURL        string
	SubjectPrefix  string
	MetricsEnabled bool
}

// EscrowConfig holds ledger behaviour settings
type EscrowConfig struct {
	SystemActor   string
	TemplatesFile string
}

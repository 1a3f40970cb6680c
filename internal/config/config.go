/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"propie-escrow-go/internal/models"
)

type durationSetting struct {
	key          string
	defaultValue time.Duration
	target       *time.Duration
}

// Load reads the configuration from the environment, applying defaults
func Load() (*models.Config, error) {
	cfg := &models.Config{
		Store: models.StoreConfig{
			Backend: strings.ToLower(getEnvString("STORE_BACKEND", "sqlite")),
		},
		Database: models.DatabaseConfig{
			Path:         getEnvString("DATABASE_PATH", "escrow.db"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		},
		Server: models.ServerConfig{
			Addr: getEnvString("HTTP_ADDR", ":8080"),
		},
		Payments: models.PaymentsConfig{
			Backend:         strings.ToLower(getEnvString("PAYMENT_BACKEND", "simulated")),
			BreakerFailures: getEnvInt("PAYMENT_BREAKER_FAILURES", 5),
		},
		Formance: models.FormanceConfig{
			StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
			ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:   getEnvString("FORMANCE_LEDGER", "propie-escrow"),
		},
		Events: models.EventsConfig{
			NatsURL:        getEnvString("NATS_URL", ""),
			SubjectPrefix:  getEnvString("NATS_SUBJECT_PREFIX", "propie.escrow"),
			MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		},
		Escrow: models.EscrowConfig{
			SystemActor:   getEnvString("ESCROW_SYSTEM_ACTOR", "system"),
			TemplatesFile: getEnvString("TEMPLATES_FILE", "escrow_templates.yaml"),
		},
	}

	durations := []durationSetting{
		{"DB_CONN_MAX_LIFETIME", 5 * time.Minute, &cfg.Database.ConnMaxLifetime},
		{"DB_CONN_MAX_IDLE_TIME", 30 * time.Second, &cfg.Database.ConnMaxIdleTime},
		{"DB_PING_TIMEOUT", 5 * time.Second, &cfg.Database.PingTimeout},
		{"HTTP_READ_TIMEOUT", 10 * time.Second, &cfg.Server.ReadTimeout},
		{"HTTP_WRITE_TIMEOUT", 30 * time.Second, &cfg.Server.WriteTimeout},
		{"HTTP_SHUTDOWN_TIMEOUT", 30 * time.Second, &cfg.Server.ShutdownTimeout},
		{"PAYMENT_TIMEOUT", 10 * time.Second, &cfg.Payments.Timeout},
		{"PAYMENT_BREAKER_OPEN_TIMEOUT", 30 * time.Second, &cfg.Payments.BreakerOpenTimeout},
	}
	for _, d := range durations {
		value, err := getEnvDuration(d.key, d.defaultValue)
		if err != nil {
			return nil, err
		}
		*d.target = value
	}

	switch cfg.Store.Backend {
	case "sqlite", "memory":
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: want sqlite or memory", cfg.Store.Backend)
	}

	switch cfg.Payments.Backend {
	case "simulated":
	case "formance":
		if cfg.Formance.StackURL == "" || cfg.Formance.ClientID == "" || cfg.Formance.ClientSecret == "" {
			return nil, fmt.Errorf("FORMANCE_STACK_URL, FORMANCE_CLIENT_ID and FORMANCE_CLIENT_SECRET are required when PAYMENT_BACKEND=formance")
		}
	default:
		return nil, fmt.Errorf("invalid PAYMENT_BACKEND %q: want simulated or formance", cfg.Payments.Backend)
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "escrow.db", cfg.Database.Path)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "simulated", cfg.Payments.Backend)
	assert.Equal(t, 10*time.Second, cfg.Payments.Timeout)
	assert.Equal(t, 5, cfg.Payments.BreakerFailures)
	assert.Equal(t, "propie-escrow", cfg.Formance.LedgerName)
	assert.Equal(t, "propie.escrow", cfg.Events.SubjectPrefix)
	assert.True(t, cfg.Events.MetricsEnabled)
	assert.Equal(t, "system", cfg.Escrow.SystemActor)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "MEMORY")
	t.Setenv("PAYMENT_BACKEND", "formance")
	t.Setenv("FORMANCE_STACK_URL", "https://stack.example.com")
	t.Setenv("FORMANCE_CLIENT_ID", "escrow-api")
	t.Setenv("FORMANCE_CLIENT_SECRET", "s3cret")
	t.Setenv("PAYMENT_TIMEOUT", "3s")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "formance", cfg.Payments.Backend)
	assert.Equal(t, 3*time.Second, cfg.Payments.Timeout)
	assert.False(t, cfg.Events.MetricsEnabled)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns, "unparsable ints fall back to the default")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad duration", map[string]string{"HTTP_READ_TIMEOUT": "soon"}},
		{"unknown store", map[string]string{"STORE_BACKEND": "postgres"}},
		{"unknown payments", map[string]string{"PAYMENT_BACKEND": "sepa"}},
		{"formance without credentials", map[string]string{"PAYMENT_BACKEND": "formance", "FORMANCE_STACK_URL": "https://stack.example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

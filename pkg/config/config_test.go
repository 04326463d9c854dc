package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 30*time.Second, cfg.Ledger.PaymentLockTTL)
	assert.Equal(t, 3, cfg.Ledger.OverdueSweepRetries)
	assert.Zero(t, cfg.Ledger.OverdueSweepInterval)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("MONGO_DATABASE", "ledger_test")
	t.Setenv("ENABLE_PAYMENT_LOCK", "true")
	t.Setenv("PAYMENT_LOCK_TTL", "5s")
	t.Setenv("OVERDUE_SWEEP_INTERVAL", "15m")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMongo, cfg.Store.Driver)
	assert.Equal(t, "ledger_test", cfg.Mongo.Database)
	assert.True(t, cfg.Ledger.PaymentLockEnabled)
	assert.Equal(t, 5*time.Second, cfg.Ledger.PaymentLockTTL)
	assert.Equal(t, 15*time.Minute, cfg.Ledger.OverdueSweepInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "firestore")

	_, err := Load()
	require.Error(t, err)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Hour, parseDuration("2h", time.Minute))
}

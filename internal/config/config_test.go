package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("AUTO_ASSIGN_DEFAULT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.False(t, cfg.Assignment.AutoAssignDefault)
	assert.Equal(t, 100, cfg.Notification.InboxLimit)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUTO_ASSIGN_DEFAULT", "true")
	t.Setenv("NOTIFY_INBOX_LIMIT", "5")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.App.Port)
	assert.True(t, cfg.Assignment.AutoAssignDefault)
	assert.Equal(t, 5, cfg.Notification.InboxLimit)
	assert.Zero(t, cfg.App.RequestTimeout())
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("AUTH_JWT_SECRET", "a-real-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.App.IsDevelopment())
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("POSTGRES_MAX_CONNS", "many")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.EqualValues(t, 10, cfg.Postgres.MaxConns)
	assert.True(t, cfg.Postgres.RunMigrations)
}

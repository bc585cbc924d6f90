package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "DB_HOST", "LIMIT_MULTIPLIER", "LIMIT_ROUNDING", "NOTIFY_ON_APPROVAL", "PORT", "AUTO_MIGRATE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(36), cfg.LimitMultiplier)
	assert.Equal(t, int64(100000), cfg.LimitRounding)
	assert.False(t, cfg.NotifyOnApproval)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, "8080", cfg.Port)
	assert.Contains(t, cfg.DatabaseURL(), "sslmode=disable")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LIMIT_MULTIPLIER", "24")
	t.Setenv("NOTIFY_ON_APPROVAL", "true")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(24), cfg.LimitMultiplier)
	assert.True(t, cfg.NotifyOnApproval)
	assert.Contains(t, cfg.DatabaseURL(), "@db.internal:5432/")
	assert.Contains(t, cfg.DatabaseURL(), "sslmode=require")
}

func TestDatabaseURL_PrefersDSN(t *testing.T) {
	cfg := &Config{DatabaseDSN: "postgres://u:p@h:1/db", DBHost: "ignored"}
	assert.Equal(t, "postgres://u:p@h:1/db", cfg.DatabaseURL())
}

func TestGetEnvInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	assert.Equal(t, 7, getEnvInt("SOME_INT", 7))
}

func TestNotificationsEnabled(t *testing.T) {
	cfg := &Config{NotifyOnApproval: true, SESSenderEmail: "loans@example.com"}
	assert.False(t, cfg.NotificationsEnabled())

	cfg.SESRecipientEmail = "ops@example.com"
	assert.True(t, cfg.NotificationsEnabled())

	cfg.NotifyOnApproval = false
	assert.False(t, cfg.NotificationsEnabled())
}

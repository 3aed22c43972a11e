package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "POSTGRES_DSN", "DISCORD_BOT_TOKEN", "DISCORD_APP_ID", "DISCORD_CLIENT_ID", "APP_URL", "APP_PORT", "ADMIN_PERMISSION_MASK", "ADMIN_USER_IDS", "DISCORD_CALLBACK_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Postgres.DSN)
	assert.Equal(t, "http://localhost:8080", cfg.App.URL)
	assert.Equal(t, "http://localhost:8080/auth/discord/callback", cfg.Discord.CallbackURL)
	assert.Equal(t, int64(0x8), cfg.Admin.PermissionMask)
	assert.True(t, cfg.Admin.OwnerIsAdmin)
	assert.Empty(t, cfg.Admin.UserIDs)
	assert.False(t, cfg.Discord.BotEnabled())
	assert.False(t, cfg.Discord.OAuthEnabled())
	assert.ElementsMatch(t, []string{"DISCORD_BOT_TOKEN", "DISCORD_APP_ID"}, cfg.Discord.MissingBotSettings())
	assert.Equal(t, 15*time.Second, cfg.Discord.LoginTimeout())
	assert.Equal(t, 10*time.Second, cfg.Discord.RegisterTimeout())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://legacy")
	t.Setenv("DATABASE_URL", "postgres://primary")
	t.Setenv("APP_URL", "https://desk.example.com/")
	t.Setenv("ADMIN_PERMISSION_MASK", "0x20")
	t.Setenv("ADMIN_USER_IDS", " 1, 2 ,,3")
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("DISCORD_APP_ID", "app")
	t.Setenv("SESSION_TTL_MINUTES", "90")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://primary", cfg.Postgres.DSN)
	assert.Equal(t, "https://desk.example.com", cfg.App.URL)
	assert.Equal(t, int64(0x20), cfg.Admin.PermissionMask)
	assert.Equal(t, []string{"1", "2", "3"}, cfg.Admin.UserIDs)
	assert.True(t, cfg.Discord.BotEnabled())
	assert.Equal(t, 90*time.Minute, cfg.Auth.SessionTTL())
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("REDIS_DB", "0")
	t.Setenv("ADMIN_PERMISSION_MASK", "admin")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_SessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("APP_ENV", "production")

	first, err := Load()
	require.NoError(t, err)
	second, err := Load()
	require.NoError(t, err)

	assert.True(t, first.Auth.SessionSecretGenerated)
	assert.Len(t, first.Auth.SessionSecret, 64)
	assert.NotEqual(t, first.Auth.SessionSecret, second.Auth.SessionSecret)

	t.Setenv("SESSION_SECRET", "configured-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "configured-secret", cfg.Auth.SessionSecret)
	assert.False(t, cfg.Auth.SessionSecretGenerated)
}

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/splitbook/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, 10, cfg.Query.MaxMembership)
	assert.Equal(t, 200, cfg.Query.ListLimit)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("QUERY_MAX_MEMBERSHIP", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("SPLITBOOK_USER", "alice")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Query.MaxMembership)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "alice", cfg.TUI.User)
	assert.Equal(t, "postgres://postgres:secret@db:5432/splitbook?sslmode=disable", cfg.ConnectionString())
}

func TestLoad_RejectsNonPositiveBounds(t *testing.T) {
	t.Setenv("QUERY_LIST_LIMIT", "0")

	_, err := config.Load()
	assert.Error(t, err)
}

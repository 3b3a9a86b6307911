package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("STATE_TABLE", "seafood-state")
	t.Setenv("PARAM_PREFIX", "/seafood")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "seafood-state", cfg.StateTable)
	require.Equal(t, "postgres", cfg.DBDriver)
	require.Equal(t, time.Hour, cfg.ContextTTL)
	require.Equal(t, 12, cfg.MaxContextItems)
	require.Equal(t, 1000, cfg.MaxMessageLength)
	require.Equal(t, 25*time.Second, cfg.ClassifyTimeout)
	require.Equal(t, 5*time.Minute, cfg.CatalogTTL)
	require.Equal(t, "prod", cfg.LogMode)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("STATE_TABLE", "t")
	t.Setenv("PARAM_PREFIX", "/p")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file:local.db")
	t.Setenv("CONTEXT_TTL", "30m")
	t.Setenv("MAX_CONTEXT_ITEMS", "6")
	t.Setenv("CLASSIFY_TIMEOUT", "not-a-duration")
	t.Setenv("MAX_MESSAGE_LENGTH", "abc")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.DBDriver)
	require.Equal(t, "file:local.db", cfg.DBDSN)
	require.Equal(t, 30*time.Minute, cfg.ContextTTL)
	require.Equal(t, 6, cfg.MaxContextItems)
	require.Equal(t, 25*time.Second, cfg.ClassifyTimeout)
	require.Equal(t, 1000, cfg.MaxMessageLength)
}

func TestFromEnv_MissingRequired(t *testing.T) {
	t.Setenv("STATE_TABLE", "")
	t.Setenv("PARAM_PREFIX", "")

	_, err := FromEnv()
	require.ErrorContains(t, err, "STATE_TABLE")
	require.ErrorContains(t, err, "PARAM_PREFIX")
}

package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PARLEY_DB", "")
	cfg, err := Load(true)
	require.NoError(t, err, "cli mode does not need a database")
	assert.Equal(t, DefaultAdminAddr, cfg.AdminAddr)

	_, err = Load(false)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PARLEY_DB", "/tmp/x.db")
	t.Setenv("PARLEY_ADDR", ":7000")
	t.Setenv("PARLEY_LOG_LEVEL", "debug")
	t.Setenv("PARLEY_SEND_BUFFER", "8")

	cfg, err := Load(false)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.DBFile)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 8, cfg.SendBuffer)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PARLEY_SEND_BUFFER", "0")
	_, err := Load(false)
	assert.Error(t, err)

	t.Setenv("PARLEY_SEND_BUFFER", "many")
	_, err = Load(false)
	assert.Error(t, err)

	t.Setenv("PARLEY_SEND_BUFFER", "4")
	t.Setenv("PARLEY_LOG_LEVEL", "loud")
	_, err = Load(false)
	assert.Error(t, err)
}

func TestLoadClient(t *testing.T) {
	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
	assert.Equal(t, 500*time.Millisecond, cfg.RequestTimeout)

	t.Setenv("PARLEY_REQUEST_TIMEOUT", "2s")
	t.Setenv("PARLEY_SERVER_URL", "wss://chat.example.com/")
	cfg, err = LoadClient()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)

	t.Setenv("PARLEY_SERVER_URL", "http://chat.example.com/")
	_, err = LoadClient()
	assert.Error(t, err)

	t.Setenv("PARLEY_SERVER_URL", DefaultServerURL)
	t.Setenv("PARLEY_REQUEST_TIMEOUT", "-1s")
	_, err = LoadClient()
	assert.Error(t, err)
}

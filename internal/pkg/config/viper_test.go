package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
app:
  name: shopauth
  server:
    max_goroutine: 50
    cors: "http://localhost:3000, https://shop.example.com,,"
modules:
  twofactor:
    enabled: true
    tolerance_steps: 1
    setup_ttl_minutes: 10
    attempt_window_seconds: 300
instrument:
  trace_sample_ratio: 0.25
mfa:
  secret: "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="
database:
  pool:
    max_conns: 20
`

func TestNewViperFromBytes(t *testing.T) {
	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "shopauth", cfg.GetString("app.name"))
	assert.Equal(t, 50, cfg.GetInt("app.server.max_goroutine"))
	assert.True(t, cfg.GetBool("modules.twofactor.enabled"))
	assert.Equal(t, int64(1), cfg.GetInt64("modules.twofactor.tolerance_steps"))
	assert.Equal(t, uint16(1), cfg.GetUint16("modules.twofactor.tolerance_steps"))
	assert.Equal(t, int32(20), cfg.GetInt32("database.pool.max_conns"))
	assert.Equal(t, 10*time.Minute, cfg.GetMinute("modules.twofactor.setup_ttl_minutes"))
	assert.Equal(t, 5*time.Minute, cfg.GetSecond("modules.twofactor.attempt_window_seconds"))
	assert.InDelta(t, 0.25, cfg.GetFloat64("instrument.trace_sample_ratio"), 1e-9)
	assert.Equal(t, []string{"http://localhost:3000", "https://shop.example.com"}, cfg.GetArray("app.server.cors"))
	assert.Len(t, cfg.GetBinary("mfa.secret"), 32)
	assert.NoError(t, cfg.Close())
}

func TestViper_MissingKeys(t *testing.T) {
	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	require.NoError(t, err)

	assert.Empty(t, cfg.GetString("nope"))
	assert.Zero(t, cfg.GetInt("nope"))
	assert.Empty(t, cfg.GetArray("nope"))
	assert.Nil(t, cfg.GetBinary("app.server.cors"))

	assert.True(t, cfg.IsSet("modules.twofactor.tolerance_steps"))
	assert.False(t, cfg.IsSet("modules.twofactor.max_attempts"))
}

func TestViper_EnvOverride(t *testing.T) {
	t.Setenv("SHOPAUTH_APP_NAME", "from-env")

	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.GetString("app.name"))
}

func TestNewViperFromBytes_Errors(t *testing.T) {
	_, err := NewViperFromBytes(" ", []byte(sample))
	assert.ErrorIs(t, err, ErrConfigTypeRequired)

	_, err = NewViperFromBytes("yaml", []byte("app: [unterminated"))
	assert.Error(t, err)
}

func TestNewViper(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(sample), 0o600))

	cfg, err := NewViper(file)
	require.NoError(t, err)
	assert.Equal(t, "shopauth", cfg.GetString("app.name"))

	_, err = NewViper(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	data := `
nick: tester
server: irc.example.net
port: 6697
use_tls: true
join_timeout: 3s
channels:
  - name: "#one"
  - name: "#two"
    key: secret
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tester", cfg.Nick)
	assert.Equal(t, "tester", cfg.Username, "username should follow the nick when unset")
	assert.Equal(t, "irc.example.net", cfg.Server)
	assert.Equal(t, 6697, cfg.Port)
	assert.True(t, cfg.UseTLS)
	assert.Equal(t, 3*time.Second, cfg.JoinTimeout)
	assert.Equal(t, 5*time.Second, cfg.OperationTimeout)
	require.Len(t, cfg.Channels, 2)
	assert.Equal(t, "#two", cfg.Channels[1].Name)
	assert.Equal(t, "secret", cfg.Channels[1].Key)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Nick, cfg.Nick)
	assert.Equal(t, def.Port, cfg.Port)
	assert.Equal(t, def.JoinTimeout, cfg.JoinTimeout)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("IRCMUC_NICK", "fromenv")
	t.Setenv("IRCMUC_PORT", "7000")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "fromenv", cfg.Nick)
	assert.Equal(t, 7000, cfg.Port)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Nick = ""
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Port = 70000
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.JoinTimeout = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Channels = []Channel{{Name: ""}}
	assert.Error(t, bad.Validate())
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
	assert.Equal(t, Default().OperationTimeout, cfg.OperationTimeout)

	assert.Error(t, WriteDefault(path), "existing files must not be overwritten")
}

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cryguy/raven/internal/imports"
	"github.com/cryguy/raven/internal/server"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := serverConfig(v)
	assert.Equal(t, server.DefaultConfig(), cfg)

	opts := hostOptions(v)
	assert.Equal(t, imports.BackendMemory, opts.Catalog.KVBackend)
	assert.Equal(t, ":memory:", opts.Catalog.DBPath)
	assert.Zero(t, opts.Config.ExecutionTimeout)
	assert.Positive(t, opts.Config.AwaitTimeout)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raven.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  read_timeout: 5s
engine:
  execution_timeout: 250ms
kv:
  backend: sqlite
  path: /tmp/kv.db
vars:
  GREETING: hello
`), 0o600))

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg := serverConfig(v)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, server.DefaultHost, cfg.Host)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)

	opts := hostOptions(v)
	assert.Equal(t, 250*time.Millisecond, opts.Config.ExecutionTimeout)
	assert.Equal(t, "sqlite", opts.Catalog.KVBackend)
	assert.Equal(t, "/tmp/kv.db", opts.Catalog.KVPath)
	assert.Equal(t, map[string]string{"greeting": "hello"}, opts.Catalog.Vars)
}

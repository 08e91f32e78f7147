package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
# service config
database:
  host: localhost
  port: 5433
  user: orders
  password: "secret"
  database: restaurant
  max_conns: 20

rabbitmq:
  host: mq.local
  user: guest
  password: guest

http:
  port: 8080
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, "restaurant", cfg.Database.Database)
	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "mq.local", cfg.Rabbit.Host)
	assert.Equal(t, 5672, cfg.Rabbit.Port)
	assert.Equal(t, "/", cfg.Rabbit.VHost)

	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoadIncomplete(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

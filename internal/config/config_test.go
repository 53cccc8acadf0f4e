package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrebq/todobox/auth/denylist"
	"github.com/andrebq/todobox/store"
)

func writeFile(t *testing.T, name, content string) string {
	file := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(file, []byte(content), 0600))
	return file
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 24*time.Hour, cfg.Token.TTL)
	assert.Equal(t, 6, cfg.Policy.MinPasswordLength)
	assert.Equal(t, store.Options{Driver: store.DriverSQLite, DSN: "todos.db"}, cfg.StoreOptions())
}

func TestLoadYAML(t *testing.T) {
	file := writeFile(t, "todobox.yaml", `
server:
  bind: 0.0.0.0:8080
  shutdown_timeout: 5s
log:
  format: json
database:
  driver: postgres
  dsn: postgres://todobox@localhost/todobox
token:
  ttl: 1h
denylist:
  driver: redis
  redis:
    addr: localhost:6379
    prefix: "test:"
policy:
  min_password_length: 0
`)
	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Bind)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, time.Minute, cfg.Server.ReadTimeout, "unset keys keep their defaults")
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, store.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Token.TTL)
	assert.Equal(t, 0, cfg.Policy.MinPasswordLength)

	dl := cfg.DenylistConfig()
	assert.Equal(t, denylist.DriverRedis, dl.Driver)
	assert.Equal(t, time.Hour, dl.TTL)
	require.NotNil(t, dl.Redis)
	assert.Equal(t, "localhost:6379", dl.Redis.Addr)
	assert.Equal(t, "test:", dl.Redis.Prefix)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "server: ["))
	assert.Error(t, err)

	for name, content := range map[string]string{
		"driver":   "database: {driver: mysql}",
		"dsn":      "database: {dsn: ''}",
		"ttl":      "token: {ttl: 0s}",
		"envvar":   "token: {secret_envvar: ''}",
		"denylist": "denylist: {driver: memcached}",
		"redis":    "denylist: {driver: redis}",
		"policy":   "policy: {min_password_length: -1}",
	} {
		_, err := Load(writeFile(t, name+".yaml", content))
		assert.Error(t, err, name)
	}
}

func TestLoadDotEnv(t *testing.T) {
	file := writeFile(t, ".env", "TODOBOX_CONFIG_TEST_VAR=from-dotenv\n")
	t.Setenv("TODOBOX_CONFIG_TEST_VAR", "")
	os.Unsetenv("TODOBOX_CONFIG_TEST_VAR")

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), file))
	assert.Equal(t, "from-dotenv", os.Getenv("TODOBOX_CONFIG_TEST_VAR"))

	t.Setenv("TODOBOX_CONFIG_TEST_VAR", "from-env")
	require.NoError(t, LoadDotEnv(file))
	assert.Equal(t, "from-env", os.Getenv("TODOBOX_CONFIG_TEST_VAR"), "existing variables win")
}

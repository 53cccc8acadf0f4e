package cmdflags

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/andrebq/todobox/internal/config"
	"github.com/andrebq/todobox/policy"
	"github.com/andrebq/todobox/store"
)

func run(t *testing.T, args ...string) (config.Config, error) {
	var cfg config.Config
	app := &cli.App{
		Name:  "test",
		Flags: Common(),
		Action: func(c *cli.Context) error {
			var err error
			cfg, err = Load(c)
			return err
		},
	}
	err := app.Run(append([]string{"test"}, args...))
	return cfg, err
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := run(t)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestFlagsOverrideFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "todobox.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
database:
  dsn: from-file.db
log:
  level: debug
`), 0600))

	cfg, err := run(t, "--config", file)
	require.NoError(t, err)
	assert.Equal(t, "from-file.db", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)

	cfg, err = run(t, "--config", file, "--db", "from-flag.db", "--secret-envvar-name", "OTHER_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-flag.db", cfg.Database.DSN)
	assert.Equal(t, store.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "OTHER_SECRET", cfg.Token.SecretEnvVar)
	assert.Equal(t, "debug", cfg.Log.Level, "flags not set keep the file value")
}

func TestInvalidFlag(t *testing.T) {
	_, err := run(t, "--db-driver", "mysql")
	assert.Error(t, err)
}

func TestSecret(t *testing.T) {
	cfg := config.Default()
	cfg.Token.SecretEnvVar = "TODOBOX_CMDFLAGS_TEST_SECRET"
	t.Setenv(cfg.Token.SecretEnvVar, "dG9kb2JveC10ZXN0cy1zZWNyZXQtMDEyMzQ1Njc4OWFiY2RlZg==")
	secret, err := Secret(cfg)
	require.NoError(t, err)
	assert.Equal(t, "todobox-tests-secret-0123456789abcdef", string(secret))
	assert.Empty(t, os.Getenv(cfg.Token.SecretEnvVar))
}

func TestPolicy(t *testing.T) {
	ctx := context.Background()
	checker, err := Policy(config.Policy{MinPasswordLength: 8})
	require.NoError(t, err)
	assert.Error(t, checker.Check(ctx, policy.Registration{Password: "1234567"}))
	assert.NoError(t, checker.Check(ctx, policy.Registration{Password: "12345678"}))

	script := filepath.Join(t.TempDir(), "policy.lua")
	require.NoError(t, os.WriteFile(script, []byte(`
function check(req)
	return req.username ~= "root", "Reserved username"
end`), 0600))
	checker, err = Policy(config.Policy{Script: script})
	require.NoError(t, err)
	assert.EqualError(t, checker.Check(ctx, policy.Registration{Username: "root"}), "Reserved username")
	assert.NoError(t, checker.Check(ctx, policy.Registration{Username: "bob"}))

	_, err = Policy(config.Policy{Script: filepath.Join(t.TempDir(), "missing.lua")})
	assert.Error(t, err)
}

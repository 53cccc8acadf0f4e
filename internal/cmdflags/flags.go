// Package cmdflags has the flags shared by every todobox command and
// merges them with the configuration file.
package cmdflags

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andrebq/todobox/auth"
	"github.com/andrebq/todobox/internal/config"
	"github.com/andrebq/todobox/internal/logutil"
	"github.com/andrebq/todobox/policy"
)

const (
	flagConfig       = "config"
	flagDBDriver     = "db-driver"
	flagDB           = "db"
	flagSecretEnvVar = "secret-envvar-name"
	flagLogLevel     = "log-level"
	flagLogFormat    = "log-format"
)

// Common returns the flags every command that touches the database
// accepts. Values set here win over the configuration file.
func Common() []cli.Flag {
	def := config.Default()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "Path to a YAML configuration file",
			EnvVars: []string{"TODOBOX_CONFIG"},
		},
		&cli.StringFlag{
			Name:    flagDBDriver,
			Usage:   "Database driver, sqlite3 or postgres",
			Value:   def.Database.Driver,
			EnvVars: []string{"TODOBOX_DB_DRIVER"},
		},
		&cli.StringFlag{
			Name:    flagDB,
			Aliases: []string{"d"},
			Usage:   "Path to the sqlite database or postgres connection url",
			Value:   def.Database.DSN,
			EnvVars: []string{"TODOBOX_DB"},
		},
		&cli.StringFlag{
			Name:  flagSecretEnvVar,
			Usage: "Name of the environment variable that holds the token secret. The secret itself should not be passed as an argument",
			Value: auth.SecretEnvVar,
		},
		&cli.StringFlag{
			Name:    flagLogLevel,
			Usage:   "Log level (debug, info, warn, error)",
			Value:   def.Log.Level,
			EnvVars: []string{"TODOBOX_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    flagLogFormat,
			Usage:   "Log format, console or json",
			Value:   def.Log.Format,
			EnvVars: []string{"TODOBOX_LOG_FORMAT"},
		},
	}
}

// Load reads the configuration file (if any) and applies every flag
// explicitly set by the user on top of it.
func Load(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return config.Config{}, err
	}
	override(c, flagDBDriver, &cfg.Database.Driver)
	override(c, flagDB, &cfg.Database.DSN)
	override(c, flagSecretEnvVar, &cfg.Token.SecretEnvVar)
	override(c, flagLogLevel, &cfg.Log.Level)
	override(c, flagLogFormat, &cfg.Log.Format)
	return cfg, cfg.Validate()
}

// Setup loads the configuration and returns a context carrying a logger
// built from it. The global logger is replaced as well.
func Setup(c *cli.Context) (context.Context, config.Config, error) {
	cfg, err := Load(c)
	if err != nil {
		return nil, config.Config{}, err
	}
	logger, err := logutil.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, config.Config{}, err
	}
	log.Logger = logger
	return logutil.WithLogger(c.Context, logger), cfg, nil
}

// Secret reads the token secret from the environment variable named in
// cfg, the variable is cleared afterwards.
func Secret(cfg config.Config) ([]byte, error) {
	return auth.SecretFromEnv(cfg.Token.SecretEnvVar, os.Getenv, os.Setenv)
}

// Policy builds the registration policy described by cfg, the same one
// is used by the api and by the accounts command.
func Policy(cfg config.Policy) (policy.Checker, error) {
	chain := policy.Chain{policy.MinLength(cfg.MinPasswordLength)}
	if cfg.Script == "" {
		return chain, nil
	}
	timeout := cfg.ScriptTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	script, err := policy.LoadLua(cfg.Script, timeout)
	if err != nil {
		return nil, err
	}
	return append(chain, script), nil
}

func override(c *cli.Context, name string, out *string) {
	if c.IsSet(name) {
		*out = c.String(name)
	}
}

// Package config holds every knob the todobox server understands.
//
// Values come from three layers, later layers win: Default(), an
// optional YAML file and command line flags (which urfave/cli also
// binds to TODOBOX_* environment variables). The token secret never
// lives here, only the name of the variable that carries it.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/andrebq/todobox/auth"
	"github.com/andrebq/todobox/auth/denylist"
	"github.com/andrebq/todobox/store"
)

type (
	Config struct {
		Server   Server   `yaml:"server"`
		Log      Log      `yaml:"log"`
		Database Database `yaml:"database"`
		Token    Token    `yaml:"token"`
		Denylist Denylist `yaml:"denylist"`
		Policy   Policy   `yaml:"policy"`
	}

	Server struct {
		Bind                string        `yaml:"bind"`
		ReadTimeout         time.Duration `yaml:"read_timeout"`
		WriteTimeout        time.Duration `yaml:"write_timeout"`
		ShutdownTimeout     time.Duration `yaml:"shutdown_timeout"`
		AllowAdminBootstrap bool          `yaml:"allow_admin_bootstrap"`
	}

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	}

	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	}

	Token struct {
		SecretEnvVar string        `yaml:"secret_envvar"`
		TTL          time.Duration `yaml:"ttl"`
	}

	Denylist struct {
		Driver string `yaml:"driver"`
		Redis  Redis  `yaml:"redis"`
	}

	Redis struct {
		Addr     string `yaml:"addr"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	}

	Policy struct {
		MinPasswordLength int           `yaml:"min_password_length"`
		Script            string        `yaml:"script"`
		ScriptTimeout     time.Duration `yaml:"script_timeout"`
	}
)

func Default() Config {
	return Config{
		Server: Server{
			Bind:            "localhost:5000",
			ReadTimeout:     time.Minute,
			WriteTimeout:    time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
		Database: Database{
			Driver: store.DriverSQLite,
			DSN:    "todos.db",
		},
		Token: Token{
			SecretEnvVar: auth.SecretEnvVar,
			TTL:          auth.DefaultTokenTTL,
		},
		Denylist: Denylist{
			Driver: denylist.DriverNone,
		},
		Policy: Policy{
			MinPasswordLength: 6,
			ScriptTimeout:     time.Second,
		},
	}
}

// LoadDotEnv reads environment variables from the given files (.env when
// none is given). Missing files are not an error, variables already set
// are not overwritten.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if errors.Is(err, os.ErrNotExist) {
			continue
		} else if err != nil {
			return fmt.Errorf("config: unable to load %v, cause %w", f, err)
		}
	}
	return nil
}

// Load returns Default() overwritten by whatever the YAML file at path
// sets. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: unable to read %v, cause %w", path, err)
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unable to parse %v, cause %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case store.DriverSQLite, store.DriverPostgres:
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("config: database dsn is required")
	}
	if c.Token.TTL <= 0 {
		return errors.New("config: token ttl must be positive")
	}
	if c.Token.SecretEnvVar == "" {
		return errors.New("config: token secret envvar name is required")
	}
	switch c.Denylist.Driver {
	case "", denylist.DriverNone, denylist.DriverMemory:
	case denylist.DriverRedis:
		if c.Denylist.Redis.Addr == "" {
			return errors.New("config: redis denylist requires an address")
		}
	default:
		return fmt.Errorf("config: unsupported denylist driver %q", c.Denylist.Driver)
	}
	if c.Policy.MinPasswordLength < 0 {
		return errors.New("config: min password length cannot be negative")
	}
	return nil
}

func (c Config) StoreOptions() store.Options {
	return store.Options{Driver: c.Database.Driver, DSN: c.Database.DSN}
}

// DenylistConfig maps the file layout into what denylist.New expects,
// revocations live as long as the tokens they revoke.
func (c Config) DenylistConfig() denylist.Config {
	cfg := denylist.Config{
		Driver: c.Denylist.Driver,
		TTL:    c.Token.TTL,
	}
	if c.Denylist.Driver == denylist.DriverRedis {
		cfg.Redis = &denylist.RedisConfig{
			Addr:     c.Denylist.Redis.Addr,
			Username: c.Denylist.Redis.Username,
			Password: c.Denylist.Redis.Password,
			DB:       c.Denylist.Redis.DB,
			Prefix:   c.Denylist.Redis.Prefix,
		}
	}
	return cfg
}

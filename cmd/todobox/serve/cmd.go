package serve

import (
	"github.com/urfave/cli/v2"

	"github.com/andrebq/todobox/api"
	"github.com/andrebq/todobox/auth"
	"github.com/andrebq/todobox/auth/denylist"
	"github.com/andrebq/todobox/internal/cmdflags"
	"github.com/andrebq/todobox/internal/config"
	"github.com/andrebq/todobox/internal/httpserver"
	"github.com/andrebq/todobox/internal/logutil"
	"github.com/andrebq/todobox/store"
)

func Cmd() *cli.Command {
	def := config.Default()
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the todobox api",
		Flags: append(cmdflags.Common(),
			&cli.StringFlag{
				Name:    "bind",
				Usage:   "Address to bind the api",
				Value:   def.Server.Bind,
				EnvVars: []string{"TODOBOX_BIND"},
			},
			&cli.DurationFlag{
				Name:  "token-ttl",
				Usage: "How long issued tokens remain valid",
				Value: def.Token.TTL,
			},
			&cli.StringFlag{
				Name:  "denylist",
				Usage: "Where revoked tokens are kept: none, memory or redis. Logout is only available when this is not none",
				Value: def.Denylist.Driver,
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address used by the redis denylist",
				EnvVars: []string{"TODOBOX_REDIS_ADDR"},
			},
			&cli.IntFlag{
				Name:  "min-password-length",
				Usage: "Minimum password length for new accounts, 0 disables the check",
				Value: def.Policy.MinPasswordLength,
			},
			&cli.StringFlag{
				Name:  "policy-script",
				Usage: "Lua script with a check(req) function called on every registration",
			},
			&cli.BoolFlag{
				Name:  "allow-admin-bootstrap",
				Usage: "Enable POST /api/create-admin, do not leave this on in production",
			},
		),
		Action: func(c *cli.Context) error {
			ctx, cfg, err := cmdflags.Setup(c)
			if err != nil {
				return err
			}
			applyFlags(c, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := logutil.GetOrDefault(ctx)

			secret, err := cmdflags.Secret(cfg)
			if err != nil {
				return err
			}
			codec, err := auth.NewCodec(secret, auth.WithTTL(cfg.Token.TTL))
			if err != nil {
				return err
			}

			db, err := store.Open(ctx, cfg.StoreOptions())
			if err != nil {
				return err
			}
			defer db.Close()

			dl, err := denylist.New(ctx, cfg.DenylistConfig())
			if err != nil {
				return err
			}
			if dl != nil {
				defer dl.Close()
			}

			checker, err := cmdflags.Policy(cfg.Policy)
			if err != nil {
				return err
			}

			if cfg.Server.AllowAdminBootstrap {
				log.Warn().Msg("Admin bootstrap endpoint is enabled")
			}
			handler, err := api.AsHandler(ctx, api.Options{
				Store:               db,
				Codec:               codec,
				Denylist:            dl,
				Policy:              checker,
				AllowAdminBootstrap: cfg.Server.AllowAdminBootstrap,
			})
			if err != nil {
				return err
			}
			log.Info().
				Str("database", cfg.Database.Driver).
				Str("denylist", cfg.Denylist.Driver).
				Dur("token_ttl", cfg.Token.TTL).
				Msg("Todobox ready")
			return httpserver.Serve(ctx, cfg.Server.Bind, handler, httpserver.Options{
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			})
		},
	}
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("bind") {
		cfg.Server.Bind = c.String("bind")
	}
	if c.IsSet("token-ttl") {
		cfg.Token.TTL = c.Duration("token-ttl")
	}
	if c.IsSet("denylist") {
		cfg.Denylist.Driver = c.String("denylist")
	}
	if c.IsSet("redis-addr") {
		cfg.Denylist.Redis.Addr = c.String("redis-addr")
	}
	if c.IsSet("min-password-length") {
		cfg.Policy.MinPasswordLength = c.Int("min-password-length")
	}
	if c.IsSet("policy-script") {
		cfg.Policy.Script = c.String("policy-script")
	}
	if c.IsSet("allow-admin-bootstrap") {
		cfg.Server.AllowAdminBootstrap = c.Bool("allow-admin-bootstrap")
	}
}

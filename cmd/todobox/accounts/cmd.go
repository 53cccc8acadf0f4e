package accounts

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/urfave/cli/v2"

	"github.com/andrebq/todobox/auth"
	"github.com/andrebq/todobox/internal/cmdflags"
	"github.com/andrebq/todobox/internal/config"
	"github.com/andrebq/todobox/internal/logutil"
	"github.com/andrebq/todobox/policy"
	"github.com/andrebq/todobox/store"
)

func Cmd() *cli.Command {
	var db *store.DB
	var checker policy.Checker
	return &cli.Command{
		Name:  "accounts",
		Usage: "Manage todobox accounts directly in the database",
		Flags: cmdflags.Common(),
		Before: func(c *cli.Context) error {
			var ctx context.Context
			var err error
			var cfg config.Config
			ctx, cfg, err = cmdflags.Setup(c)
			if err != nil {
				return err
			}
			c.Context = ctx
			checker, err = cmdflags.Policy(cfg.Policy)
			if err != nil {
				return err
			}
			db, err = store.Open(ctx, cfg.StoreOptions())
			return err
		},
		After: func(c *cli.Context) error {
			if db == nil {
				return nil
			}
			return db.Close()
		},
		Subcommands: []*cli.Command{
			registerCmd(&db, &checker),
			adminCmd(&db, "promote", "Grant admin privileges to an account", true),
			adminCmd(&db, "demote", "Revoke admin privileges from an account, tokens already issued stop working on admin routes right away", false),
			passwdCmd(&db, &checker),
			listCmd(&db),
		},
	}
}

func usernameFlag(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "username",
		Aliases:     []string{"u", "user"},
		Usage:       "Name of the account",
		Destination: out,
		Required:    true,
	}
}

func registerCmd(db **store.DB, checker *policy.Checker) *cli.Command {
	var username, email string
	var admin bool
	return &cli.Command{
		Name:  "register",
		Usage: "Register a new account (password is read from the terminal or stdin)",
		Flags: []cli.Flag{
			usernameFlag(&username),
			&cli.StringFlag{
				Name:        "email",
				Aliases:     []string{"e"},
				Usage:       "Email used to login",
				Destination: &email,
				Required:    true,
			},
			&cli.BoolFlag{
				Name:        "admin",
				Usage:       "Create the account with admin privileges",
				Destination: &admin,
			},
		},
		Action: func(c *cli.Context) error {
			if utf8.RuneCountInString(username) > store.MaxUsername || utf8.RuneCountInString(email) > store.MaxEmail {
				return fmt.Errorf("username is limited to %v characters and email to %v", store.MaxUsername, store.MaxEmail)
			}
			password, err := readPassword(c.App.Reader, c.App.ErrWriter, "Password: ")
			if err != nil {
				return err
			}
			err = (*checker).Check(c.Context, policy.Registration{
				Username: username,
				Email:    email,
				Password: password,
			})
			if err != nil {
				return err
			}
			digest, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			acc := store.Account{
				Username:     username,
				Email:        email,
				PasswordHash: digest,
				IsAdmin:      admin,
			}
			err = (*db).CreateAccount(c.Context, &acc)
			var conflict store.Conflict
			if errors.As(err, &conflict) && conflict.Field != "" {
				return fmt.Errorf("%v already registered", conflict.Field)
			} else if err != nil {
				return err
			}
			log := logutil.GetOrDefault(c.Context)
			log.Info().Int64("account", acc.ID).Str("username", acc.Username).Bool("admin", acc.IsAdmin).Msg("Account registered")
			return nil
		},
	}
}

func adminCmd(db **store.DB, name, usage string, admin bool) *cli.Command {
	var username string
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{
			usernameFlag(&username),
		},
		Action: func(c *cli.Context) error {
			acc, err := (*db).FindAccountByUsername(c.Context, username)
			if err != nil {
				return err
			}
			if err := (*db).SetAdmin(c.Context, acc.ID, admin); err != nil {
				return err
			}
			log := logutil.GetOrDefault(c.Context)
			log.Info().Int64("account", acc.ID).Bool("admin", admin).Msg("Admin flag updated")
			return nil
		},
	}
}

func passwdCmd(db **store.DB, checker *policy.Checker) *cli.Command {
	var username string
	return &cli.Command{
		Name:  "passwd",
		Usage: "Change the password of an account (password is read from the terminal or stdin)",
		Flags: []cli.Flag{
			usernameFlag(&username),
		},
		Action: func(c *cli.Context) error {
			acc, err := (*db).FindAccountByUsername(c.Context, username)
			if err != nil {
				return err
			}
			password, err := readPassword(c.App.Reader, c.App.ErrWriter, "New password: ")
			if err != nil {
				return err
			}
			err = (*checker).Check(c.Context, policy.Registration{
				Username: acc.Username,
				Email:    acc.Email,
				Password: password,
			})
			if err != nil {
				return err
			}
			digest, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			return (*db).SetPasswordHash(c.Context, acc.ID, digest)
		},
	}
}

func listCmd(db **store.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List every account with its todo count",
		Action: func(c *cli.Context) error {
			accounts, err := (*db).ListAccountStats(c.Context)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tADMIN\tTODOS\tCREATED")
			for _, a := range accounts {
				fmt.Fprintf(tw, "%v\t%v\t%v\t%v\t%v\t%v\n", a.ID, a.Username, a.Email, a.IsAdmin, a.TodoCount, a.CreatedAt.Format("2006-01-02"))
			}
			return tw.Flush()
		},
	}
}

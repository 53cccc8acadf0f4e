package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andrebq/todobox/cmd/todobox/accounts"
	"github.com/andrebq/todobox/cmd/todobox/keygen"
	"github.com/andrebq/todobox/cmd/todobox/serve"
	"github.com/andrebq/todobox/internal/config"
)

func main() {
	app := &cli.App{
		Name:  "todobox",
		Usage: "Todo lists for everyone, with accounts and an admin panel",
		Before: func(*cli.Context) error {
			return config.LoadDotEnv()
		},
		Commands: []*cli.Command{
			serve.Cmd(),
			accounts.Cmd(),
			keygen.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
		os.Exit(1)
	}
}

package keygen

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/andrebq/todobox/auth"
)

func Cmd() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Print a new random token secret, ready to be exported as " + auth.SecretEnvVar,
		Action: func(c *cli.Context) error {
			secret, err := auth.GenerateSecret()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, secret)
			return err
		},
	}
}

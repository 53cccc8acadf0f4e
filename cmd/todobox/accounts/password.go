package accounts

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword prompts on out and reads the password without echo when
// in is a terminal, otherwise the first line of in is used.
func readPassword(in io.Reader, out io.Writer, prompt string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, prompt)
		buf, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return checkPassword(string(buf))
	}
	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errors.New("missing password from stdin")
	}
	return checkPassword(sc.Text())
}

func checkPassword(p string) (string, error) {
	p = strings.TrimRight(p, "\r\n")
	if len(strings.TrimSpace(p)) == 0 {
		return "", errors.New("password cannot be empty")
	}
	return p, nil
}

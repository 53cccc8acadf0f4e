package accounts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/andrebq/todobox/auth"
	"github.com/andrebq/todobox/store"
)

func runAccounts(t *testing.T, stdin string, args ...string) (string, error) {
	var out bytes.Buffer
	app := &cli.App{
		Name:      "todobox",
		Reader:    strings.NewReader(stdin),
		Writer:    &out,
		ErrWriter: &bytes.Buffer{},
		Commands:  []*cli.Command{Cmd()},
	}
	err := app.Run(append([]string{"todobox", "accounts"}, args...))
	return out.String(), err
}

func TestAccountsCommands(t *testing.T) {
	if testing.Short() {
		t.Skip("uses the default argon2 parameters")
	}
	dbPath := filepath.Join(t.TempDir(), "todobox.db")
	common := []string{"--db", dbPath, "--log-level", "warn"}

	_, err := runAccounts(t, "bob-password\n", append(common, "register", "--username", "bob", "--email", "bob@example.com")...)
	require.NoError(t, err)

	_, err = runAccounts(t, "other-password\n", append(common, "register", "--username", "bob2", "--email", "bob@example.com")...)
	assert.Error(t, err, "email already registered")

	_, err = runAccounts(t, "123\n", append(common, "register", "--username", "ana", "--email", "ana@example.com")...)
	assert.Error(t, err, "password too short")

	_, err = runAccounts(t, "", append(common, "promote", "--username", "bob")...)
	require.NoError(t, err)

	_, err = runAccounts(t, "brand-new-password\n", append(common, "passwd", "--username", "bob")...)
	require.NoError(t, err)

	out, err := runAccounts(t, "", append(common, "list")...)
	require.NoError(t, err)
	assert.Contains(t, out, "bob@example.com")
	assert.NotContains(t, out, "ana@example.com")

	ctx := context.Background()
	db, err := store.Open(ctx, store.Options{Driver: store.DriverSQLite, DSN: dbPath})
	require.NoError(t, err)
	defer db.Close()
	bob, err := db.FindAccountByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, bob.IsAdmin)
	assert.True(t, auth.VerifyPassword(bob.PasswordHash, "brand-new-password"))

	_, err = runAccounts(t, "", append(common, "demote", "--username", "bob")...)
	require.NoError(t, err)
	bob, err = db.FindAccountByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, bob.IsAdmin)
}

func TestRegisterUsesPolicyScript(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "policy.lua")
	require.NoError(t, os.WriteFile(script, []byte(`
function check(req)
	if req.username == "root" then
		return { allow = false, reason = "Reserved username" }
	end
	return { allow = true }
end`), 0600))
	cfgFile := filepath.Join(dir, "todobox.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(fmt.Sprintf("policy:\n  script: %q\n", script)), 0600))
	dbPath := filepath.Join(dir, "todobox.db")
	common := []string{"--config", cfgFile, "--db", dbPath, "--log-level", "warn"}

	_, err := runAccounts(t, "root-password\n", append(common, "register", "--username", "root", "--email", "root@example.com")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Reserved username")

	_, err = runAccounts(t, "bob-password\n", append(common, "register", "--username", strings.Repeat("b", 81), "--email", "bob@example.com")...)
	assert.Error(t, err)

	ctx := context.Background()
	db, err := store.Open(ctx, store.Options{Driver: store.DriverSQLite, DSN: dbPath})
	require.NoError(t, err)
	defer db.Close()
	accounts, err := db.ListAccountStats(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestReadPassword(t *testing.T) {
	p, err := readPassword(strings.NewReader("s3cret\r\nignored\n"), &bytes.Buffer{}, "")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", p)

	_, err = readPassword(strings.NewReader(""), &bytes.Buffer{}, "")
	assert.Error(t, err)

	_, err = readPassword(strings.NewReader("   \n"), &bytes.Buffer{}, "")
	assert.Error(t, err)
}

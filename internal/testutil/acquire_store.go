package testutil

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/andrebq/todobox/auth"
	"github.com/andrebq/todobox/store"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}
)

var (
	// FastHasher uses the smallest argon2id cost possible, do not use it
	// outside tests.
	FastHasher = auth.NewHasher(auth.Params{Memory: 64, Passes: 1, Lanes: 1, SaltLen: 16, KeyLen: 32})

	// Secret is a fixed token secret for tests
	Secret = []byte("todobox-tests-secret-0123456789abcdef")
)

// AcquireStore opens an empty sqlite database in a temporary directory
func AcquireStore(ctx context.Context, t TestLog, name string) (*store.DB, func()) {
	dir, err := ioutil.TempDir("", "todobox-tests")
	if err != nil {
		t.Fatal(err)
	}
	db, err := store.Open(ctx, store.Options{
		Driver: store.DriverSQLite,
		DSN:    filepath.Join(dir, name, "todobox.db"),
	})
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}
	return db, func() {
		err := db.Close()
		if err != nil {
			t.Log("unable to close store", err)
		}
		err = os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}

// CreateAccount registers an account whose password is the username
// followed by "-password".
func CreateAccount(ctx context.Context, t TestLog, db *store.DB, username string, admin bool) store.Account {
	digest, err := FastHasher.Hash(username + "-password")
	if err != nil {
		t.Fatal(err)
	}
	acc := store.Account{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: digest,
		IsAdmin:      admin,
	}
	err = db.CreateAccount(ctx, &acc)
	if err != nil {
		t.Fatal(err)
	}
	return acc
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

type (
	Account struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		// PasswordHash is never sent to clients
		PasswordHash string    `json:"-"`
		IsAdmin      bool      `json:"is_admin"`
		CreatedAt    time.Time `json:"created_at"`
	}

	AccountStats struct {
		Account
		TodoCount int64 `json:"todo_count"`
	}
)

const (
	// MaxUsername and MaxEmail match the column sizes of the postgres schema
	MaxUsername = 80
	MaxEmail    = 120

	accountColumns = `id, username, email, password_hash, is_admin, created_at`
)

// CreateAccount inserts a new account and updates acc.ID and
// acc.CreatedAt. Duplicated usernames or emails result in a Conflict.
func (d *DB) CreateAccount(ctx context.Context, acc *Account) error {
	createdAt := time.Now().UTC().Truncate(time.Second)
	err := d.db.QueryRowContext(ctx, d.rebind(`insert into users (username, email, password_hash, is_admin, created_at)
		values (?, ?, ?, ?, ?) returning id`),
		acc.Username, acc.Email, acc.PasswordHash, acc.IsAdmin, createdAt).Scan(&acc.ID)
	if conflict, ok := asConflict(err); ok {
		return conflict
	} else if err != nil {
		return fmt.Errorf("unable to create account %v, cause %w", acc.Username, err)
	}
	acc.CreatedAt = createdAt
	return nil
}

func (d *DB) FindAccountByID(ctx context.Context, id int64) (Account, error) {
	return d.findAccount(ctx, "id", id, strconv.FormatInt(id, 10))
}

func (d *DB) FindAccountByEmail(ctx context.Context, email string) (Account, error) {
	return d.findAccount(ctx, "email", email, email)
}

func (d *DB) FindAccountByUsername(ctx context.Context, username string) (Account, error) {
	return d.findAccount(ctx, "username", username, username)
}

func (d *DB) findAccount(ctx context.Context, column string, value interface{}, key string) (Account, error) {
	var acc Account
	err := d.db.QueryRowContext(ctx, d.rebind(fmt.Sprintf(`select %v from users where %v = ?`, accountColumns, column)), value).
		Scan(&acc.ID, &acc.Username, &acc.Email, &acc.PasswordHash, &acc.IsAdmin, &acc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, NotFound{Entity: "account", Key: key}
	} else if err != nil {
		return Account{}, fmt.Errorf("unable to load account %v, cause %w", key, err)
	}
	return acc, nil
}

// SetAdmin grants or revokes admin privileges. Tokens issued before the
// change keep their old claim until they expire.
func (d *DB) SetAdmin(ctx context.Context, id int64, admin bool) error {
	res, err := d.db.ExecContext(ctx, d.rebind(`update users set is_admin = ? where id = ?`), admin, id)
	if err != nil {
		return fmt.Errorf("unable to change admin flag of account %v, cause %w", id, err)
	}
	return expectOneRow(res, NotFound{Entity: "account", Key: strconv.FormatInt(id, 10)})
}

// SetPasswordHash replaces the stored digest of an account
func (d *DB) SetPasswordHash(ctx context.Context, id int64, digest string) error {
	res, err := d.db.ExecContext(ctx, d.rebind(`update users set password_hash = ? where id = ?`), digest, id)
	if err != nil {
		return fmt.Errorf("unable to change password of account %v, cause %w", id, err)
	}
	return expectOneRow(res, NotFound{Entity: "account", Key: strconv.FormatInt(id, 10)})
}

// ListAccountStats returns every account along with how many todos it
// owns, ordered by id.
func (d *DB) ListAccountStats(ctx context.Context) ([]AccountStats, error) {
	rows, err := d.db.QueryContext(ctx, `select u.id, u.username, u.email, u.password_hash, u.is_admin, u.created_at,
		(select count(*) from todos t where t.user_id = u.id)
	from users u
	order by u.id asc`)
	if err != nil {
		return nil, fmt.Errorf("unable to list accounts, cause %w", err)
	}
	defer rows.Close()
	out := []AccountStats{}
	for rows.Next() {
		var s AccountStats
		err = rows.Scan(&s.ID, &s.Username, &s.Email, &s.PasswordHash, &s.IsAdmin, &s.CreatedAt, &s.TodoCount)
		if err != nil {
			return nil, fmt.Errorf("unable to scan account, cause %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

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
	Priority string

	Todo struct {
		ID        int64     `json:"id"`
		Content   string    `json:"task_content"`
		Completed bool      `json:"is_completed"`
		Priority  Priority  `json:"priority"`
		OwnerID   int64     `json:"user_id"`
		CreatedAt time.Time `json:"created_at"`
	}

	// TodoWithOwner is used by the admin listing
	TodoWithOwner struct {
		Todo
		Username string `json:"username"`
	}

	InvalidPriority struct {
		Value string
	}
)

const (
	PriorityLow    = Priority("low")
	PriorityMedium = Priority("medium")
	PriorityHigh   = Priority("high")

	// MaxTodoContent matches the column size of the postgres schema
	MaxTodoContent = 200

	todoColumns = `id, task_content, is_completed, priority, user_id, created_at`

	// high > medium > low, newest last
	todoOrder = `order by case priority when 'high' then 0 when 'medium' then 1 else 2 end asc, id asc`
)

func (i InvalidPriority) Error() string {
	return fmt.Sprintf("priority %q is not one of low, medium or high", i.Value)
}

// ParsePriority validates p, the empty string maps to PriorityMedium
func ParsePriority(p string) (Priority, error) {
	switch Priority(p) {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(p), nil
	}
	return "", InvalidPriority{Value: p}
}

// CreateTodo inserts t and updates its ID and CreatedAt fields
func (d *DB) CreateTodo(ctx context.Context, t *Todo) error {
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	createdAt := time.Now().UTC().Truncate(time.Second)
	err := d.db.QueryRowContext(ctx, d.rebind(`insert into todos (task_content, is_completed, priority, user_id, created_at)
		values (?, ?, ?, ?, ?) returning id`),
		t.Content, t.Completed, string(t.Priority), t.OwnerID, createdAt).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("unable to create todo for account %v, cause %w", t.OwnerID, err)
	}
	t.CreatedAt = createdAt
	return nil
}

func (d *DB) FindTodo(ctx context.Context, id int64) (Todo, error) {
	var t Todo
	err := d.db.QueryRowContext(ctx, d.rebind(fmt.Sprintf(`select %v from todos where id = ?`, todoColumns)), id).
		Scan(&t.ID, &t.Content, &t.Completed, &t.Priority, &t.OwnerID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Todo{}, NotFound{Entity: "todo", Key: strconv.FormatInt(id, 10)}
	} else if err != nil {
		return Todo{}, fmt.Errorf("unable to load todo %v, cause %w", id, err)
	}
	return t, nil
}

// ListTodos returns the todos owned by the given account, most urgent
// first.
func (d *DB) ListTodos(ctx context.Context, owner int64) ([]Todo, error) {
	rows, err := d.db.QueryContext(ctx, d.rebind(fmt.Sprintf(`select %v from todos where user_id = ? %v`, todoColumns, todoOrder)), owner)
	if err != nil {
		return nil, fmt.Errorf("unable to list todos of account %v, cause %w", owner, err)
	}
	defer rows.Close()
	out := []Todo{}
	for rows.Next() {
		var t Todo
		err = rows.Scan(&t.ID, &t.Content, &t.Completed, &t.Priority, &t.OwnerID, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("unable to scan todo, cause %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveTodo writes content, completion and priority back, the owner
// never changes.
func (d *DB) SaveTodo(ctx context.Context, t Todo) error {
	res, err := d.db.ExecContext(ctx, d.rebind(`update todos set task_content = ?, is_completed = ?, priority = ? where id = ?`),
		t.Content, t.Completed, string(t.Priority), t.ID)
	if err != nil {
		return fmt.Errorf("unable to save todo %v, cause %w", t.ID, err)
	}
	return expectOneRow(res, NotFound{Entity: "todo", Key: strconv.FormatInt(t.ID, 10)})
}

func (d *DB) DeleteTodo(ctx context.Context, id int64) error {
	res, err := d.db.ExecContext(ctx, d.rebind(`delete from todos where id = ?`), id)
	if err != nil {
		return fmt.Errorf("unable to delete todo %v, cause %w", id, err)
	}
	return expectOneRow(res, NotFound{Entity: "todo", Key: strconv.FormatInt(id, 10)})
}

// ListAllTodos returns every todo with the username of its owner, in a
// single query.
func (d *DB) ListAllTodos(ctx context.Context) ([]TodoWithOwner, error) {
	rows, err := d.db.QueryContext(ctx, `select t.id, t.task_content, t.is_completed, t.priority, t.user_id, t.created_at, u.username
	from todos t
	inner join users u on u.id = t.user_id
	order by t.id asc`)
	if err != nil {
		return nil, fmt.Errorf("unable to list todos, cause %w", err)
	}
	defer rows.Close()
	out := []TodoWithOwner{}
	for rows.Next() {
		var t TodoWithOwner
		err = rows.Scan(&t.ID, &t.Content, &t.Completed, &t.Priority, &t.OwnerID, &t.CreatedAt, &t.Username)
		if err != nil {
			return nil, fmt.Errorf("unable to scan todo, cause %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/todo-app/internal/database"
	"github.com/iliyamo/todo-app/internal/model"
)

const todoColumns = "t.id, t.owner_id, t.title, t.is_completed, t.created_at, t.updated_at"

// TodoRepo persists todos and the owner's ordered reference list.  The two
// tables are always written in one transaction so a todo never exists
// without its reference.
type TodoRepo struct{ db *database.DB }

func NewTodoRepo(db *database.DB) *TodoRepo { return &TodoRepo{db: db} }

// Create inserts the todo and appends it to the owner's list.  It returns
// ErrUserNotFound when the owner does not exist.
func (r *TodoRepo) Create(ctx context.Context, t *model.Todo) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	t.IsCompleted = false

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)

	var one int
	if err := tx.QueryRowContext(ctx, r.db.Rebind("SELECT 1 FROM users WHERE id = ?"), t.Owner).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, r.db.Rebind(
		"INSERT INTO todos (id, owner_id, title, is_completed, created_at, updated_at) VALUES (?,?,?,?,?,?)"),
		t.ID, t.Owner, t.Title, false, t.CreatedAt, t.UpdatedAt); err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}

	var next int
	if err := tx.QueryRowContext(ctx, r.db.Rebind(
		"SELECT COALESCE(MAX(sort_order), 0) + 1 FROM user_todos WHERE user_id = ?"), t.Owner).Scan(&next); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, r.db.Rebind(
		"INSERT INTO user_todos (user_id, todo_id, sort_order) VALUES (?,?,?)"), t.Owner, t.ID, next); err != nil {
		return fmt.Errorf("append todo reference: %w", err)
	}
	return tx.Commit()
}

// ListByOwner returns every todo owned by the user, oldest reference first.
func (r *TodoRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Todo, error) {
	const q = "SELECT " + todoColumns + ` FROM todos t
	           LEFT JOIN user_todos ut ON ut.todo_id = t.id
	           WHERE t.owner_id = ?
	           ORDER BY COALESCE(ut.sort_order, 0), t.created_at`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(q), ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches a todo owned by ownerID.
func (r *TodoRepo) Get(ctx context.Context, id, ownerID string) (*model.Todo, error) {
	return r.get(ctx, r.db, id, ownerID)
}

// Toggle flips is_completed in a single statement and returns the result.
func (r *TodoRepo) Toggle(ctx context.Context, id, ownerID string) (*model.Todo, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		"UPDATE todos SET is_completed = NOT is_completed, updated_at = ? WHERE id = ? AND owner_id = ?"),
		time.Now().UTC(), id, ownerID)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrTodoNotFound
	}
	return r.Get(ctx, id, ownerID)
}

// Delete removes the todo and pulls it from the owner's list, returning the
// deleted record.
func (r *TodoRepo) Delete(ctx context.Context, id, ownerID string) (*model.Todo, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer rollback(tx)

	t, err := r.get(ctx, tx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, r.db.Rebind("DELETE FROM user_todos WHERE todo_id = ? AND user_id = ?"), id, ownerID); err != nil {
		return nil, fmt.Errorf("pull todo reference: %w", err)
	}
	if _, err := tx.ExecContext(ctx, r.db.Rebind("DELETE FROM todos WHERE id = ? AND owner_id = ?"), id, ownerID); err != nil {
		return nil, fmt.Errorf("delete todo: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TodoRepo) get(ctx context.Context, q queryer, id, ownerID string) (*model.Todo, error) {
	row := q.QueryRowContext(ctx, r.db.Rebind("SELECT "+todoColumns+" FROM todos t WHERE t.id = ? AND t.owner_id = ?"), id, ownerID)
	t, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTodoNotFound
		}
		return nil, err
	}
	return t, nil
}

type scanner interface{ Scan(dest ...any) error }

func scanTodo(s scanner) (*model.Todo, error) {
	var t model.Todo
	if err := s.Scan(&t.ID, &t.Owner, &t.Title, &t.IsCompleted, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

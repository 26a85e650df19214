// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow the service layer to
// distinguish between failure scenarios without inspecting driver errors.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrTodoNotFound is returned when a todo does not exist or belongs to
// another user.
var ErrTodoNotFound = errors.New("todo not found")

// ErrDuplicate is returned when an insert or update would violate a
// unique constraint (username or email).
var ErrDuplicate = errors.New("duplicate entry")

// ErrResetTokenInvalid is returned when a password reset token is
// unknown, already used or expired.
var ErrResetTokenInvalid = errors.New("reset token invalid")

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isDuplicateEntryError recognizes unique violations from every supported
// driver: MySQL 1062, SQLite UNIQUE/PRIMARY KEY constraints, Postgres 23505.
func isDuplicateEntryError(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// rollback is deferred right after BeginTx; after Commit it is a no-op.
func rollback(tx *sql.Tx) { _ = tx.Rollback() }

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/todo-app/internal/database"
	"github.com/iliyamo/todo-app/internal/model"
)

const userColumns = "id, username, email, fullname, password_hash, avatar, refresh_token_hash, created_at, updated_at"

type UserRepo struct{ db *database.DB }

func NewUserRepo(db *database.DB) *UserRepo { return &UserRepo{db: db} }

// ProfileUpdate carries the optional profile fields; nil means unchanged.
type ProfileUpdate struct {
	Username *string
	Fullname *string
	Email    *string
}

// Create inserts the user.  ID and timestamps are filled in when empty.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))

	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		"INSERT INTO users (id, username, email, fullname, password_hash, avatar, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?)"),
		u.ID, u.Username, u.Email, u.Fullname, u.PasswordHash, u.Avatar, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.Todos = []string{}
	return nil
}

// GetByID fetches a user by id, including the ordered todo references.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByUsername fetches a user by (lower-cased) username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, "username = ?", strings.ToLower(strings.TrimSpace(username)))
}

// GetByEmail fetches a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "email = ?", strings.TrimSpace(email))
}

// ExistsByUsernameOrEmail reports whether either identifier is taken.
func (r *UserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.db.Rebind("SELECT COUNT(*) FROM users WHERE username = ? OR email = ?"),
		strings.ToLower(strings.TrimSpace(username)), strings.TrimSpace(email)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateProfile applies the non-nil fields and returns the fresh record.
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, p ProfileUpdate) (*model.User, error) {
	sets := []string{}
	args := []any{}
	if p.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(*p.Username)))
	}
	if p.Fullname != nil {
		sets = append(sets, "fullname = ?")
		args = append(args, strings.TrimSpace(*p.Fullname))
	}
	if p.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, strings.TrimSpace(*p.Email))
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	q := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if err := r.execOne(ctx, q, args...); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// UpdateAvatar stores the uploaded avatar URL.
func (r *UserRepo) UpdateAvatar(ctx context.Context, id, url string) error {
	return r.execOne(ctx, "UPDATE users SET avatar = ?, updated_at = ? WHERE id = ?", url, time.Now().UTC(), id)
}

// UpdatePasswordHash replaces the stored bcrypt hash.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.execOne(ctx, "UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?", hash, time.Now().UTC(), id)
}

// SetRefreshHash replaces the user's single live refresh token hash.  An
// empty hash clears it (logout).
func (r *UserRepo) SetRefreshHash(ctx context.Context, id, hash string) error {
	var v sql.NullString
	if hash != "" {
		v = sql.NullString{String: hash, Valid: true}
	}
	return r.execOne(ctx, "UPDATE users SET refresh_token_hash = ?, updated_at = ? WHERE id = ?", v, time.Now().UTC(), id)
}

func (r *UserRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicate
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (*model.User, error) {
	var (
		u       model.User
		refresh sql.NullString
	)
	err := r.db.QueryRowContext(ctx, r.db.Rebind("SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1"), arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.Fullname, &u.PasswordHash, &u.Avatar, &refresh, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.RefreshTokenHash = refresh.String
	if u.Todos, err = todoIDs(ctx, r.db, u.ID); err != nil {
		return nil, err
	}
	return &u, nil
}

// todoIDs returns the owner's todo references in insertion order.
func todoIDs(ctx context.Context, db *database.DB, userID string) ([]string, error) {
	rows, err := db.QueryContext(ctx, db.Rebind("SELECT todo_id FROM user_todos WHERE user_id = ? ORDER BY sort_order"), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

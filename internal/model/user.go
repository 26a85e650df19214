package model

import "time"

// User represents an account as stored in the `users` table.  The
// credential fields never leave the server: they carry `json:"-"` and the
// API only ever serializes a UserView.
//
// Fields:
//
//	ID               – UUID primary key.
//	Username         – unique login name, stored lower-cased.
//	Email            – unique email address.
//	Fullname         – display name.
//	PasswordHash     – bcrypt hash of the password.
//	Avatar           – URL of the uploaded avatar image.
//	RefreshTokenHash – SHA‑256 hex digest of the single live refresh token ("" when logged out).
//	Todos            – ids of owned todos in insertion order (user_todos).
type User struct {
	ID               string    `json:"_id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	Fullname         string    `json:"fullname"`
	PasswordHash     string    `json:"-"`
	Avatar           string    `json:"avatar"`
	RefreshTokenHash string    `json:"-"`
	Todos            []string  `json:"todos"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// UserView is the profile returned by every user-facing endpoint.
type UserView struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Fullname  string    `json:"fullname"`
	Avatar    string    `json:"avatar"`
	Todos     []string  `json:"todos"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// View strips credentials from the user.
func (u *User) View() UserView {
	todos := u.Todos
	if todos == nil {
		todos = []string{}
	}
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Fullname:  u.Fullname,
		Avatar:    u.Avatar,
		Todos:     todos,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

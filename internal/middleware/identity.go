package middleware

// identity.go holds the accessors for the authenticated user that Auth
// stores in the Echo context.  Handlers and the rate-limit/cache keys read
// the identity through these helpers only.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/todo-app/internal/model"
)

const userKey = "user"

// SetUser stores the authenticated user on the context.
func SetUser(c echo.Context, u *model.User) { c.Set(userKey, u) }

// CurrentUser returns the user stored by Auth.
func CurrentUser(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(userKey).(*model.User)
	return u, ok && u != nil
}

// UserID returns the authenticated user's id, or "" for anonymous requests.
func UserID(c echo.Context) string {
	if u, ok := CurrentUser(c); ok {
		return u.ID
	}
	return ""
}

// keyUser is UserID with a placeholder for anonymous requests, for use in
// rate-limit and cache keys.
func keyUser(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}

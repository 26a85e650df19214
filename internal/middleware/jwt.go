package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/todo-app/internal/model"
)

// AccessCookie is the cookie carrying the access token.
const AccessCookie = "accessToken"

// AccessVerifier validates an access token and returns its user.
type AccessVerifier interface {
	VerifyAccess(ctx context.Context, token string) (*model.User, error)
}

// Auth returns an Echo middleware that authenticates the request with the
// access token from the accessToken cookie or, failing that, an
// "Authorization: Bearer" header.  On success the user is stored in the
// context (see CurrentUser); on failure the verifier's error is returned
// unchanged so the error handler can render it.
func Auth(v AccessVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, err := v.VerifyAccess(c.Request().Context(), AccessToken(c))
			if err != nil {
				return err
			}
			SetUser(c, u)
			return next(c)
		}
	}
}

// AccessToken extracts the raw access token, cookie first.
func AccessToken(c echo.Context) string {
	if ck, err := c.Cookie(AccessCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

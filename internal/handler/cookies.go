package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/todo-app/internal/middleware"
	"github.com/iliyamo/todo-app/internal/service"
)

// RefreshCookie carries the refresh token.
const RefreshCookie = "refreshToken"

// CookieConfig controls the auth cookie attributes.  SameSite=None is only
// valid together with Secure, so insecure (local http) setups get Lax.
type CookieConfig struct {
	Secure bool
}

func (cc CookieConfig) sameSite() http.SameSite {
	if cc.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func (cc CookieConfig) cookie(name, value string, exp time.Time) *http.Cookie {
	maxAge := int(time.Until(exp).Seconds())
	if maxAge < 1 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: cc.sameSite(),
	}
}

func (cc CookieConfig) setTokens(c echo.Context, t service.Tokens) {
	c.SetCookie(cc.cookie(middleware.AccessCookie, t.Access.Token, t.Access.Exp))
	c.SetCookie(cc.cookie(RefreshCookie, t.Refresh.Token, t.Refresh.Exp))
}

func (cc CookieConfig) clear(c echo.Context) {
	for _, name := range []string{middleware.AccessCookie, RefreshCookie} {
		c.SetCookie(cc.cookie(name, "", time.Unix(0, 0)))
	}
}

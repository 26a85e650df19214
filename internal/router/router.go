// Package router builds the Echo instance and registers every route.
package router

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/todo-app/internal/config"
	"github.com/iliyamo/todo-app/internal/handler"
	"github.com/iliyamo/todo-app/internal/live"
	"github.com/iliyamo/todo-app/internal/middleware"
	"github.com/iliyamo/todo-app/internal/service"
	"github.com/iliyamo/todo-app/internal/web"
)

// APIPrefix is where every JSON route lives.
const APIPrefix = "/api/users"

// Deps is everything the HTTP edge needs.  Redis, Hub and Ping may be nil.
type Deps struct {
	Config    config.Config
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Log       *slog.Logger

	Auth    *service.AuthService
	Profile *service.ProfileService
	Todos   *service.TodoService
	Hub     *live.Hub
	Redis   *redis.Client
	Ping    func(context.Context) error
}

// New returns a fully wired Echo instance.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)

	e.Use(echomw.RequestID())
	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			d.Log.Error("panic recovered", "err", err, "uri", c.Request().RequestURI, "stack", string(stack))
			return err
		},
	}))
	e.Use(requestLogger(d.Log))
	e.Use(echomw.SecureWithConfig(echomw.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{d.Config.ClientURL},
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	RegisterRoutes(e, d.Ping)
	registerAPI(e, d)
	registerSPA(e)
	return e
}

// RegisterRoutes registers routes that sit outside the API, currently the
// health check used by load balancers.
func RegisterRoutes(e *echo.Echo, ping func(context.Context) error) {
	e.GET("/healthz", handler.Health(ping))
}

func registerAPI(e *echo.Echo, d Deps) {
	ah := handler.NewAuthHandler(d.Auth, handler.CookieConfig{Secure: d.Config.CookieSecure})
	ph := handler.NewProfileHandler(d.Profile)
	th := handler.NewTodoHandler(d.Todos)

	jsonLimit := echomw.BodyLimit(d.Config.JSONBodyLimit)
	fileLimit := echomw.BodyLimit(d.Config.AvatarBodyLimit)
	auth := middleware.Auth(d.Auth)
	rc := middleware.NewCache(d.Cache, d.Redis, d.Log)
	cache := rc.Middleware()

	api := e.Group(APIPrefix)
	api.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log))

	// Public: credentials are issued or exchanged here.
	api.POST("/register", ah.Register, fileLimit)
	api.POST("/login", ah.Login, jsonLimit)
	api.POST("/refresh-token", ah.RefreshToken, jsonLimit)
	api.POST("/password-reset-link", ah.PasswordResetLink, jsonLimit)
	api.POST("/reset-password", ah.ResetPassword, jsonLimit)

	// Authenticated: the access token identifies the owner.
	api.POST("/logout", ah.Logout, auth, cache)
	api.GET("/check-auth", ah.CheckAuth, auth, cache)
	api.GET("/get-current-user", ah.CurrentUser, auth, cache)
	api.POST("/update-password", ah.UpdatePassword, jsonLimit, auth, cache)
	api.PATCH("/update-data", ph.UpdateData, jsonLimit, auth, cache)
	api.PUT("/update-avatar", ph.UpdateAvatar, fileLimit, auth, cache)

	api.POST("/add-todo", th.AddTodo, jsonLimit, auth, cache)
	api.GET("/get-user-todos", th.GetUserTodos, auth, cache)
	api.PATCH("/toggle-isCompleteTodo/:id", th.ToggleComplete, auth, cache)
	// Deletion is a GET, so it bypasses the cache and invalidates explicitly.
	api.GET("/delete-todo/:id", th.DeleteTodo, auth, invalidateAfter(rc, d.Log))

	if d.Config.LiveUpdates && d.Hub != nil {
		lh := handler.NewLiveHandler(d.Hub, d.Config.ClientURL)
		api.GET("/live", lh.Stream, auth)
	}
}

// invalidateAfter drops the user's cached responses once the handler
// succeeds.
func invalidateAfter(rc *middleware.Cache, log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			if err := rc.Invalidate(c.Request().Context(), middleware.UserID(c)); err != nil {
				log.Warn("cache: invalidate failed", "err", err)
			}
			return nil
		}
	}
}

func registerSPA(e *echo.Echo) {
	e.Use(echomw.StaticWithConfig(echomw.StaticConfig{
		Root:       ".",
		HTML5:      true,
		Filesystem: http.FS(web.FS()),
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return strings.HasPrefix(p, APIPrefix) || p == "/healthz"
		},
	}))
}

func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
				slog.String("remote_ip", v.RemoteIP),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.String("err", v.Error.Error()))
				if v.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
			}
			log.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}

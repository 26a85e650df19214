package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/todo-app/internal/apperror"
)

// storeTimeout bounds every handler's database work.
const storeTimeout = 5 * time.Second

// Response is the success envelope.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
	Data    any      `json:"data"`
}

func ok(c echo.Context, msg string, data any) error {
	if data == nil {
		data = struct{}{}
	}
	return c.JSON(http.StatusOK, Response{StatusCode: http.StatusOK, Success: true, Message: msg, Data: data})
}

// withTimeout derives the store context from the request.
func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), storeTimeout)
}

// ErrorHandler renders every error as the failure envelope.  Server-side
// failures are logged with their cause; client errors at debug level.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := render(err)

		attrs := []any{
			"status", status,
			"method", c.Request().Method,
			"uri", c.Request().RequestURI,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"err", err,
		}
		if status >= http.StatusInternalServerError {
			log.Error("request failed", attrs...)
		} else {
			log.Debug("request rejected", attrs...)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Error("write error response", "err", err)
		}
	}
}

func render(err error) (int, ErrorResponse) {
	body := ErrorResponse{Errors: []string{}}

	var ae *apperror.Error
	var he *echo.HTTPError
	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &ae):
		body.Message = ae.Message
		if len(ae.Errors) > 0 {
			body.Errors = ae.Errors
		}
		return ae.Status, body
	case errors.As(err, &ve):
		body.Message = "Validation failed"
		body.Errors = fieldErrors(ve)
		return http.StatusBadRequest, body
	case errors.As(err, &he):
		body.Message = http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			body.Message = m
		}
		return he.Code, body
	default:
		ae := apperror.From(err)
		body.Message = ae.Message
		return ae.Status, body
	}
}

// Validator adapts validator/v10 to echo.Validator.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	if err := cv.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return apperror.Validation("Validation failed", fieldErrors(ve)...)
		}
		return apperror.Validation(err.Error())
	}
	return nil
}

func fieldErrors(ve validator.ValidationErrors) []string {
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			out = append(out, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			out = append(out, fmt.Sprintf("%s must be a valid email address", fe.Field()))
		case "max":
			out = append(out, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "min":
			out = append(out, fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
		default:
			out = append(out, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return out
}

// bind decodes and validates the request body into dst.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperror.Validation("Invalid request body").WithCause(err)
	}
	return c.Validate(dst)
}

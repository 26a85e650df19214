package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/todo-app/internal/apperror"
	"github.com/iliyamo/todo-app/internal/middleware"
	"github.com/iliyamo/todo-app/internal/model"
	"github.com/iliyamo/todo-app/internal/service"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth    *service.AuthService
	Cookies CookieConfig
}

func NewAuthHandler(a *service.AuthService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{Auth: a, Cookies: cookies}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username" form:"username" validate:"omitempty,max=64"`
	Fullname string `json:"fullname" form:"fullname" validate:"omitempty,max=128"`
	Email    string `json:"email" form:"email" validate:"omitempty,email,max=254"`
	Password string `json:"password" form:"password" validate:"omitempty,max=72"`
}

type loginReq struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

type passwordReq struct {
	OldPassword string `json:"oldpassword" form:"oldpassword"`
	NewPassword string `json:"newpassword" form:"newpassword" validate:"omitempty,max=72"`
}

type resetLinkReq struct {
	Email string `json:"email" form:"email"`
}

type resetReq struct {
	Token       string `json:"token" form:"token"`
	NewPassword string `json:"newpassword" form:"newpassword" validate:"omitempty,max=72"`
}

type loginResp struct {
	User         model.UserView `json:"user"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

// Register: multipart form with the avatar file.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	file, name, err := formFile(c, "avatar")
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	in := service.RegisterInput{
		Username:   req.Username,
		Fullname:   req.Fullname,
		Email:      req.Email,
		Password:   req.Password,
		AvatarName: name,
	}
	if file != nil {
		in.Avatar = file
	}
	// The Media Host has its own deadline.
	user, err := h.Auth.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return ok(c, "User registered successfully", user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, toks, err := h.Auth.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}
	h.Cookies.setTokens(c, toks)
	return ok(c, "user logged in successfully", loginResp{
		User:         u.View(),
		AccessToken:  toks.Access.Token,
		RefreshToken: toks.Refresh.Token,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, middleware.UserID(c)); err != nil {
		return err
	}
	h.Cookies.clear(c)
	return ok(c, "User logged out", nil)
}

// RefreshToken accepts the refresh token from its cookie or the JSON body.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	raw := ""
	if ck, err := c.Cookie(RefreshCookie); err == nil {
		raw = ck.Value
	}
	if raw == "" {
		var req refreshReq
		if err := c.Bind(&req); err == nil {
			raw = req.RefreshToken
		}
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	_, toks, err := h.Auth.Refresh(ctx, raw)
	if err != nil {
		return err
	}
	h.Cookies.setTokens(c, toks)
	return ok(c, "AccessToken refreshed", echo.Map{"refreshToken": toks.Refresh.Token})
}

// CheckAuth and CurrentUser both return the authenticated profile; the
// frontend uses the former as a session probe.
func (h *AuthHandler) CheckAuth(c echo.Context) error {
	u, found := middleware.CurrentUser(c)
	if !found {
		return apperror.Auth("Not authorized")
	}
	return ok(c, "User is authenticated", u.View())
}

func (h *AuthHandler) CurrentUser(c echo.Context) error {
	u, found := middleware.CurrentUser(c)
	if !found {
		return apperror.Auth("Not authorized")
	}
	return ok(c, "User found", u.View())
}

func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	var req passwordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Auth.ChangePassword(ctx, middleware.UserID(c), req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return ok(c, "Password Updated Successfully", nil)
}

// PasswordResetLink mails a reset link.  SMTP has its own deadline.
func (h *AuthHandler) PasswordResetLink(c echo.Context) error {
	var req resetLinkReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Auth.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return ok(c, "Email sent successfully", echo.Map{"email": req.Email})
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		return err
	}
	h.Cookies.clear(c)
	return ok(c, "Password has been reset", nil)
}

// formFile opens an optional multipart file.  A missing field yields a nil
// file and no error.
func formFile(c echo.Context, field string) (multipart.File, string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, "", nil
		}
		return nil, "", apperror.Validation("Invalid multipart form").WithCause(err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", apperror.Internal(err)
	}
	return f, fh.Filename, nil
}

// Package service holds the business rules of the to-do backend.  Services
// translate repository sentinels into apperror values; handlers never see a
// driver error.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/iliyamo/todo-app/internal/apperror"
	"github.com/iliyamo/todo-app/internal/mailer"
	"github.com/iliyamo/todo-app/internal/media"
	"github.com/iliyamo/todo-app/internal/model"
	"github.com/iliyamo/todo-app/internal/repository"
	"github.com/iliyamo/todo-app/internal/utils"
)

// AuthConfig carries the credential settings of AuthService.
type AuthConfig struct {
	AccessKey  string
	RefreshKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
	BcryptCost int
	AppBaseURL string
}

// Tokens is the pair handed out on login and refresh.
type Tokens struct {
	Access  utils.SignedToken
	Refresh utils.SignedToken
}

// AuthService implements registration, login, session refresh and password
// management.  A user has at most one live refresh token; its hash lives on
// the user row.
type AuthService struct {
	users  *repository.UserRepo
	resets *repository.TokenRepo
	media  media.Uploader
	mail   mailer.Sender
	cfg    AuthConfig
	log    *slog.Logger
}

func NewAuthService(users *repository.UserRepo, resets *repository.TokenRepo, up media.Uploader, mail mailer.Sender, cfg AuthConfig, log *slog.Logger) *AuthService {
	return &AuthService{users: users, resets: resets, media: up, mail: mail, cfg: cfg, log: log}
}

// RegisterInput is the registration form.  Avatar is the uploaded file; it
// is required.
type RegisterInput struct {
	Username   string
	Fullname   string
	Email      string
	Password   string
	Avatar     io.Reader
	AvatarName string
}

// Register creates an account.  The avatar is uploaded only after the
// username and email are known to be free.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.UserView, error) {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Fullname = strings.TrimSpace(in.Fullname)
	in.Email = strings.TrimSpace(in.Email)
	if blank(in.Username, in.Fullname, in.Email, in.Password) {
		return model.UserView{}, apperror.Validation("Bad request: All fields are required!")
	}

	taken, err := s.users.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return model.UserView{}, apperror.Internal(err)
	}
	if taken {
		return model.UserView{}, apperror.Conflict("Username or email already exists")
	}
	if in.Avatar == nil {
		return model.UserView{}, apperror.Validation("Bad Request: avatar file is missing")
	}

	url, err := s.media.Upload(ctx, in.AvatarName, in.Avatar)
	if err != nil {
		return model.UserView{}, apperror.Upload(http.StatusNotImplemented, "Failed to upload avatar on cloud", err)
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return model.UserView{}, apperror.Validation("Password must be at most 72 bytes")
		}
		return model.UserView{}, apperror.Internal(err)
	}

	u := &model.User{
		Username:     in.Username,
		Fullname:     in.Fullname,
		Email:        in.Email,
		PasswordHash: hash,
		Avatar:       url,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, repository.ErrDuplicate) {
			return model.UserView{}, apperror.Conflict("Username or email already exists")
		}
		return model.UserView{}, apperror.Internal(err)
	}
	s.log.Info("user registered", "user_id", u.ID, "username", u.Username)
	return u.View(), nil
}

// Authenticate checks the password and starts a new session, replacing any
// previous refresh token.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*model.User, Tokens, error) {
	if blank(username, password) {
		return nil, Tokens{}, apperror.Validation("All fields are required")
	}
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, Tokens{}, apperror.NotFound("User not found")
		}
		return nil, Tokens{}, apperror.Internal(err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, Tokens{}, apperror.BadCredentials("Incorrect password")
	}
	toks, err := s.startSession(ctx, u)
	if err != nil {
		return nil, Tokens{}, err
	}
	return u, toks, nil
}

// VerifyAccess validates an access token and loads its user.  A user with
// no live session (after logout or a password reset) is rejected even while
// the token itself has not expired.
func (s *AuthService) VerifyAccess(ctx context.Context, token string) (*model.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperror.Auth("Unauthorized request")
	}
	claims, err := utils.ParseAccess(s.cfg.AccessKey, token)
	if err != nil {
		return nil, apperror.Auth("Invalid token").WithCause(err)
	}
	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.Auth("Invalid token")
		}
		return nil, apperror.Internal(err)
	}
	if u.RefreshTokenHash == "" {
		return nil, apperror.Auth("Session ended")
	}
	return u, nil
}

// Refresh rotates both tokens.  A refresh token that has been superseded by
// a later login or refresh, or cleared by logout, is rejected.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*model.User, Tokens, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, Tokens{}, apperror.Auth("Unauthorized request")
	}
	claims, err := utils.ParseRefresh(s.cfg.RefreshKey, raw)
	if err != nil {
		return nil, Tokens{}, apperror.Auth("Invalid Token").WithCause(err)
	}
	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, Tokens{}, apperror.Auth("Invalid Token")
		}
		return nil, Tokens{}, apperror.Internal(err)
	}
	if u.RefreshTokenHash == "" || u.RefreshTokenHash != utils.HashToken(raw) {
		return nil, Tokens{}, apperror.Auth("Refresh token expired or used")
	}
	toks, err := s.startSession(ctx, u)
	if err != nil {
		return nil, Tokens{}, err
	}
	return u, toks, nil
}

// Logout clears the stored refresh token.  Calling it twice is harmless.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.users.SetRefreshHash(ctx, userID, ""); err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return apperror.Internal(err)
	}
	return nil
}

// ChangePassword replaces the password after checking the old one.  The
// current refresh token stays valid.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if blank(oldPassword, newPassword) {
		return apperror.Validation("All fields are required")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.Auth("Invalid token")
		}
		return apperror.Internal(err)
	}
	if !utils.VerifyPassword(u.PasswordHash, oldPassword) {
		return apperror.BadCredentials("Invalid Password")
	}
	return s.setPassword(ctx, u.ID, newPassword)
}

func (s *AuthService) setPassword(ctx context.Context, userID, plain string) error {
	hash, err := s.hashPassword(plain)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (s *AuthService) hashPassword(plain string) (string, error) {
	hash, err := utils.HashPassword(plain, s.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return "", apperror.Validation("Password must be at most 72 bytes")
		}
		return "", apperror.Internal(err)
	}
	return hash, nil
}

func (s *AuthService) startSession(ctx context.Context, u *model.User) (Tokens, error) {
	access, err := utils.IssueAccess(s.cfg.AccessKey, u.ID, u.Username, u.Email, s.cfg.AccessTTL)
	if err != nil {
		return Tokens{}, apperror.Internal(err)
	}
	refresh, err := utils.IssueRefresh(s.cfg.RefreshKey, u.ID, s.cfg.RefreshTTL)
	if err != nil {
		return Tokens{}, apperror.Internal(err)
	}
	hash := utils.HashToken(refresh.Token)
	if err := s.users.SetRefreshHash(ctx, u.ID, hash); err != nil {
		return Tokens{}, apperror.Internal(err)
	}
	u.RefreshTokenHash = hash
	return Tokens{Access: access, Refresh: refresh}, nil
}

// blank reports whether any value is empty after trimming.
func blank(vals ...string) bool {
	for _, v := range vals {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

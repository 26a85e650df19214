package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/todo-app/internal/apperror"
	"github.com/iliyamo/todo-app/internal/mailer"
	"github.com/iliyamo/todo-app/internal/repository"
	"github.com/iliyamo/todo-app/internal/utils"
)

// RequestPasswordReset emails a single-use reset link to a registered
// address.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperror.Validation("Email is required")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.NotFound("Email not registered")
		}
		return apperror.Internal(err)
	}

	raw, err := utils.NewResetToken()
	if err != nil {
		return apperror.Internal(err)
	}
	if err := s.resets.StoreReset(ctx, u.ID, utils.HashToken(raw), time.Now().UTC().Add(s.cfg.ResetTTL)); err != nil {
		return apperror.Internal(err)
	}

	msg, err := mailer.PasswordReset(u.Email, u.Fullname, s.cfg.AppBaseURL, raw)
	if err != nil {
		return apperror.Internal(err)
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.log.Error("password reset mail failed", "user_id", u.ID, "err", err)
		return apperror.Mail("Failed to send reset email", err)
	}
	s.log.Info("password reset requested", "user_id", u.ID)
	return nil
}

// ResetPassword redeems a reset token.  The token is checked before the
// new password is hashed and only marked used once the hash is ready, so a
// rejected password leaves the link usable.  All outstanding reset tokens of
// the user are revoked and the live session is ended.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if blank(token, newPassword) {
		return apperror.Validation("All fields are required")
	}
	tokenHash := utils.HashToken(token)
	if _, err := s.resets.ValidateReset(ctx, tokenHash); err != nil {
		return resetError(err)
	}
	pwHash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	userID, err := s.resets.ConsumeReset(ctx, tokenHash)
	if err != nil {
		return resetError(err)
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, pwHash); err != nil {
		return apperror.Internal(err)
	}
	if err := s.resets.RevokeAllForUser(ctx, userID); err != nil {
		return apperror.Internal(err)
	}
	if err := s.users.SetRefreshHash(ctx, userID, ""); err != nil {
		return apperror.Internal(err)
	}
	s.log.Info("password reset completed", "user_id", userID)
	return nil
}

func resetError(err error) error {
	if errors.Is(err, repository.ErrResetTokenInvalid) {
		return apperror.BadCredentials("Reset link is invalid or expired")
	}
	return apperror.Internal(err)
}

package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/iliyamo/todo-app/internal/apperror"
	"github.com/iliyamo/todo-app/internal/media"
	"github.com/iliyamo/todo-app/internal/model"
	"github.com/iliyamo/todo-app/internal/repository"
)

// ProfileService edits the public part of an account.
type ProfileService struct {
	users *repository.UserRepo
	media media.Uploader
}

func NewProfileService(users *repository.UserRepo, up media.Uploader) *ProfileService {
	return &ProfileService{users: users, media: up}
}

// ProfileInput holds the editable fields; blank ones are left unchanged.
type ProfileInput struct {
	Username string
	Fullname string
	Email    string
}

// Get returns the public view of the user.
func (s *ProfileService) Get(ctx context.Context, userID string) (model.UserView, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.UserView{}, apperror.NotFound("User not found")
		}
		return model.UserView{}, apperror.Internal(err)
	}
	return u.View(), nil
}

// Update applies every non-blank field.
func (s *ProfileService) Update(ctx context.Context, userID string, in ProfileInput) (model.UserView, error) {
	var p repository.ProfileUpdate
	set := func(v string) *string {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil
		}
		return &v
	}
	p.Username, p.Fullname, p.Email = set(in.Username), set(in.Fullname), set(in.Email)
	if p.Username == nil && p.Fullname == nil && p.Email == nil {
		return model.UserView{}, apperror.Validation("All fields are required")
	}

	u, err := s.users.UpdateProfile(ctx, userID, p)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return model.UserView{}, apperror.Conflict("Username or email already exists")
		case errors.Is(err, repository.ErrUserNotFound):
			return model.UserView{}, apperror.BadCredentials("Unauthorized request")
		}
		return model.UserView{}, apperror.Internal(err)
	}
	return u.View(), nil
}

// UpdateAvatar uploads a new avatar and stores its URL.
func (s *ProfileService) UpdateAvatar(ctx context.Context, userID, filename string, r io.Reader) (model.UserView, error) {
	if r == nil {
		return model.UserView{}, apperror.Validation("Avatar file is missing")
	}
	url, err := s.media.Upload(ctx, filename, r)
	if err != nil {
		return model.UserView{}, apperror.Upload(http.StatusInternalServerError, "Failed to upload avatar", err)
	}
	if err := s.users.UpdateAvatar(ctx, userID, url); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.UserView{}, apperror.BadCredentials("Unauthorized request")
		}
		return model.UserView{}, apperror.Internal(err)
	}
	return s.Get(ctx, userID)
}

package handler

import (
	"io"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/todo-app/internal/middleware"
	"github.com/iliyamo/todo-app/internal/service"
)

// ProfileHandler serves the account edit endpoints.
type ProfileHandler struct {
	Profile *service.ProfileService
}

func NewProfileHandler(p *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{Profile: p}
}

type updateDataReq struct {
	Username string `json:"username" form:"username" validate:"omitempty,max=64"`
	Fullname string `json:"fullname" form:"fullname" validate:"omitempty,max=128"`
	Email    string `json:"email" form:"email" validate:"omitempty,email,max=254"`
}

func (h *ProfileHandler) UpdateData(c echo.Context) error {
	var req updateDataReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	user, err := h.Profile.Update(ctx, middleware.UserID(c), service.ProfileInput{
		Username: req.Username,
		Fullname: req.Fullname,
		Email:    req.Email,
	})
	if err != nil {
		return err
	}
	return ok(c, "User data updated", user)
}

func (h *ProfileHandler) UpdateAvatar(c echo.Context) error {
	file, name, err := formFile(c, "avatar")
	if err != nil {
		return err
	}
	var r io.Reader
	if file != nil {
		defer file.Close()
		r = file
	}
	user, err := h.Profile.UpdateAvatar(c.Request().Context(), middleware.UserID(c), name, r)
	if err != nil {
		return err
	}
	return ok(c, "Avatar successfully updated", user)
}

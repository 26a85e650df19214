package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/iliyamo/todo-app/internal/apperror"
)

func TestProfileUpdate(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice", "alice@example.com")
	e.register(t, "bob", "bob@example.com")
	ctx := context.Background()

	_, err := e.profile.Update(ctx, alice.ID, ProfileInput{})
	wantKind(t, err, apperror.KindValidation, http.StatusBadRequest)

	v, err := e.profile.Update(ctx, alice.ID, ProfileInput{Fullname: "Alice Liddell"})
	if err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}
	if v.Fullname != "Alice Liddell" || v.Username != "alice" || v.Email != "alice@example.com" {
		t.Errorf("Update() = %+v", v)
	}

	_, err = e.profile.Update(ctx, alice.ID, ProfileInput{Email: "bob@example.com"})
	wantKind(t, err, apperror.KindConflict, http.StatusBadRequest)
}

func TestProfileUpdateAvatar(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice", "alice@example.com")
	ctx := context.Background()

	_, err := e.profile.UpdateAvatar(ctx, alice.ID, "", nil)
	wantKind(t, err, apperror.KindValidation, http.StatusBadRequest)

	e.uploader.url = "https://media.test/new.png"
	v, err := e.profile.UpdateAvatar(ctx, alice.ID, "new.png", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("UpdateAvatar() unexpected error: %v", err)
	}
	if v.Avatar != "https://media.test/new.png" {
		t.Errorf("Avatar = %q", v.Avatar)
	}

	e.uploader.err = errors.New("cloud down")
	_, err = e.profile.UpdateAvatar(ctx, alice.ID, "x.png", strings.NewReader("png"))
	wantKind(t, err, apperror.KindUpload, http.StatusInternalServerError)
}

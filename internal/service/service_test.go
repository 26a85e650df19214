package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/todo-app/internal/apperror"
	"github.com/iliyamo/todo-app/internal/database"
	"github.com/iliyamo/todo-app/internal/mailer"
	"github.com/iliyamo/todo-app/internal/model"
	"github.com/iliyamo/todo-app/internal/repository"
)

type fakeUploader struct {
	url   string
	err   error
	calls int
}

func (f *fakeUploader) Upload(_ context.Context, _ string, r io.Reader) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	_, _ = io.Copy(io.Discard, r)
	return f.url, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, m mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

type recordNotifier struct{ kinds []string }

func (r *recordNotifier) TodoChanged(_ string, kind string, _ model.Todo) {
	r.kinds = append(r.kinds, kind)
}

type env struct {
	db       *database.DB
	auth     *AuthService
	todos    *TodoService
	profile  *ProfileService
	users    *repository.UserRepo
	uploader *fakeUploader
	sender   *fakeSender
	notes    *recordNotifier
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	users := repository.NewUserRepo(db)
	up := &fakeUploader{url: "https://media.test/avatar.png"}
	snd := &fakeSender{}
	notes := &recordNotifier{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := AuthConfig{
		AccessKey:  "access-key",
		RefreshKey: "refresh-key",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		ResetTTL:   time.Minute,
		BcryptCost: bcrypt.MinCost,
		AppBaseURL: "http://app.test",
	}
	return &env{
		db:       db,
		auth:     NewAuthService(users, repository.NewTokenRepo(db), up, snd, cfg, log),
		todos:    NewTodoService(repository.NewTodoRepo(db), notes, true),
		profile:  NewProfileService(users, up),
		users:    users,
		uploader: up,
		sender:   snd,
		notes:    notes,
	}
}

func (e *env) register(t *testing.T, username, email string) model.UserView {
	t.Helper()
	v, err := e.auth.Register(context.Background(), RegisterInput{
		Username: username,
		Fullname: "Test " + username,
		Email:    email,
		Password: "s3cret",
		Avatar:   strings.NewReader("png"),
	})
	if err != nil {
		t.Fatalf("Register(%s) unexpected error: %v", username, err)
	}
	return v
}

func wantKind(t *testing.T, err error, kind apperror.Kind, status int) {
	t.Helper()
	var ae *apperror.Error
	if !errors.As(err, &ae) {
		t.Fatalf("error = %v, want *apperror.Error of kind %s", err, kind)
	}
	if ae.Kind != kind || ae.Status != status {
		t.Fatalf("error = %s/%d (%v), want %s/%d", ae.Kind, ae.Status, ae, kind, status)
	}
}

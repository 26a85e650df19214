package media

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/iliyamo/todo-app/internal/config"
)

func TestNewWithoutCredentialsIsDisabled(t *testing.T) {
	u, err := New(config.MediaConfig{})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	if _, err := u.Upload(context.Background(), "a.png", strings.NewReader("x")); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Upload() error = %v, want ErrNotConfigured", err)
	}
}

func TestNewWithCredentials(t *testing.T) {
	u, err := New(config.MediaConfig{CloudName: "demo", APIKey: "k", APISecret: "s", Folder: "avatars"})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	if _, ok := u.(*CloudinaryUploader); !ok {
		t.Errorf("New() = %T, want *CloudinaryUploader", u)
	}
}

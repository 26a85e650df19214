// Package media uploads user images to the Media Host (Cloudinary) and
// returns their public URL.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/iliyamo/todo-app/internal/config"
)

// ErrNotConfigured is returned by the uploader used when no Cloudinary
// credentials are set.
var ErrNotConfigured = errors.New("media host not configured")

// Uploader stores a file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// CloudinaryUploader uploads to a single Cloudinary folder.
type CloudinaryUploader struct {
	cld     *cloudinary.Cloudinary
	folder  string
	timeout time.Duration
}

// New returns a Cloudinary uploader, or a disabled one when credentials are
// missing so the service still boots in development.
func New(cfg config.MediaConfig) (Uploader, error) {
	if !cfg.Configured() {
		return disabled{}, nil
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	return &CloudinaryUploader{cld: cld, folder: cfg.Folder, timeout: cfg.Timeout}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, _ string, r io.Reader) (string, error) {
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}
	res, err := u.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:         u.folder,
		ResourceType:   "auto",
		UniqueFilename: boolPtr(true),
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	// API-level failures come back with a nil error and a populated Error.
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", errors.New("cloudinary upload: empty url")
	}
	return res.SecureURL, nil
}

type disabled struct{}

func (disabled) Upload(context.Context, string, io.Reader) (string, error) {
	return "", ErrNotConfigured
}

func boolPtr(b bool) *bool { return &b }

package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructorsStatus(t *testing.T) {
	cases := []struct {
		err  *Error
		kind Kind
		code int
	}{
		{Validation("bad"), KindValidation, http.StatusBadRequest},
		{Auth("no"), KindAuth, http.StatusUnauthorized},
		{BadCredentials("Incorrect password"), KindAuth, http.StatusBadRequest},
		{NotFound("gone"), KindNotFound, http.StatusNotFound},
		{Conflict("dup"), KindConflict, http.StatusBadRequest},
		{Upload(http.StatusNotImplemented, "upload", nil), KindUpload, http.StatusNotImplemented},
		{Mail("mail", nil), KindMail, http.StatusInternalServerError},
		{Internal(nil), KindInternal, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if c.err.Kind != c.kind || c.err.Status != c.code {
			t.Errorf("%v: got kind=%s status=%d, want %s/%d", c.err, c.err.Kind, c.err.Status, c.kind, c.code)
		}
	}
}

func TestUnwrapAndAs(t *testing.T) {
	cause := errors.New("smtp down")
	err := fmt.Errorf("send: %w", Mail("Failed to send email", cause))

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
	if KindOf(err) != KindMail {
		t.Errorf("KindOf() = %q, want %q", KindOf(err), KindMail)
	}
	if !errors.Is(err, &Error{Kind: KindMail}) {
		t.Error("errors.Is(err, &Error{Kind: KindMail}) = false")
	}
}

func TestFromWrapsUnknown(t *testing.T) {
	ae := From(errors.New("boom"))
	if ae.Kind != KindInternal || ae.Status != http.StatusInternalServerError {
		t.Errorf("From() = %+v", ae)
	}
	if ae.Message == "boom" {
		t.Error("From() leaked the raw cause into Message")
	}
}

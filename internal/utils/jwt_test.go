package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	accessKey  = "access-secret"
	refreshKey = "refresh-secret"
)

func TestIssueAndParseAccess(t *testing.T) {
	tok, err := IssueAccess(accessKey, "u1", "alice", "a@x.io", time.Minute)
	if err != nil {
		t.Fatalf("IssueAccess() unexpected error: %v", err)
	}
	c, err := ParseAccess(accessKey, tok.Token)
	if err != nil {
		t.Fatalf("ParseAccess() unexpected error: %v", err)
	}
	if c.Subject != "u1" || c.Username != "alice" || c.Email != "a@x.io" {
		t.Errorf("ParseAccess() claims = %+v", c)
	}
	if c.ID == "" {
		t.Error("ParseAccess() jti is empty")
	}
}

func TestParseRejectsWrongType(t *testing.T) {
	ref, err := IssueRefresh(refreshKey, "u1", time.Hour)
	if err != nil {
		t.Fatalf("IssueRefresh() unexpected error: %v", err)
	}
	// Same key on purpose so only the typ check can reject it.
	if _, err := ParseAccess(refreshKey, ref.Token); !errors.Is(err, ErrTokenType) {
		t.Errorf("ParseAccess(refresh token) error = %v, want ErrTokenType", err)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	tok, _ := IssueAccess(accessKey, "u1", "alice", "a@x.io", time.Minute)
	if _, err := ParseAccess(refreshKey, tok.Token); err == nil {
		t.Error("ParseAccess() with wrong key: expected error")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	tok, _ := IssueAccess(accessKey, "u1", "alice", "a@x.io", -time.Minute)
	if _, err := ParseAccess(accessKey, tok.Token); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("ParseAccess(expired) error = %v, want ErrTokenExpired", err)
	}
}

func TestParseRejectsNoneAlg(t *testing.T) {
	c := Claims{Type: TypeAccess, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	s, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := ParseAccess(accessKey, s); err == nil {
		t.Error("ParseAccess(alg=none): expected error")
	}
}

func TestRefreshTokensAreUnique(t *testing.T) {
	a, _ := IssueRefresh(refreshKey, "u1", time.Hour)
	b, _ := IssueRefresh(refreshKey, "u1", time.Hour)
	if a.Token == b.Token {
		t.Error("two refresh tokens issued back to back are identical")
	}
	if HashToken(a.Token) == HashToken(b.Token) {
		t.Error("HashToken() collides for distinct tokens")
	}
}

func TestNewResetToken(t *testing.T) {
	tok, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken() unexpected error: %v", err)
	}
	if len(tok) != 64 {
		t.Errorf("len(NewResetToken()) = %d, want 64", len(tok))
	}
}

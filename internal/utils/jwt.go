// Package utils provides helpers for token creation and password hashing.
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "typ" claim.  An access token is never accepted
// where a refresh token is expected and vice versa.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Issuer is written to and required in the "iss" claim.
const Issuer = "todo-app"

// ErrTokenType is returned when a token parses but carries the wrong "typ".
var ErrTokenType = errors.New("unexpected token type")

// Claims is the payload of both token kinds.  Username and Email are only
// populated in access tokens.
type Claims struct {
	Type     string `json:"typ"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// SignedToken is a serialized JWT together with its expiry.
type SignedToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// IssueAccess signs a short‑lived HS256 access token for the user.
func IssueAccess(secret, userID, username, email string, ttl time.Duration) (SignedToken, error) {
	return issue(secret, Claims{Type: TypeAccess, Username: username, Email: email}, userID, ttl)
}

// IssueRefresh signs a long‑lived HS256 refresh token.  It carries only the
// subject; the server keeps a hash of it to detect superseded tokens.
func IssueRefresh(secret, userID string, ttl time.Duration) (SignedToken, error) {
	return issue(secret, Claims{Type: TypeRefresh}, userID, ttl)
}

func issue(secret string, c Claims, userID string, ttl time.Duration) (SignedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	// A fresh jti makes every token unique even when two are issued for the
	// same user within the same second.
	c.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID,
		Issuer:    Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// ParseAccess verifies signature, expiry, issuer and type of an access token.
func ParseAccess(secret, token string) (*Claims, error) {
	return parse(secret, token, TypeAccess)
}

// ParseRefresh verifies signature, expiry, issuer and type of a refresh token.
func ParseRefresh(secret, token string) (*Claims, error) {
	return parse(secret, token, TypeRefresh)
}

func parse(secret, token, want string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		// Only HMAC signatures are accepted; this rules out "none" and
		// algorithm-confusion attacks.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	if claims.Type != want {
		return nil, ErrTokenType
	}
	if claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidSubject
	}
	return claims, nil
}

// HashToken returns the SHA‑256 hash of a raw token as a hex string.  Only
// this digest is persisted for refresh and reset tokens.
func HashToken(raw string) string {
	// Compute the SHA‑256 digest of the raw bytes.
	sum := sha256.Sum256([]byte(raw))
	// Convert the binary digest to a hex string.
	return hex.EncodeToString(sum[:])
}

// NewResetToken returns a random 32‑byte token, hex encoded, for the
// password reset link.
func NewResetToken() (string, error) {
	return randomHex(32)
}

// randomHex returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.  If the random number generator
// fails, an error is returned.
func randomHex(n int) (string, error) {
	// Allocate a slice of n bytes.
	buf := make([]byte, n)
	// Fill the slice with secure random data.
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

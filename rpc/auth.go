package rpc

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errAdminDisabled = errors.New("rpc: admin methods disabled, no secret configured")
	errMissingBearer = errors.New("rpc: missing bearer token")
)

// authorizeAdmin verifies the Authorization header carries an HS256 token
// signed with the admin secret and not yet expired. Tokens without an
// expiry claim are rejected outright.
func (s *Server) authorizeAdmin(r *http.Request) error {
	if len(s.adminSecret) == 0 {
		return errAdminDisabled
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return errMissingBearer
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return errMissingBearer
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if raw == "" {
		return errMissingBearer
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("rpc: unexpected signing method %q", t.Method.Alg())
		}
		return s.adminSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("rpc: invalid token: %w", err)
	}
	if !token.Valid {
		return errors.New("rpc: invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("rpc: unexpected token claims")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return errors.New("rpc: token missing expiry")
	}
	if time.Now().After(exp.Time) {
		return errors.New("rpc: token expired")
	}
	return nil
}

// IssueAdminToken mints a short-lived HS256 token for the admin surface.
// Operator tooling calls it with the shared secret.
func IssueAdminToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errAdminDisabled
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Package auth verifies the storefront session tokens (HS256 JWTs issued by
// the shop's identity service) and issues them for local tooling and tests.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNoSecret is returned when the manager has no signing secret.
var ErrNoSecret = errors.New("auth: jwt secret not configured")

// Claims is the verified content of a session token.
type Claims struct {
	JTI       string
	UserID    string
	Login     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Manager signs and verifies tokens.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func New(secret, issuer string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

type jwtClaims struct {
	Login string `json:"login,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a token for userID.
func (m *Manager) Issue(_ context.Context, userID, login string) (string, Claims, error) {
	if len(m.secret) == 0 {
		return "", Claims{}, ErrNoSecret
	}
	now := time.Now().UTC()
	jti := uuid.NewString()

	cl := jwtClaims{
		Login: login,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(m.secret)
	if err != nil {
		return "", Claims{}, err
	}
	return tokenStr, Claims{
		JTI:       jti,
		UserID:    userID,
		Login:     login,
		IssuedAt:  cl.IssuedAt.Time,
		ExpiresAt: cl.ExpiresAt.Time,
	}, nil
}

// Parse verifies signature, expiry and (when configured) issuer.
func (m *Manager) Parse(_ context.Context, raw string) (Claims, error) {
	if len(m.secret) == 0 {
		return Claims{}, ErrNoSecret
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	var out jwtClaims
	tkn, err := jwt.ParseWithClaims(raw, &out, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return Claims{}, err
	}
	if !tkn.Valid || out.Subject == "" {
		return Claims{}, jwt.ErrTokenInvalidClaims
	}
	c := Claims{JTI: out.ID, UserID: out.Subject, Login: out.Login}
	if out.IssuedAt != nil {
		c.IssuedAt = out.IssuedAt.Time
	}
	if out.ExpiresAt != nil {
		c.ExpiresAt = out.ExpiresAt.Time
	}
	return c, nil
}

// Package session issues and validates opaque session tokens.
//
// A token is an HS256 JWT carrying only a random session id and its expiry.
// The id → actor binding lives server-side in a Store, so logout revokes a
// token immediately and clients never hold role or identity state.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"drainwatch/backend/internal/apperror"
	"drainwatch/backend/internal/config"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the token payload.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Token is an issued session token.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Manager issues, resolves and revokes session tokens.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager creates a Manager. A non-positive ttl falls back to config.SessionTTL.
func NewManager(store Store, secret []byte, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = config.SessionTTL
	}
	return &Manager{store: store, secret: secret, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source. Tests only.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Issue binds a fresh session to actorID and returns its signed token.
func (m *Manager) Issue(ctx context.Context, actorID string) (Token, error) {
	sid := uuid.NewString()
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.ttl)

	if err := m.store.Save(ctx, sid, actorID, m.ttl); err != nil {
		return Token{}, fmt.Errorf("save session: %w", err)
	}

	claims := Claims{
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    config.SessionIssuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign session: %w", err)
	}
	return Token{Value: signed, ExpiresAt: expiresAt}, nil
}

// Resolve returns the actor id and session id bound to raw. Absent, malformed,
// expired and revoked tokens all fail with Unauthenticated.
func (m *Manager) Resolve(ctx context.Context, raw string) (actorID, sessionID string, err error) {
	if raw == "" {
		return "", "", apperror.ErrUnauthenticated
	}
	claims, err := m.parse(raw, true)
	if err != nil {
		return "", "", apperror.Wrap(apperror.KindUnauthenticated, "invalid or expired session", err)
	}

	actorID, err = m.store.Lookup(ctx, claims.SessionID)
	if errors.Is(err, ErrNoSession) {
		return "", "", apperror.New(apperror.KindUnauthenticated, "invalid or expired session")
	}
	if err != nil {
		return "", "", apperror.Internal(fmt.Errorf("lookup session: %w", err))
	}
	return actorID, claims.SessionID, nil
}

// Revoke invalidates the session behind raw. Unknown, expired or garbage
// tokens are ignored.
func (m *Manager) Revoke(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	claims, err := m.parse(raw, false)
	if err != nil {
		return nil
	}
	return m.RevokeSession(ctx, claims.SessionID)
}

// RevokeSession deletes a session by id.
func (m *Manager) RevokeSession(ctx context.Context, sessionID string) error {
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return apperror.Internal(fmt.Errorf("delete session: %w", err))
	}
	return nil
}

func (m *Manager) parse(raw string, validateClaims bool) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if validateClaims {
		opts = append(opts, jwt.WithIssuer(config.SessionIssuer), jwt.WithExpirationRequired())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !tok.Valid || claims.SessionID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

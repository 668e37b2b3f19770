package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is the profile of the signed-in operator.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"nombre"`
	Email string `json:"email"`
	Role  string `json:"rol"`
}

// Session binds a browser cookie to a backend bearer token.
type Session struct {
	ID        string
	Token     string
	User      User
	ExpiresAt time.Time
	CreatedAt time.Time
}

// New starts a session for token. It expires after ttl or when the token
// itself expires, whichever comes first.
func New(token string, user User, ttl time.Duration, now time.Time) Session {
	expires := now.Add(ttl)
	if exp, ok := TokenExpiry(token); ok && exp.Before(expires) {
		expires = exp
	}
	return Session{
		ID:        uuid.NewString(),
		Token:     token,
		User:      user,
		ExpiresAt: expires,
		CreatedAt: now,
	}
}

// Expired reports whether the session or its token is past expiry.
func (s Session) Expired(now time.Time) bool {
	if !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt) {
		return true
	}
	if exp, ok := TokenExpiry(s.Token); ok && !now.Before(exp) {
		return true
	}
	return false
}

type ctxKey struct{}

// WithSession stores s on ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromStdContext returns the session stored by WithSession.
func FromStdContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}

package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is what the dashboard keeps about a logged in user. The token is
// signed by the ledger; here its claims are only read, never verified.
type Session struct {
	Token     string          `json:"-"`
	Subject   string          `json:"subject,omitempty"`
	ExpiresAt time.Time       `json:"expiresAt,omitempty"`
	User      json.RawMessage `json:"user,omitempty"`
}

// NewSession reads the subject and expiry out of a ledger token. Tokens
// that are not JWTs are accepted as opaque with no expiry.
func NewSession(token string, user json.RawMessage) (Session, error) {
	if token == "" {
		return Session{}, fmt.Errorf("new session: empty token")
	}
	s := Session{Token: token, User: user}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return s, nil
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		s.Subject = sub
	} else if id, ok := claims["id"].(string); ok {
		s.Subject = id
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	return s, nil
}

// Expired reports whether the token has an expiry that is already past.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

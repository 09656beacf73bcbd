package config

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mmcdole/elevate/internal/domain"
)

// SaveSession stores s as the current login and writes it to the config file.
func (c *Config) SaveSession(s domain.Session) error {
	c.mu.Lock()
	c.Session = SessionConfig{Token: s.Token, Email: s.Email, Name: s.Name, Role: s.Role}
	c.mu.Unlock()

	// Set fields individually to keep snake_case key names
	if c.v != nil {
		c.v.Set("session.token", s.Token)
		c.v.Set("session.email", s.Email)
		c.v.Set("session.name", s.Name)
		c.v.Set("session.role", s.Role)
	}
	return c.write()
}

// ClearSession removes the stored login while preserving other settings.
func (c *Config) ClearSession() error {
	return c.SaveSession(domain.Session{})
}

// Sessions returns a provider that reads the current login on every call.
// An expired token counts as logged out.
func (c *Config) Sessions() domain.SessionProvider {
	return domain.SessionFunc(func() (domain.Session, bool) {
		c.mu.RLock()
		s := c.Session
		c.mu.RUnlock()

		if s.Token == "" || TokenExpired(s.Token, time.Now()) {
			return domain.Session{}, false
		}
		return domain.Session{Token: s.Token, Email: s.Email, Name: s.Name, Role: s.Role}, true
	})
}

// TokenExpired reports whether token is a JWT whose exp claim is before now.
// The signature is not checked; the server does that. Opaque tokens and
// tokens without exp never expire locally.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

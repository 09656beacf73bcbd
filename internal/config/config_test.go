package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mmcdole/elevate/internal/cache"
	"github.com/mmcdole/elevate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644))
	return dir
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.Server.URL)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, 10*time.Minute, cfg.Checkout.CallbackTimeout)

	_, ok := cfg.Sessions().Session()
	assert.False(t, ok)
}

func TestLoadFrom_File(t *testing.T) {
	dir := writeConfig(t, `
server:
  url: https://api.elevate.test
  timeout: 5s
cache:
  ttl: 30m
  ttls:
    jobsData: 10m
    course-detail: 2h
    bogus: 1m
player:
  command: mpv
  args: ["--fs"]
session:
  token: abc
  email: ann@example.com
`)
	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://api.elevate.test", cfg.Server.URL)
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
	assert.Equal(t, []string{"--fs"}, cfg.Player.Args)

	p := cfg.CachePolicy()
	assert.Equal(t, 10*time.Minute, p.TTL(cache.KindJobList))
	assert.Equal(t, 2*time.Hour, p.TTL(cache.KindCourseDetail))
	assert.Equal(t, 30*time.Minute, p.TTL(cache.KindSavedJobs))
	assert.Len(t, p.Overrides, 2)

	s, ok := cfg.Sessions().Session()
	require.True(t, ok)
	assert.Equal(t, "abc", s.Token)
	assert.Equal(t, "ann@example.com", s.Email)
}

func TestLoadFrom_EnvOverride(t *testing.T) {
	t.Setenv("ELEVATE_SERVER_URL", "https://env.elevate.test")
	cfg, err := LoadFrom(writeConfig(t, "server:\n  url: https://file.elevate.test\n"))
	require.NoError(t, err)
	assert.Equal(t, "https://env.elevate.test", cfg.Server.URL)
}

func TestLoadFrom_InvalidFile(t *testing.T) {
	_, err := LoadFrom(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestSaveSession_PersistsAndClears(t *testing.T) {
	dir := writeConfig(t, "server:\n  url: https://api.elevate.test\n")
	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	provider := cfg.Sessions()
	require.NoError(t, cfg.SaveSession(domain.Session{Token: "tok", Email: "ann@example.com", Name: "Ann", Role: "user"}))

	s, ok := provider.Session()
	require.True(t, ok, "provider sees the new login without reloading")
	assert.Equal(t, "Ann", s.Name)

	reloaded, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "tok", reloaded.Session.Token)
	assert.Equal(t, "https://api.elevate.test", reloaded.Server.URL)

	require.NoError(t, cfg.ClearSession())
	_, ok = provider.Session()
	assert.False(t, ok)

	reloaded, err = LoadFrom(dir)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Session.Token)
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, TokenExpired(signed(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()}), now))
	assert.False(t, TokenExpired(signed(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}), now))
	assert.False(t, TokenExpired(signed(t, jwt.MapClaims{"id": 1}), now))
	assert.False(t, TokenExpired("opaque-token", now))
}

func TestSessions_ExpiredTokenIsLoggedOut(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session = SessionConfig{Token: signed(t, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})}

	_, ok := cfg.Sessions().Session()
	assert.False(t, ok)
}

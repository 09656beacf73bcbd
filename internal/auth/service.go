package auth

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mmcdole/elevate/internal/api"
	"github.com/mmcdole/elevate/internal/domain"
)

// client is the auth surface of the API (consumer-defined interface)
type client interface {
	Register(ctx context.Context, req api.RegisterRequest) error
	VerifyOTP(ctx context.Context, email, otp string) error
	Login(ctx context.Context, creds api.Credentials) (api.LoginResponse, error)
	ForgotPassword(ctx context.Context, email string) error
	VerifyResetOTP(ctx context.Context, email, otp string) error
	ResetPassword(ctx context.Context, email, otp, newPassword string) error
}

// sessionStore persists the login
type sessionStore interface {
	SaveSession(s domain.Session) error
	ClearSession() error
}

// cacheClearer drops every cached envelope
type cacheClearer interface {
	Clear()
}

// Service runs the account flows. It owns the only writes to the session.
type Service struct {
	client   client
	sessions sessionStore
	cache    cacheClearer
	validate *validator.Validate
	logger   *slog.Logger

	mu      sync.Mutex
	pending *api.Credentials // held between Register and VerifyOTP
}

// NewService creates an auth service.
func NewService(c client, sessions sessionStore, cache cacheClearer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:   c,
		sessions: sessions,
		cache:    cache,
		validate: newValidator(),
		logger:   logger,
	}
}

// Register creates an account and holds the credentials so VerifyOTP can
// log in straight away.
func (s *Service) Register(ctx context.Context, form RegisterForm) error {
	form.Email = normalizeEmail(form.Email)
	if err := check(s.validate, form); err != nil {
		return err
	}
	if err := s.client.Register(ctx, api.RegisterRequest{Name: form.Name, Email: form.Email, Password: form.Password}); err != nil {
		s.logger.Error("registration failed", "email", form.Email, "error", err)
		return err
	}

	s.mu.Lock()
	s.pending = &api.Credentials{Email: form.Email, Password: form.Password}
	s.mu.Unlock()
	s.logger.Info("registered", "email", form.Email)
	return nil
}

// VerifyOTP confirms a registration code. When the credentials from Register
// are still held the user is logged in and the session returned; otherwise
// the session is nil and the user logs in separately.
func (s *Service) VerifyOTP(ctx context.Context, form OTPForm) (*domain.Session, error) {
	form.Email = normalizeEmail(form.Email)
	if err := check(s.validate, form); err != nil {
		return nil, err
	}
	if err := s.client.VerifyOTP(ctx, form.Email, form.OTP); err != nil {
		return nil, err
	}

	s.mu.Lock()
	creds := s.pending
	if creds != nil && creds.Email == form.Email {
		s.pending = nil
	} else {
		creds = nil
	}
	s.mu.Unlock()

	if creds == nil {
		return nil, nil
	}
	session, err := s.Login(ctx, LoginForm{Email: creds.Email, Password: creds.Password})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Login authenticates and persists the session. Admin accounts are refused.
func (s *Service) Login(ctx context.Context, form LoginForm) (domain.Session, error) {
	form.Email = normalizeEmail(form.Email)
	if err := check(s.validate, form); err != nil {
		return domain.Session{}, err
	}

	resp, err := s.client.Login(ctx, api.Credentials{Email: form.Email, Password: form.Password})
	if err != nil {
		s.logger.Error("login failed", "email", form.Email, "error", err)
		return domain.Session{}, err
	}
	if strings.EqualFold(resp.Role, "admin") {
		s.logger.Warn("admin login refused", "email", form.Email)
		return domain.Session{}, domain.ErrAdminLogin
	}

	session := domain.Session{Token: resp.Token, Email: form.Email, Name: resp.Name, Role: resp.Role}
	if err := s.sessions.SaveSession(session); err != nil {
		return domain.Session{}, err
	}
	s.logger.Info("logged in", "email", form.Email)
	return session, nil
}

// ForgotPassword requests a reset code.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := check(s.validate, emailForm{Email: email}); err != nil {
		return err
	}
	return s.client.ForgotPassword(ctx, email)
}

// VerifyResetOTP checks a reset code.
func (s *Service) VerifyResetOTP(ctx context.Context, form OTPForm) error {
	form.Email = normalizeEmail(form.Email)
	if err := check(s.validate, form); err != nil {
		return err
	}
	return s.client.VerifyResetOTP(ctx, form.Email, form.OTP)
}

// ResetPassword sets a new password.
func (s *Service) ResetPassword(ctx context.Context, form ResetForm) error {
	form.Email = normalizeEmail(form.Email)
	if err := check(s.validate, form); err != nil {
		return err
	}
	if err := s.client.ResetPassword(ctx, form.Email, form.OTP, form.NewPassword); err != nil {
		return err
	}
	s.logger.Info("password reset", "email", form.Email)
	return nil
}

// Logout forgets the session and every cached envelope, which belong to the
// logged-in user.
func (s *Service) Logout() error {
	if err := s.sessions.ClearSession(); err != nil {
		return err
	}
	s.cache.Clear()
	s.logger.Info("logged out")
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package api

import (
	"context"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Credentials is the body of POST /api/auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token and the account role.
type LoginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// Register creates an account; the server mails a verification code.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.post(ctx, "/api/auth/register", req, nil)
}

// VerifyOTP confirms the registration code.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) error {
	return c.post(ctx, "/api/auth/verify-otp", otpRequest{Email: email, OTP: otp}, nil)
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResponse, error) {
	var resp LoginResponse
	err := c.post(ctx, "/api/auth/login", creds, &resp)
	return resp, err
}

// ForgotPassword mails a reset code.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.post(ctx, "/api/auth/forgot-password", emailRequest{Email: email}, nil)
}

// VerifyResetOTP checks a reset code before the new password is chosen.
func (c *Client) VerifyResetOTP(ctx context.Context, email, otp string) error {
	return c.post(ctx, "/api/auth/verify-reset-otp", otpRequest{Email: email, OTP: otp}, nil)
}

// ResetPassword sets a new password using a verified reset code.
func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	return c.post(ctx, "/api/auth/reset-password", resetRequest{Email: email, OTP: otp, NewPassword: newPassword}, nil)
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mmcdole/elevate/internal/auth"
	"github.com/mmcdole/elevate/internal/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// prompter reads answers from the terminal. Secrets are read without echo
// when stdin is a terminal.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.ErrOrStderr()}
}

func (p *prompter) ask(label, current string) (string, error) {
	if current != "" {
		return current, nil
	}
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) secret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return p.ask(label, "")
	}
	fmt.Fprintf(p.out, "%s: ", label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to your account",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			p := newPrompter(cmd)
			email, err := p.ask("Email", email)
			if err != nil {
				return err
			}
			password, err := p.secret("Password")
			if err != nil {
				return err
			}
			session, err := a.auth.Login(ctx, auth.LoginForm{Email: email, Password: password})
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Logged in as %s", displayName(session))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	return cmd
}

func registerCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and verify it with the emailed code",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			p := newPrompter(cmd)
			out := cmd.OutOrStdout()

			name, err := p.ask("Name", name)
			if err != nil {
				return err
			}
			email, err := p.ask("Email", email)
			if err != nil {
				return err
			}
			password, err := p.secret("Password")
			if err != nil {
				return err
			}
			if err := a.auth.Register(ctx, auth.RegisterForm{Name: name, Email: email, Password: password}); err != nil {
				return err
			}
			success(out, "Account created, a verification code was sent to %s", email)

			otp, err := p.ask("Verification code", "")
			if err != nil {
				return err
			}
			session, err := a.auth.VerifyOTP(ctx, auth.OTPForm{Email: email, OTP: otp})
			if err != nil {
				return err
			}
			if session == nil {
				success(out, "Email verified, run elevate login")
				return nil
			}
			success(out, "Email verified, logged in as %s", displayName(*session))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Your name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	return cmd
}

func verifyOTPCmd() *cobra.Command {
	var email, otp string
	cmd := &cobra.Command{
		Use:   "verify-otp",
		Short: "Verify a new account with the emailed code",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			p := newPrompter(cmd)
			email, err := p.ask("Email", email)
			if err != nil {
				return err
			}
			otp, err := p.ask("Verification code", otp)
			if err != nil {
				return err
			}
			if _, err := a.auth.VerifyOTP(ctx, auth.OTPForm{Email: email, OTP: otp}); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Email verified, run elevate login")
			return nil
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVar(&otp, "otp", "", "Six digit code")
	return cmd
}

func forgotPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Email a password reset code",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			email, err := newPrompter(cmd).ask("Email", email)
			if err != nil {
				return err
			}
			if err := a.auth.ForgotPassword(ctx, email); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Reset code sent, run elevate reset-password")
			return nil
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	return cmd
}

func resetPasswordCmd() *cobra.Command {
	var email, otp string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with an emailed reset code",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			p := newPrompter(cmd)
			email, err := p.ask("Email", email)
			if err != nil {
				return err
			}
			otp, err := p.ask("Reset code", otp)
			if err != nil {
				return err
			}
			if err := a.auth.VerifyResetOTP(ctx, auth.OTPForm{Email: email, OTP: otp}); err != nil {
				return err
			}
			password, err := p.secret("New password")
			if err != nil {
				return err
			}
			confirm, err := p.secret("Confirm password")
			if err != nil {
				return err
			}
			form := auth.ResetForm{Email: email, OTP: otp, NewPassword: password, ConfirmPassword: confirm}
			if err := a.auth.ResetPassword(ctx, form); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Password updated, run elevate login")
			return nil
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVar(&otp, "otp", "", "Six digit reset code")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear cached data",
		Args:  cobra.NoArgs,
		RunE: withApp(func(_ context.Context, cmd *cobra.Command, a *app, _ []string) error {
			if err := a.auth.Logout(); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Logged out")
			return nil
		}),
	}
}

func profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the logged in account",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			if _, ok := a.cfg.Sessions().Session(); !ok {
				return domain.ErrNoSession
			}
			user, err := a.client.GetProfile(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printField(out, "Name", user.Name)
			printField(out, "Email", user.Email)
			printField(out, "Role", user.Role)
			printField(out, "Server", a.cfg.Server.URL)
			return nil
		}),
	}
}

func displayName(s domain.Session) string {
	if s.Name != "" {
		return s.Name
	}
	return s.Email
}

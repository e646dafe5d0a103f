package cli

import (
	"context"
	"fmt"

	pkgapi "github.com/fitzone/fitzone-cli/pkg/api"

	"github.com/fitzone/fitzone-cli/internal/validation"
)

func (c *Cli) runForgotPassword(ctx context.Context, args []string) error {
	var email string
	var err error

	if len(args) > 0 {
		email = args[0]
	} else {
		email, err = c.io.ReadInput("Email: ")
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
	}
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}

	if err := c.authService.ForgotPassword(ctx, email); err != nil {
		return err
	}

	c.io.Printf("✓ If an account exists for %s, a reset email is on its way.\n", email)
	return nil
}

func (c *Cli) runResetPassword(ctx context.Context) error {
	c.io.Println("=== Reset Password ===")
	c.io.Println()

	token, err := c.io.ReadInput("Reset token (from the email): ")
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}

	password, err := c.io.ReadPassword("New password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := c.io.ReadPassword("Confirm new password: ")
	if err != nil {
		return fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	err = c.authService.ResetPassword(ctx, pkgapi.ResetPasswordRequest{
		Token:       token,
		NewPassword: password,
	})
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Password updated. You can now login with the new password.")
	return nil
}

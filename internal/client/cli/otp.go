package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitzone/fitzone-cli/internal/client/auth"
	"github.com/fitzone/fitzone-cli/internal/validation"
)

// runVerifyOTP завершает начатый ранее login по коду из письма
// Ожидающий challenge живет в памяти процесса, поэтому в новом запуске
// email запрашивается заново
func (c *Cli) runVerifyOTP(ctx context.Context, args []string) error {
	email, err := c.challengeEmail()
	if err != nil {
		return err
	}

	// Код можно передать аргументом или ввести интерактивно
	if len(args) > 0 {
		return c.verifyCode(ctx, email, args[0])
	}
	return c.promptOTP(ctx, email)
}

func (c *Cli) verifyCode(ctx context.Context, email, code string) error {
	if err := c.authService.ValidateOTP(ctx, email, code); err != nil {
		return err
	}
	c.io.Println("✓ Login successful!")
	return nil
}

func (c *Cli) runResendOTP(ctx context.Context) error {
	email, err := c.challengeEmail()
	if err != nil {
		return err
	}

	err = c.authService.ResendOTP(ctx, email)
	if errors.Is(err, auth.ErrResendCooldown) {
		return fmt.Errorf("please wait before requesting another code")
	}
	if err != nil {
		return err
	}

	c.io.Printf("✓ A fresh code has been sent to %s.\n", email)
	return nil
}

func (c *Cli) challengeEmail() (string, error) {
	if email := c.authService.PendingEmail(); email != "" {
		return email, nil
	}

	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return "", fmt.Errorf("failed to read email: %w", err)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return "", err
	}
	return email, nil
}

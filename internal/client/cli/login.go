package cli

import (
	"context"
	"fmt"

	"github.com/fitzone/fitzone-cli/internal/client/auth"
	"github.com/fitzone/fitzone-cli/internal/validation"
)

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	// Запрашиваем email
	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}

	// Запрашиваем пароль
	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	c.io.Println()
	c.io.Println("Authenticating...")

	outcome, err := c.authService.Login(ctx, email, password)
	if err != nil {
		return err
	}

	// Сервер мог выдать токены сразу, без второго фактора
	if outcome.Kind == auth.OutcomeSession {
		c.io.Println()
		c.io.Println("✓ Login successful!")
		return nil
	}

	// Нужен второй фактор: код уже отправлен на почту
	c.io.Println()
	if outcome.Message != "" {
		c.io.Println(outcome.Message)
	} else {
		c.io.Printf("A one-time code has been sent to %s.\n", outcome.Email)
	}

	return c.promptOTP(ctx, outcome.Email)
}

// promptOTP дочитывает одноразовый код и завершает вход
func (c *Cli) promptOTP(ctx context.Context, email string) error {
	code, err := c.io.ReadInput("One-time code: ")
	if err != nil {
		return fmt.Errorf("failed to read code: %w", err)
	}

	if err := c.authService.ValidateOTP(ctx, email, code); err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Println("Your session has been saved securely.")
	return nil
}

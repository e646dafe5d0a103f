package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	pkgapi "github.com/fitzone/fitzone-cli/pkg/api"

	"github.com/fitzone/fitzone-cli/internal/client/auth"
)

func (c *Cli) runRegister(ctx context.Context) error {
	c.io.Println("=== Register ===")
	c.io.Println()

	req := pkgapi.RegisterRequest{Role: pkgapi.RoleUser}

	fields := []struct {
		prompt string
		dest   *string
	}{
		{"First name: ", &req.FirstName},
		{"Last name: ", &req.LastName},
		{"Email: ", &req.Email},
		{"Document type (CC/TI/CE/PP): ", &req.DocumentType},
		{"Document number: ", &req.DocumentNumber},
		{"Phone number: ", &req.PhoneNumber},
		{"Birth date (YYYY-MM-DD): ", &req.BirthDate},
		{"Emergency contact phone: ", &req.EmergencyContactPhone},
		{"Medical conditions (optional): ", &req.MedicalConditions},
	}

	for _, f := range fields {
		value, err := c.io.ReadInput(f.prompt)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		*f.dest = value
	}
	req.DocumentType = strings.ToUpper(req.DocumentType)

	location, err := c.io.ReadInput("Main location ID (optional): ")
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if location != "" {
		id, err := strconv.ParseInt(location, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid location ID: %q", location)
		}
		req.MainLocationID = id
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := c.io.ReadPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}
	req.Password = password

	c.io.Println()
	c.io.Println("Creating account...")

	outcome, err := c.authService.Register(ctx, req)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Account created!")

	if outcome.Kind == auth.OutcomeSession {
		c.io.Println("You are now signed in.")
		return nil
	}

	// Сервер требует подтвердить вход одноразовым кодом
	if outcome.Message != "" {
		c.io.Println(outcome.Message)
	} else {
		c.io.Printf("A one-time code has been sent to %s.\n", outcome.Email)
	}
	return c.promptOTP(ctx, outcome.Email)
}

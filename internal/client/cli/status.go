package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Authentication Status ===")
	c.io.Println()

	if !c.authService.IsAuthenticated(ctx) {
		c.io.Println("Status: Not authenticated")
		if pending := c.authService.PendingEmail(); pending != "" {
			c.io.Printf("Login in progress for %s. Run 'fitzone verify' to finish.\n", pending)
		} else {
			c.io.Println()
			c.io.Println("Run 'fitzone login' to authenticate.")
		}
		return nil
	}

	c.io.Println("Status: Authenticated")

	// Identity берется из локального кэша; при промахе - с сервера
	user, err := c.authService.UserInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to get user info: %w", err)
	}
	if user.Name != "" {
		c.io.Printf("Name:  %s\n", user.Name)
	}
	c.io.Printf("Email: %s\n", user.Email)

	if expiresAt, ok := c.authService.TokenExpiresAt(ctx); ok {
		c.io.Printf("Token expires: %s\n", expiresAt.Format(time.RFC3339))
		if remaining := time.Until(expiresAt); remaining > 0 {
			c.io.Printf("Time remaining: %s\n", remaining.Round(time.Second))
		} else {
			c.io.Println("⚠️  Token has expired. It will be refreshed on the next request.")
		}
	}

	return nil
}

package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/template"
)

func (c *Cli) runSubscribe(ctx context.Context, args []string) error {
	if err := c.requireAuth(ctx); err != nil {
		return err
	}

	planID, err := c.argOrPromptID(args, "Plan ID: ")
	if err != nil {
		return err
	}

	plan, err := c.membership.Plan(ctx, planID)
	if err != nil {
		return fmt.Errorf("failed to load plan: %w", err)
	}

	user, err := c.authService.UserInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to get user info: %w", err)
	}

	c.io.Printf("Subscribing to %s (%.2f USD/month)...\n", plan.Name, plan.MonthlyPrice)

	sub, err := c.membership.Subscribe(ctx, user.ID, plan.ID)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Subscription created!")
	c.io.Printf("Plan:    %s\n", sub.MembershipTypeName)
	c.io.Printf("Status:  %s\n", sub.Status)
	c.io.Printf("Expires: %s\n", sub.ExpirationDate)
	c.io.Println()
	c.io.Printf("Run 'fitzone pay %d' to activate it with a card payment.\n", plan.ID)
	return nil
}

func (c *Cli) runSubscriptions(ctx context.Context) error {
	if err := c.requireAuth(ctx); err != nil {
		return err
	}

	user, err := c.authService.UserInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to get user info: %w", err)
	}

	subs, err := c.membership.Subscriptions(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load subscriptions: %w", err)
	}

	tmpl, err := template.New("subscriptions").Parse(subscriptionsListTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return tmpl.Execute(c.io, subs)
}

func (c *Cli) runCancel(ctx context.Context, args []string) error {
	if err := c.requireAuth(ctx); err != nil {
		return err
	}

	subscriptionID, err := c.argOrPromptID(args, "Subscription ID: ")
	if err != nil {
		return err
	}

	confirmed, err := c.io.Confirm(fmt.Sprintf("Cancel subscription #%d?", subscriptionID))
	if err != nil {
		return err
	}
	if !confirmed {
		c.io.Println("Aborted.")
		return nil
	}

	sub, err := c.membership.Cancel(ctx, subscriptionID)
	if err != nil {
		return err
	}

	c.io.Printf("✓ Subscription #%d cancelled (status: %s).\n", sub.SubscriptionID, sub.Status)
	return nil
}

func (c *Cli) runPay(ctx context.Context, args []string) error {
	if err := c.requireAuth(ctx); err != nil {
		return err
	}

	planID, err := c.argOrPromptID(args, "Plan ID: ")
	if err != nil {
		return err
	}

	plan, err := c.membership.Plan(ctx, planID)
	if err != nil {
		return fmt.Errorf("failed to load plan: %w", err)
	}

	c.io.Printf("Creating payment for %s (%.2f USD)...\n", plan.Name, plan.MonthlyPrice)

	clientSecret, err := c.membership.CreatePayment(ctx, plan)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Payment created.")
	c.io.Printf("Client secret: %s\n", clientSecret)
	c.io.Println("Complete the card confirmation in the FitZone web app or mobile app.")
	return nil
}

func (c *Cli) argOrPromptID(args []string, prompt string) (int64, error) {
	var raw string
	var err error

	if len(args) > 0 {
		raw = args[0]
	} else {
		raw, err = c.io.ReadInput(prompt)
		if err != nil {
			return 0, fmt.Errorf("failed to read input: %w", err)
		}
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ID: %q", raw)
	}
	return id, nil
}

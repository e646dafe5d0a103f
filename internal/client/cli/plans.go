package cli

import (
	"context"
	"fmt"
	"text/template"
)

func (c *Cli) runPlans(ctx context.Context) error {
	plans, err := c.membership.ListPlans(ctx)
	if err != nil {
		return fmt.Errorf("failed to load plans: %w", err)
	}

	tmpl, err := template.New("plans").Parse(plansListTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return tmpl.Execute(c.io, plans)
}

package cli

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	pkgapi "github.com/fitzone/fitzone-cli/pkg/api"

	"github.com/fitzone/fitzone-cli/internal/client/auth"
	"github.com/fitzone/fitzone-cli/internal/client/idle"
	"github.com/fitzone/fitzone-cli/internal/client/iocli"
	"github.com/fitzone/fitzone-cli/internal/client/push"
)

// runDashboard держит интерактивную сессию: команды, live-обновления
// членства и наблюдатель бездействия с предупреждением перед выходом
func (c *Cli) runDashboard(ctx context.Context) error {
	if err := c.requireAuth(ctx); err != nil {
		return err
	}

	user, err := c.authService.UserInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to get user info: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prompt := &sessionPrompt{io: c.io, keep: make(chan struct{}, 1)}

	idleTimeout := c.effectiveIdleTimeout()

	monitor := idle.NewMonitor(idle.Config{Timeout: idleTimeout}, prompt, func() {
		// Окно бездействия истекло: принудительный выход
		if err := c.authService.LogoutWithReason(ctx, auth.ReasonIdle); err != nil {
			c.io.Printf("Warning: failed to clear session: %v\n", err)
		}
	})

	// Проактивный refresh сверяется с этим источником активности
	c.authService.SetActivitySource(monitor, idleTimeout)

	monitor.Start(ctx)
	defer monitor.Stop()

	// Канал аутентификации: false означает конец сессии (logout, idle,
	// невосстановимый 401) и закрытие дашборда
	sessionCh, unsubscribe := c.session.Subscribe()
	defer unsubscribe()

	// Push-канал обновлений членства; его отказ не роняет дашборд
	pushClient := push.New(c.wsURL)
	if err := pushClient.Start(ctx); err != nil {
		c.io.Printf("Warning: live updates unavailable: %v\n", err)
		pushClient = nil
	} else {
		defer func() {
			_ = pushClient.Close()
		}()
	}

	c.io.Printf("Welcome back, %s!\n", displayName(user.Name, user.Email))
	c.io.Println("Type 'help' for commands, 'exit' to leave.")

	lines := readLines(c.io)

	var pushUpdates <-chan pkgapi.MembershipUpdate = noUpdates
	if pushClient != nil {
		pushUpdates = pushClient.Updates()
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case authenticated := <-sessionCh:
			if !authenticated {
				c.io.Println()
				c.io.Println("Session ended. Goodbye!")
				return nil
			}

		case update, ok := <-pushUpdates:
			if !ok {
				pushUpdates = noUpdates
				continue
			}
			if update.UserID != 0 && update.UserID != user.ID {
				continue
			}
			c.io.Println()
			c.io.Printf("● Membership update: %s is now %s", update.MembershipTypeName, update.Status)
			if update.ExpirationDate != "" {
				c.io.Printf(" (expires %s)", update.ExpirationDate)
			}
			c.io.Println()

		case line, ok := <-lines:
			if !ok {
				return nil
			}

			// Во время предупреждения ввод трактуется как "остаться"
			if prompt.Active() {
				prompt.Answer()
				continue
			}

			monitor.Touch()
			if done := c.dashboardCommand(ctx, line); done {
				return nil
			}
		}
	}
}

// effectiveIdleTimeout - настроенное окно бездействия, либо дефолт
func (c *Cli) effectiveIdleTimeout() time.Duration {
	if c.idleTimeout > 0 {
		return c.idleTimeout
	}
	return idle.DefaultTimeout
}

func (c *Cli) dashboardCommand(ctx context.Context, command string) (done bool) {
	switch command {
	case "":
	case "help":
		c.io.Println("Commands: plans, subscriptions, status, logout, exit")
	case "plans":
		if err := c.runPlans(ctx); err != nil {
			c.io.Printf("Error: %v\n", err)
		}
	case "subscriptions":
		if err := c.runSubscriptions(ctx); err != nil {
			c.io.Printf("Error: %v\n", err)
		}
	case "status":
		if err := c.runStatus(ctx); err != nil {
			c.io.Printf("Error: %v\n", err)
		}
	case "logout":
		if err := c.runLogout(ctx); err != nil {
			c.io.Printf("Error: %v\n", err)
		}
		// Завершение придет через sessionCh
	case "exit", "quit":
		c.io.Println("Goodbye! Your session remains active.")
		return true
	default:
		c.io.Printf("Unknown command: %s (try 'help')\n", command)
	}
	return false
}

// noUpdates - постоянно пустой канал для дашборда без push-соединения
var noUpdates = make(chan pkgapi.MembershipUpdate)

// readLines превращает блокирующий ReadInput в канал строк
func readLines(io iocli.IO) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := io.ReadInput("> ")
			if err != nil {
				return
			}
			lines <- line
		}
	}()
	return lines
}

// sessionPrompt реализует idle.Prompt поверх терминала.
// Ответом пользователя управляет главный цикл дашборда через Answer.
type sessionPrompt struct {
	io     iocli.IO
	keep   chan struct{}
	active atomic.Bool
}

// Active reports whether a warning is currently on screen.
func (p *sessionPrompt) Active() bool {
	return p.active.Load()
}

// Answer регистрирует выбор пользователя остаться в сессии
func (p *sessionPrompt) Answer() {
	select {
	case p.keep <- struct{}{}:
	default:
	}
}

// Warn показывает отсчет и блокируется до решения или истечения времени
func (p *sessionPrompt) Warn(ctx context.Context, countdown time.Duration) idle.Decision {
	p.active.Store(true)
	defer p.active.Store(false)

	deadline := time.Now().Add(countdown)
	p.io.Printf("\n⚠️  You have been inactive. Signing out in %d seconds.\n", int(countdown.Seconds()))
	p.io.Printf("Press Enter to stay signed in.\n")

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	timer := time.NewTimer(countdown)
	defer timer.Stop()

	for {
		select {
		case <-p.keep:
			p.io.Printf("✓ Session extended.\n")
			return idle.DecisionKeepSession
		case <-ticker.C:
			if remaining := time.Until(deadline).Round(time.Second); remaining > 0 {
				p.io.Printf("Signing out in %s...\n", remaining)
			}
		case <-timer.C:
			return idle.DecisionLogout
		case <-ctx.Done():
			return idle.DecisionLogout
		}
	}
}

func displayName(name, email string) string {
	if name != "" {
		return name
	}
	return email
}

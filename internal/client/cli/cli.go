package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fitzone/fitzone-cli/internal/client/api"
	"github.com/fitzone/fitzone-cli/internal/client/auth"
	"github.com/fitzone/fitzone-cli/internal/client/iocli"
	"github.com/fitzone/fitzone-cli/internal/client/membership"
	"github.com/fitzone/fitzone-cli/internal/client/session"
)

// Cli связывает команды терминала с сервисами клиента
type Cli struct {
	apiClient   *api.Client
	authService *auth.Service
	membership  *membership.Service
	session     *session.State
	io          iocli.IO
	wsURL       string
	idleTimeout time.Duration
}

func New(
	apiClient *api.Client,
	authService *auth.Service,
	membershipService *membership.Service,
	sessionState *session.State,
	io iocli.IO,
	wsURL string,
	idleTimeout time.Duration,
) *Cli {
	return &Cli{
		apiClient:   apiClient,
		authService: authService,
		membership:  membershipService,
		session:     sessionState,
		io:          io,
		wsURL:       wsURL,
		idleTimeout: idleTimeout,
	}
}

func (c *Cli) Run(ctx context.Context, command string, args []string) {
	var err error

	switch command {
	case "register":
		err = c.runRegister(ctx)
	case "login":
		err = c.runLogin(ctx)
	case "verify":
		err = c.runVerifyOTP(ctx, args)
	case "resend-otp":
		err = c.runResendOTP(ctx)
	case "logout":
		err = c.runLogout(ctx)
	case "status":
		err = c.runStatus(ctx)
	case "forgot-password":
		err = c.runForgotPassword(ctx, args)
	case "reset-password":
		err = c.runResetPassword(ctx)
	case "plans":
		err = c.runPlans(ctx)
	case "subscribe":
		err = c.runSubscribe(ctx, args)
	case "subscriptions":
		err = c.runSubscriptions(ctx)
	case "cancel":
		err = c.runCancel(ctx, args)
	case "pay":
		err = c.runPay(ctx, args)
	case "dashboard":
		err = c.runDashboard(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		PrintUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// requireAuth fails fast before commands that need a session.
func (c *Cli) requireAuth(ctx context.Context) error {
	if !c.authService.IsAuthenticated(ctx) {
		return fmt.Errorf("not authenticated. Please run 'fitzone login' first")
	}
	return nil
}

func PrintUsage() {
	fmt.Print(usageTemplate)
}

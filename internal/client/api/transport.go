package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Retry policy for non-auth endpoints.
const (
	RetryCount = 2
	RetryDelay = 1 * time.Second
)

// authEndpoints перечисляет пути, на которые bearer не ставится и для
// которых не бывает ни refresh-а по 401, ни автоматических ретраев
var authEndpoints = []string{
	"/auth/login-2fa",
	"/auth/generate-otp",
	"/auth/resend-otp",
	"/auth/verify-otp",
	"/auth/refresh",
	"/auth/forgot-password",
	"/auth/reset-password",
	"/users/public/register",
}

// IsAuthEndpoint reports whether the path belongs to the authentication
// endpoint exclusion set.
func IsAuthEndpoint(path string) bool {
	for _, endpoint := range authEndpoints {
		if strings.HasPrefix(path, endpoint) {
			return true
		}
	}
	return false
}

//go:generate moq -out tokensource_mock.go . TokenSource

// TokenSource supplies and renews the bearer credential. Implemented by the
// auth service; the transport never touches the credential store directly.
type TokenSource interface {
	// Token returns the current access token, or "" when none is stored
	Token(ctx context.Context) string

	// Refresh forces one token refresh and returns the new access token.
	// A rejected refresh token causes a full logout inside the implementation.
	Refresh(ctx context.Context) (string, error)

	// SessionExpired is the central logout path for a non-refreshable 401
	SessionExpired(ctx context.Context)
}

// refreshState - явная машина состояний refresh-цикла одного запроса
type refreshState int

const (
	stateNormal refreshState = iota
	stateRefreshing
	stateFailed
)

// Authorizer attaches the bearer credential to outbound calls and, on a 401,
// runs at most one refresh-and-retry cycle for that request. It never loops:
// a second 401 after the retry goes through the logout path instead.
type Authorizer struct {
	Base   http.RoundTripper
	Tokens TokenSource
}

func (a *Authorizer) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	authEndpoint := IsAuthEndpoint(req.URL.Path)

	out, err := cloneRequest(req)
	if err != nil {
		return nil, err
	}
	if out.Header.Get("X-Request-Id") == "" {
		out.Header.Set("X-Request-Id", ulid.Make().String())
	}

	token := ""
	if !authEndpoint {
		token = a.Tokens.Token(ctx)
		if token != "" {
			out.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := a.Base.RoundTrip(out)
	if err != nil || authEndpoint || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// 401 на неавторизационном endpoint
	if token == "" {
		// Нечего освежать: токена не было вовсе
		a.Tokens.SessionExpired(ctx)
		return resp, nil
	}

	state := stateRefreshing
	slog.Debug("access token rejected, refreshing", "path", req.URL.Path)
	drainBody(resp)

	newToken, refreshErr := a.Tokens.Refresh(ctx)
	if refreshErr != nil {
		state = stateFailed
		slog.Debug("refresh failed", "path", req.URL.Path, "state", int(state))
		// Logout уже выполнен внутри Refresh; наружу уходит причина
		return nil, fmt.Errorf("request unauthorized and session refresh failed: %w", refreshErr)
	}

	retry, err := cloneRequest(req)
	if err != nil {
		return nil, err
	}
	retry.Header.Set("X-Request-Id", ulid.Make().String())
	retry.Header.Set("Authorization", "Bearer "+newToken)

	resp, err = a.Base.RoundTrip(retry)
	if err == nil && resp.StatusCode == http.StatusUnauthorized {
		// Второй 401 подряд: второго refresh не будет
		a.Tokens.SessionExpired(ctx)
	}
	return resp, err
}

// RetryTransport retries transport failures and 5xx responses a bounded
// number of times with a fixed delay. The policy is endpoint-based: auth
// endpoints are never retried. 401 is deliberately left to the Authorizer.
type RetryTransport struct {
	Base    http.RoundTripper
	Delay   time.Duration
	Retries int
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	var resp *http.Response
	var err error

	for attempt := 0; ; attempt++ {
		out, cloneErr := cloneRequest(req)
		if cloneErr != nil {
			return nil, cloneErr
		}

		resp, err = t.Base.RoundTrip(out)

		retryable := !IsAuthEndpoint(req.URL.Path) &&
			attempt < t.Retries &&
			(err != nil || resp.StatusCode >= 500)
		if !retryable {
			return resp, err
		}

		if resp != nil {
			drainBody(resp)
		}
		slog.Debug("retrying request", "path", req.URL.Path, "attempt", attempt+1)

		select {
		case <-time.After(t.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// cloneRequest делает копию запроса с перемотанным телом (GetBody)
func cloneRequest(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("request body is not replayable")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to rewind request body: %w", err)
	}
	out.Body = body
	return out, nil
}

// drainBody дочитывает и закрывает тело, чтобы переиспользовать соединение
func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

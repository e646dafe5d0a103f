package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	pkgapi "github.com/fitzone/fitzone-cli/pkg/api"

	"github.com/fitzone/fitzone-cli/internal/client/api"
	"github.com/fitzone/fitzone-cli/internal/client/session"
	"github.com/fitzone/fitzone-cli/internal/client/storage"
	"github.com/fitzone/fitzone-cli/internal/validation"
)

// Token lifetime policy.
const (
	// DefaultTokenLifetime используется когда сервер не сообщил ни
	// expires_in, ни читаемого exp claim
	DefaultTokenLifetime = 15 * time.Minute

	// Проактивный refresh планируется на 75% времени жизни токена
	refreshNumerator   = 3
	refreshDenominator = 4

	// MaxRefreshDelay ограничивает задержку проактивного refresh сверху
	MaxRefreshDelay = 30 * time.Minute

	// ResendCooldown - клиентский интервал между повторными отправками OTP
	ResendCooldown = 30 * time.Second
)

// Logout reasons passed to the session-expired notifier.
const (
	ReasonExpired = "expired"
	ReasonIdle    = "idle"
)

// ActivitySource reports the last observed user interaction. The proactive
// refresh consults it at fire time: an idle user is not kept alive.
type ActivitySource interface {
	LastActivity() time.Time
}

// OutcomeKind различает варианты успешного исхода login/register
type OutcomeKind int

const (
	// OutcomeSession - сервер сразу выдал токены, сессия установлена
	OutcomeSession OutcomeKind = iota
	// OutcomeOTPRequired - нужен второй фактор, сессии еще нет
	OutcomeOTPRequired
)

// LoginOutcome - размеченный результат первого фактора
type LoginOutcome struct {
	Email   string
	Message string
	Kind    OutcomeKind
}

// Service владеет жизненным циклом сессии: login -> OTP -> токены ->
// проактивный refresh -> logout. Единственный писатель session.State.
type Service struct {
	apiClient *api.Client
	store     *Store
	session   *session.State

	activity         ActivitySource
	onSessionExpired func(reason string)
	idleTimeout      time.Duration

	resendLimiter *rate.Limiter

	// refreshMu сериализует refresh: конкурентные 401 не должны
	// перемешивать записи в хранилище
	refreshMu    sync.Mutex
	timerMu      sync.Mutex
	refreshTimer *time.Timer

	pendingMu    sync.Mutex
	pendingEmail string

	now func() time.Time
}

// NewService создает сервис авторизации
func NewService(apiClient *api.Client, store *Store, sessionState *session.State) *Service {
	return &Service{
		apiClient:     apiClient,
		store:         store,
		session:       sessionState,
		resendLimiter: rate.NewLimiter(rate.Every(ResendCooldown), 1),
		idleTimeout:   5 * time.Minute,
		now:           time.Now,
	}
}

// SetActivitySource wires the idle monitor in; idleTimeout is the window
// after which a proactive refresh is skipped.
func (s *Service) SetActivitySource(src ActivitySource, idleTimeout time.Duration) {
	s.activity = src
	if idleTimeout > 0 {
		s.idleTimeout = idleTimeout
	}
}

// SetSessionExpiredHandler registers the notifier invoked on forced logout
// (refresh failure, idle expiry). The CLI uses it to print the reason and
// return the user to the login entry point.
func (s *Service) SetSessionExpiredHandler(fn func(reason string)) {
	s.onSessionExpired = fn
}

// Login выполняет первый фактор аутентификации
// При требовании второго фактора записывает PendingAuthChallenge и сессию
// не устанавливает; при немедленных токенах устанавливает сессию сразу
func (s *Service) Login(ctx context.Context, email, password string) (*LoginOutcome, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("invalid email: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	// Снимок generation до сетевого вызова: поздний ответ после logout
	// не должен воскресить очищенную сессию
	generation := s.session.Generation()

	resp, err := s.apiClient.Login2FA(ctx, pkgapi.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	if resp.OTPRequired() {
		s.setPending(email)
		return &LoginOutcome{Kind: OutcomeOTPRequired, Email: email, Message: resp.Message}, nil
	}

	if resp.AccessToken != "" {
		if err := s.establishSession(ctx, generation, resp.AccessToken, resp.RefreshToken, resp.ExpiresIn); err != nil {
			return nil, err
		}
		return &LoginOutcome{Kind: OutcomeSession, Email: email, Message: resp.Message}, nil
	}

	return nil, fmt.Errorf("unexpected login response: no token and no second factor requested")
}

// PendingEmail возвращает email, ожидающий подтверждения OTP
// Пустая строка - challenge нет (сброшен или не создавался)
func (s *Service) PendingEmail() string {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return s.pendingEmail
}

// ClearPendingChallenge сбрасывает ожидающий challenge (отмена OTP flow)
func (s *Service) ClearPendingChallenge() {
	s.setPending("")
}

// GenerateOTP запрашивает отправку одноразового кода
// Ошибки провайдера (rate limiting и т.п.) отдаются как есть
func (s *Service) GenerateOTP(ctx context.Context, email string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	return s.apiClient.GenerateOTP(ctx, email)
}

// ResendOTP повторно запрашивает код с клиентским cooldown
func (s *Service) ResendOTP(ctx context.Context, email string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	if !s.resendLimiter.Allow() {
		return ErrResendCooldown
	}
	return s.apiClient.ResendOTP(ctx, email)
}

// ValidateOTP обменивает email+код на токены
// Успех устанавливает сессию и сбрасывает PendingAuthChallenge;
// неуспешный ответ сессию не создает никогда
func (s *Service) ValidateOTP(ctx context.Context, email, code string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	if err := validation.ValidateOTP(code); err != nil {
		return fmt.Errorf("invalid code: %w", err)
	}

	generation := s.session.Generation()

	resp, err := s.apiClient.VerifyOTP(ctx, email, code)
	if err != nil {
		return err
	}
	if resp.AccessToken == "" {
		return fmt.Errorf("verification succeeded but no token was issued")
	}

	if err := s.establishSession(ctx, generation, resp.AccessToken, resp.RefreshToken, resp.ExpiresIn); err != nil {
		return err
	}
	s.ClearPendingChallenge()
	return nil
}

// RefreshToken обменивает сохраненный refresh token на новую пару токенов
// Без сохраненного refresh token падает сразу, не выходя в сеть.
// 401/403 на refresh означает что сессию не спасти: полный logout как
// side effect, затем ошибка наружу
func (s *Service) RefreshToken(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	refreshToken, err := s.store.RefreshToken(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNoRefreshToken
		}
		return fmt.Errorf("failed to read refresh token: %w", err)
	}

	generation := s.session.Generation()

	resp, err := s.apiClient.Refresh(ctx, refreshToken)
	if err != nil {
		if api.IsStatus(err, 401) || api.IsStatus(err, 403) {
			slog.Warn("refresh token rejected, terminating session")
			if logoutErr := s.logout(ctx, ReasonExpired); logoutErr != nil {
				slog.Warn("failed to clear session after rejected refresh", "error", logoutErr)
			}
		}
		return err
	}

	return s.establishSession(ctx, generation, resp.AccessToken, resp.RefreshToken, resp.ExpiresIn)
}

// Register создает аккаунт
// Если сервер вернул токены - сессия устанавливается сразу, иначе вызывающий
// ведет пользователя через OTP flow
func (s *Service) Register(ctx context.Context, req pkgapi.RegisterRequest) (*LoginOutcome, error) {
	if err := validation.ValidateStruct(&req); err != nil {
		return nil, fmt.Errorf("invalid registration data: %w", err)
	}

	generation := s.session.Generation()

	resp, err := s.apiClient.Register(ctx, req)
	if err != nil {
		return nil, err
	}

	// Кэшируем identity только целиком: без user id запись бесполезна
	if resp.UserID != 0 {
		user := &pkgapi.UserInfo{
			ID:    resp.UserID,
			Email: req.Email,
			Name:  req.FirstName + " " + req.LastName,
		}
		if err := s.store.SaveIdentity(ctx, user); err != nil {
			slog.Warn("failed to cache user identity", "error", err)
		}
	}

	if resp.AccessToken != "" {
		if err := s.establishSession(ctx, generation, resp.AccessToken, resp.RefreshToken, resp.ExpiresIn); err != nil {
			return nil, err
		}
		return &LoginOutcome{Kind: OutcomeSession, Email: req.Email, Message: resp.Message}, nil
	}

	s.setPending(req.Email)
	return &LoginOutcome{Kind: OutcomeOTPRequired, Email: req.Email, Message: resp.Message}, nil
}

// ForgotPassword запрашивает письмо для сброса пароля
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	return s.apiClient.ForgotPassword(ctx, email)
}

// ResetPassword устанавливает новый пароль по токену из письма
func (s *Service) ResetPassword(ctx context.Context, req pkgapi.ResetPasswordRequest) error {
	if err := validation.ValidateStruct(&req); err != nil {
		return fmt.Errorf("invalid reset request: %w", err)
	}
	return s.apiClient.ResetPassword(ctx, req)
}

// UserInfo возвращает identity: из кэша, либо лениво с сервера
func (s *Service) UserInfo(ctx context.Context) (*pkgapi.UserInfo, error) {
	if user, err := s.store.Identity(ctx); err == nil {
		return user, nil
	}

	user, err := s.apiClient.UserInfo(ctx)
	if err != nil {
		return nil, err
	}
	if !user.Valid() {
		return nil, fmt.Errorf("server returned incomplete user info")
	}
	if err := s.store.SaveIdentity(ctx, user); err != nil {
		slog.Warn("failed to cache user identity", "error", err)
	}
	return user, nil
}

// Logout завершает сессию по явному действию пользователя
func (s *Service) Logout(ctx context.Context) error {
	return s.logout(ctx, "")
}

// LogoutWithReason завершает сессию принудительно (idle, refresh failure)
// и уведомляет обработчик с причиной
func (s *Service) LogoutWithReason(ctx context.Context, reason string) error {
	return s.logout(ctx, reason)
}

// IsAuthenticated - синхронная проверка "токен есть"
func (s *Service) IsAuthenticated(ctx context.Context) bool {
	return s.store.HasToken(ctx)
}

// TokenExpiresAt возвращает момент истечения access token, если он сохранен
func (s *Service) TokenExpiresAt(ctx context.Context) (time.Time, bool) {
	token, err := s.store.Token(ctx)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(token.ExpiresAt, 0), true
}

// Token implements api.TokenSource.
func (s *Service) Token(ctx context.Context) string {
	token, err := s.store.Token(ctx)
	if err != nil {
		return ""
	}
	return token.Token
}

// Refresh implements api.TokenSource: one forced refresh, new token back.
func (s *Service) Refresh(ctx context.Context) (string, error) {
	if err := s.RefreshToken(ctx); err != nil {
		return "", err
	}
	token, err := s.store.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("refreshed but no token stored: %w", err)
	}
	return token.Token, nil
}

// SessionExpired implements api.TokenSource: the central logout path for a
// non-refreshable 401.
func (s *Service) SessionExpired(ctx context.Context) {
	if err := s.logout(ctx, ReasonExpired); err != nil {
		slog.Warn("failed to clear expired session", "error", err)
	}
}

// establishSession выполняет установку сессии, идемпотентно и строго по шагам:
// токены -> хранилище -> момент истечения -> публикация true -> планирование
// одного проактивного refresh. Устаревшее завершение (logout успел раньше)
// отбрасывается, а уже записанные токены затираются
func (s *Service) establishSession(ctx context.Context, generation uint64, accessToken, refreshToken string, expiresIn int64) error {
	if accessToken == "" {
		return nil
	}

	lifetime := s.tokenLifetime(accessToken, expiresIn)
	expiresAt := s.now().Add(lifetime).Unix()

	if err := s.store.SaveToken(ctx, accessToken, expiresAt); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	if refreshToken != "" {
		if err := s.store.SaveRefreshToken(ctx, refreshToken); err != nil {
			return fmt.Errorf("failed to save refresh token: %w", err)
		}
	}

	if !s.session.EstablishIfCurrent(generation) {
		slog.Debug("discarding stale session establishment")
		if err := s.store.Clear(ctx); err != nil {
			slog.Warn("failed to clear stale credentials", "error", err)
		}
		return nil
	}

	if refreshToken != "" {
		s.scheduleProactiveRefresh(lifetime)
	}
	return nil
}

// tokenLifetime определяет время жизни: expires_in от сервера, иначе exp
// claim из JWT (без проверки подписи - она дело сервера), иначе дефолт
func (s *Service) tokenLifetime(accessToken string, expiresIn int64) time.Duration {
	if expiresIn > 0 {
		return time.Duration(expiresIn) * time.Second
	}

	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, &claims); err == nil {
		if claims.ExpiresAt != nil {
			if lifetime := claims.ExpiresAt.Time.Sub(s.now()); lifetime > 0 {
				return lifetime
			}
		}
	}

	return DefaultTokenLifetime
}

// scheduleProactiveRefresh планирует ровно один refresh на 75% времени жизни
// Если к моменту срабатывания пользователь ушел в idle, refresh пропускается:
// дальше судьбу сессии решает idle monitor
func (s *Service) scheduleProactiveRefresh(lifetime time.Duration) {
	delay := lifetime * refreshNumerator / refreshDenominator
	if delay > MaxRefreshDelay {
		delay = MaxRefreshDelay
	}

	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
	}
	s.refreshTimer = time.AfterFunc(delay, func() {
		if s.activity != nil && s.now().Sub(s.activity.LastActivity()) >= s.idleTimeout {
			slog.Debug("skipping proactive refresh: user idle")
			return
		}
		if err := s.RefreshToken(context.Background()); err != nil {
			slog.Warn("proactive refresh failed", "error", err)
		}
	})
}

func (s *Service) cancelProactiveRefresh() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
		s.refreshTimer = nil
	}
}

// logout - единственный путь завершения сессии, кто бы его ни вызвал:
// таймер, отклоненный refresh или сам пользователь. Чистит все три ключа
// хранилища, сбрасывает challenge, публикует false и глушит таймеры
func (s *Service) logout(ctx context.Context, reason string) error {
	s.cancelProactiveRefresh()
	s.ClearPendingChallenge()

	err := s.store.Clear(ctx)

	s.session.MarkLoggedOut()

	if reason != "" && s.onSessionExpired != nil {
		s.onSessionExpired(reason)
	}

	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

func (s *Service) setPending(email string) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	s.pendingEmail = email
}

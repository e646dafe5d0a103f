package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	pkgapi "github.com/fitzone/fitzone-cli/pkg/api"
)

// Client представляет HTTP клиент для взаимодействия с сервером FitZone
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
// Авторизация подключается отдельно через EnableAuthorization, после того
// как собран auth-сервис (они ссылаются друг на друга)
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// EnableAuthorization installs the request pipeline. The retry stage sits
// beneath the Authorizer: transport failures and 5xx are retried per dispatch,
// while the refresh-on-401 machine runs exactly once per request. The reverse
// order would let a failed refresh be retried as an ordinary transport error.
func (c *Client) EnableAuthorization(tokens TokenSource) {
	c.httpClient.Transport = &Authorizer{
		Base: &RetryTransport{
			Base:    http.DefaultTransport,
			Retries: RetryCount,
			Delay:   RetryDelay,
		},
		Tokens: tokens,
	}
}

// Login2FA выполняет первый фактор аутентификации
func (c *Client) Login2FA(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.LoginResponse, error) {
	var resp pkgapi.LoginResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/login-2fa", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// GenerateOTP запрашивает отправку одноразового кода на email
func (c *Client) GenerateOTP(ctx context.Context, email string) error {
	path := "/auth/generate-otp?" + emailQuery(email)
	if err := c.doRequest(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("generate otp request failed: %w", err)
	}
	return nil
}

// ResendOTP повторно запрашивает одноразовый код
func (c *Client) ResendOTP(ctx context.Context, email string) error {
	path := "/auth/resend-otp?" + emailQuery(email)
	if err := c.doRequest(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("resend otp request failed: %w", err)
	}
	return nil
}

// VerifyOTP обменивает email+код на пару токенов
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (*pkgapi.VerifyOTPResponse, error) {
	query := url.Values{}
	query.Set("email", email)
	query.Set("otp", otp)

	var resp pkgapi.VerifyOTPResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/verify-otp?"+query.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("verify otp request failed: %w", err)
	}
	return &resp, nil
}

// Refresh обменивает refresh token на новую пару токенов
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error) {
	req := pkgapi.RefreshRequest{RefreshToken: refreshToken}

	var resp pkgapi.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/auth/refresh", req, &resp); err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	return &resp, nil
}

// Register регистрирует нового члена клуба
func (c *Client) Register(ctx context.Context, req pkgapi.RegisterRequest) (*pkgapi.RegisterResponse, error) {
	var resp pkgapi.RegisterResponse
	if err := c.doRequest(ctx, http.MethodPost, "/users/public/register", req, &resp); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// ForgotPassword запрашивает письмо для сброса пароля
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	path := "/auth/forgot-password?" + emailQuery(email)
	if err := c.doRequest(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("forgot password request failed: %w", err)
	}
	return nil
}

// ResetPassword устанавливает новый пароль по токену из письма
func (c *Client) ResetPassword(ctx context.Context, req pkgapi.ResetPasswordRequest) error {
	if err := c.doRequest(ctx, http.MethodPost, "/auth/reset-password", req, nil); err != nil {
		return fmt.Errorf("reset password request failed: %w", err)
	}
	return nil
}

// UserInfo возвращает данные текущего пользователя (bearer обязателен)
func (c *Client) UserInfo(ctx context.Context) (*pkgapi.UserInfo, error) {
	var resp pkgapi.UserInfo
	if err := c.doRequest(ctx, http.MethodGet, "/auth/user-info", nil, &resp); err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	return &resp, nil
}

// UserByEmail возвращает пользователя по email
func (c *Client) UserByEmail(ctx context.Context, email string) (*pkgapi.UserInfo, error) {
	var resp pkgapi.UserInfo
	path := "/users/email/" + url.PathEscape(email)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("user lookup request failed: %w", err)
	}
	return &resp, nil
}

// MembershipTypes возвращает все тарифы клуба
func (c *Client) MembershipTypes(ctx context.Context) ([]pkgapi.MembershipType, error) {
	var resp []pkgapi.MembershipType
	if err := c.doRequest(ctx, http.MethodGet, "/membership-types", nil, &resp); err != nil {
		return nil, fmt.Errorf("membership types request failed: %w", err)
	}
	return resp, nil
}

// MembershipType возвращает тариф по ID
func (c *Client) MembershipType(ctx context.Context, id int64) (*pkgapi.MembershipType, error) {
	var resp pkgapi.MembershipType
	path := fmt.Sprintf("/membership-types/%d", id)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("membership type request failed: %w", err)
	}
	return &resp, nil
}

// Subscribe оформляет подписку на тариф
func (c *Client) Subscribe(ctx context.Context, req pkgapi.SubscriptionRequest) (*pkgapi.SubscriptionResponse, error) {
	var resp pkgapi.SubscriptionResponse
	if err := c.doRequest(ctx, http.MethodPost, "/subscriptions", req, &resp); err != nil {
		return nil, fmt.Errorf("subscribe request failed: %w", err)
	}
	return &resp, nil
}

// UserSubscriptions возвращает подписки пользователя
func (c *Client) UserSubscriptions(ctx context.Context, userID int64) ([]pkgapi.SubscriptionResponse, error) {
	var resp []pkgapi.SubscriptionResponse
	path := fmt.Sprintf("/subscriptions/user/%d", userID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("user subscriptions request failed: %w", err)
	}
	return resp, nil
}

// CancelSubscription отменяет подписку
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID int64) (*pkgapi.SubscriptionResponse, error) {
	var resp pkgapi.SubscriptionResponse
	path := fmt.Sprintf("/subscriptions/%d/cancel", subscriptionID)
	if err := c.doRequest(ctx, http.MethodPatch, path, struct{}{}, &resp); err != nil {
		return nil, fmt.Errorf("cancel subscription request failed: %w", err)
	}
	return &resp, nil
}

// CreatePaymentIntent создает платеж у провайдера карт и возвращает client secret
// Подтверждение карты - дело провайдера, клиент дальше secret не идет
func (c *Client) CreatePaymentIntent(ctx context.Context, req pkgapi.PaymentIntentRequest, idempotencyKey string) (string, error) {
	var clientSecret string
	err := c.doRequestWithHeaders(ctx, http.MethodPost, "/memberships/create-payment-intent", req, &clientSecret,
		map[string]string{"Idempotency-Key": idempotencyKey})
	if err != nil {
		return "", fmt.Errorf("payment intent request failed: %w", err)
	}
	return clientSecret, nil
}

// doRequest выполняет HTTP запрос и нормализует ошибки
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	return c.doRequestWithHeaders(ctx, method, path, body, result, nil)
}

func (c *Client) doRequestWithHeaders(ctx context.Context, method, path string, body, result any, headers map[string]string) error {
	reqURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Статус 0 в терминах исходной таксономии: сеть/сервер недоступны
		return transportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp pkgapi.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			return statusError(resp.StatusCode, &errResp)
		}
		return statusError(resp.StatusCode, nil)
	}

	// Декодируем успешный ответ
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			// Провайдер платежей отвечает голой строкой client secret
			if s, ok := result.(*string); ok {
				*s = string(bytes.TrimSpace(respBody))
				return nil
			}
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func emailQuery(email string) string {
	query := url.Values{}
	query.Set("email", email)
	return query.Encode()
}

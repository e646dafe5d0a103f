package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgapi "github.com/fitzone/fitzone-cli/pkg/api"
)

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL)

	assert.NotNil(t, client)
	assert.Equal(t, baseURL, client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

// TestClient_Login2FA_OTPRequired проверяет ответ первого фактора с шагом 2FA
func TestClient_Login2FA_OTPRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/auth/login-2fa", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req pkgapi.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "member@fitzone.com", req.Email)
		assert.NotEmpty(t, req.Password)

		_ = json.NewEncoder(w).Encode(pkgapi.LoginResponse{
			Success: true,
			Status:  "OTP_SENT",
			Message: "Check your email for the one-time code",
			Step:    2,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Login2FA(context.Background(), pkgapi.LoginRequest{
		Email:    "member@fitzone.com",
		Password: "secret-password",
	})

	require.NoError(t, err)
	assert.True(t, resp.OTPRequired())
	assert.Empty(t, resp.AccessToken)
}

// TestClient_Login2FA_DirectTokens: сервер может выдать токены без 2FA
func TestClient_Login2FA_DirectTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(pkgapi.LoginResponse{
			Success:      true,
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			ExpiresIn:    900,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Login2FA(context.Background(), pkgapi.LoginRequest{
		Email:    "member@fitzone.com",
		Password: "secret-password",
	})

	require.NoError(t, err)
	assert.False(t, resp.OTPRequired())
	assert.Equal(t, "access-token", resp.AccessToken)
	assert.Equal(t, int64(900), resp.ExpiresIn)
}

// TestClient_VerifyOTP проверяет обмен кода на токены через query-параметры
func TestClient_VerifyOTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/auth/verify-otp", r.URL.Path)
		assert.Equal(t, "member@fitzone.com", r.URL.Query().Get("email"))
		assert.Equal(t, "123456", r.URL.Query().Get("otp"))

		_ = json.NewEncoder(w).Encode(pkgapi.VerifyOTPResponse{
			Success:      true,
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			ExpiresIn:    900,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.VerifyOTP(context.Background(), "member@fitzone.com", "123456")

	require.NoError(t, err)
	assert.Equal(t, "access-token", resp.AccessToken)
	assert.Equal(t, "refresh-token", resp.RefreshToken)
}

func TestClient_Refresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/refresh", r.URL.Path)

		var req pkgapi.RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "old-refresh", req.RefreshToken)

		_ = json.NewEncoder(w).Encode(pkgapi.TokenResponse{
			Success:      true,
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
			ExpiresIn:    900,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Refresh(context.Background(), "old-refresh")

	require.NoError(t, err)
	assert.Equal(t, "new-access", resp.AccessToken)
	assert.Equal(t, "new-refresh", resp.RefreshToken)
}

// Нормализация ошибок по статусам
func TestClient_ErrorNormalization(t *testing.T) {
	tests := []struct {
		name        string
		statusCode  int
		body        any
		wantCode    Code
		wantMessage string
	}{
		{
			name:       "400 keeps server message verbatim",
			statusCode: http.StatusBadRequest,
			body: pkgapi.ErrorResponse{
				Message: "OTP code has expired",
			},
			wantCode:    CodeValidation,
			wantMessage: "OTP code has expired",
		},
		{
			name:        "401 maps to invalid credentials",
			statusCode:  http.StatusUnauthorized,
			body:        pkgapi.ErrorResponse{Message: "bad password"},
			wantCode:    CodeInvalidCredentials,
			wantMessage: "invalid credentials",
		},
		{
			name:        "403 maps to access denied",
			statusCode:  http.StatusForbidden,
			body:        pkgapi.ErrorResponse{},
			wantCode:    CodeAccessDenied,
			wantMessage: "access denied",
		},
		{
			name:        "404 maps to not found",
			statusCode:  http.StatusNotFound,
			body:        pkgapi.ErrorResponse{},
			wantCode:    CodeNotFound,
			wantMessage: "resource not found",
		},
		{
			name:        "500 maps to server error",
			statusCode:  http.StatusInternalServerError,
			body:        pkgapi.ErrorResponse{Message: "NullPointerException"},
			wantCode:    CodeServer,
			wantMessage: "server error, please try again later",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_ = json.NewEncoder(w).Encode(tt.body)
			}))
			defer server.Close()

			client := NewClient(server.URL)
			_, err := client.Login2FA(context.Background(), pkgapi.LoginRequest{
				Email:    "member@fitzone.com",
				Password: "secret-password",
			})

			require.Error(t, err)
			assert.True(t, IsCode(err, tt.wantCode), "got error: %v", err)
			assert.True(t, IsStatus(err, tt.statusCode))
			assert.Contains(t, err.Error(), tt.wantMessage)
		})
	}
}

// Недоступный сервер дает CodeUnavailable (аналог status 0)
func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // закрываем сразу: порт больше не слушается

	client := NewClient(server.URL)
	_, err := client.MembershipTypes(context.Background())

	require.Error(t, err)
	assert.True(t, IsCode(err, CodeUnavailable), "got error: %v", err)
	assert.True(t, IsStatus(err, 0))
}

func TestClient_MembershipTypes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/membership-types", r.URL.Path)

		_ = json.NewEncoder(w).Encode([]pkgapi.MembershipType{
			{ID: 1, Name: "Basic", MonthlyPrice: 29.99},
			{ID: 2, Name: "Premium", MonthlyPrice: 59.99, AccessToAllLocations: true},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	plans, err := client.MembershipTypes(context.Background())

	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "Basic", plans[0].Name)
	assert.True(t, plans[1].AccessToAllLocations)
}

// Платежный endpoint отвечает голой строкой client secret
func TestClient_CreatePaymentIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/memberships/create-payment-intent", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))

		var req pkgapi.PaymentIntentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "usd", req.Currency)
		assert.InDelta(t, 59.99, req.Amount, 0.001)

		_, _ = w.Write([]byte("pi_12345_secret_67890"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	secret, err := client.CreatePaymentIntent(context.Background(), pkgapi.PaymentIntentRequest{
		Amount:      59.99,
		Currency:    "usd",
		Description: "FitZone Premium membership",
	}, "01J00000000000000000000000")

	require.NoError(t, err)
	assert.Equal(t, "pi_12345_secret_67890", secret)
}

func TestClient_CancelSubscription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/subscriptions/7/cancel", r.URL.Path)

		_ = json.NewEncoder(w).Encode(pkgapi.SubscriptionResponse{
			SubscriptionID: 7,
			UserID:         3,
			Status:         pkgapi.SubscriptionCancelled,
			IsActive:       false,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	sub, err := client.CancelSubscription(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, int64(7), sub.SubscriptionID)
	assert.Equal(t, pkgapi.SubscriptionCancelled, sub.Status)
	assert.False(t, sub.IsActive)
}

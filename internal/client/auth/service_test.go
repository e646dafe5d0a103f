package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgapi "github.com/fitzone/fitzone-cli/pkg/api"

	"github.com/fitzone/fitzone-cli/internal/client/api"
	"github.com/fitzone/fitzone-cli/internal/client/session"
	"github.com/fitzone/fitzone-cli/internal/client/storage"
)

func newTestService(t *testing.T, handler http.Handler) (*Service, *session.State) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := NewStore(context.Background(), storage.NewMemory())
	require.NoError(t, err)

	sess := session.NewState(false)
	return NewService(api.NewClient(server.URL), store, sess), sess
}

// Шаг 1 успешен, сервер требует второй фактор: сессии еще нет
func TestLogin_OTPRequired(t *testing.T) {
	svc, sess := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login-2fa", r.URL.Path)
		_ = json.NewEncoder(w).Encode(pkgapi.LoginResponse{
			Success: true,
			Status:  "OTP_SENT",
			Message: "Check your email",
			Step:    2,
		})
	}))

	outcome, err := svc.Login(context.Background(), "member@fitzone.com", "secret-password")
	require.NoError(t, err)

	assert.Equal(t, OutcomeOTPRequired, outcome.Kind)
	assert.Equal(t, "member@fitzone.com", outcome.Email)
	assert.Equal(t, "member@fitzone.com", svc.PendingEmail())

	// Токенов нет, сессия не установлена
	assert.False(t, sess.Authenticated())
	assert.False(t, svc.IsAuthenticated(context.Background()))
}

// Сервер выдал токены без второго фактора: сессия устанавливается сразу
func TestLogin_DirectTokens(t *testing.T) {
	svc, sess := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(pkgapi.LoginResponse{
			Success:      true,
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			ExpiresIn:    900,
		})
	}))

	outcome, err := svc.Login(context.Background(), "member@fitzone.com", "secret-password")
	require.NoError(t, err)

	assert.Equal(t, OutcomeSession, outcome.Kind)
	assert.True(t, sess.Authenticated())
	assert.True(t, svc.IsAuthenticated(context.Background()))
	assert.Empty(t, svc.PendingEmail())
}

// Невалидный ввод отбрасывается до сетевого вызова
func TestLogin_LocalValidation(t *testing.T) {
	var calls int32
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	_, err := svc.Login(context.Background(), "not-an-email", "secret-password")
	assert.Error(t, err)

	_, err = svc.Login(context.Background(), "member@fitzone.com", "short")
	assert.Error(t, err)

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestValidateOTP_Success(t *testing.T) {
	svc, sess := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login-2fa":
			_ = json.NewEncoder(w).Encode(pkgapi.LoginResponse{Success: true, Step: 2, Status: "OTP_SENT"})
		case "/auth/verify-otp":
			assert.Equal(t, "member@fitzone.com", r.URL.Query().Get("email"))
			assert.Equal(t, "123456", r.URL.Query().Get("otp"))
			_ = json.NewEncoder(w).Encode(pkgapi.VerifyOTPResponse{
				Success:      true,
				AccessToken:  "access-token",
				RefreshToken: "refresh-token",
				ExpiresIn:    900,
			})
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))

	ctx := context.Background()
	_, err := svc.Login(ctx, "member@fitzone.com", "secret-password")
	require.NoError(t, err)
	require.Equal(t, "member@fitzone.com", svc.PendingEmail())

	require.NoError(t, svc.ValidateOTP(ctx, "member@fitzone.com", "123456"))

	assert.True(t, sess.Authenticated())
	// Challenge сброшен после успешного входа
	assert.Empty(t, svc.PendingEmail())
}

// Неверный формат кода не доходит до сервера
func TestValidateOTP_FormatRejectedLocally(t *testing.T) {
	var calls int32
	svc, sess := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	ctx := context.Background()
	assert.Error(t, svc.ValidateOTP(ctx, "member@fitzone.com", "12345"))
	assert.Error(t, svc.ValidateOTP(ctx, "member@fitzone.com", "abcdef"))
	assert.Error(t, svc.ValidateOTP(ctx, "member@fitzone.com", ""))

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.False(t, sess.Authenticated())
}

// Отклоненный код не создает сессию
func TestValidateOTP_Rejected(t *testing.T) {
	svc, sess := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(pkgapi.ErrorResponse{Message: "Invalid OTP code"})
	}))

	err := svc.ValidateOTP(context.Background(), "member@fitzone.com", "123456")
	require.Error(t, err)
	// Сообщение сервера для 400 отдается дословно
	assert.Contains(t, err.Error(), "Invalid OTP code")
	assert.False(t, sess.Authenticated())
}

// Без сохраненного refresh token падаем сразу, не выходя в сеть
func TestRefreshToken_NoToken(t *testing.T) {
	var calls int32
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	err := svc.RefreshToken(context.Background())
	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestRefreshToken_Success(t *testing.T) {
	svc, sess := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login-2fa":
			_ = json.NewEncoder(w).Encode(pkgapi.LoginResponse{
				Success: true, AccessToken: "old-access", RefreshToken: "old-refresh", ExpiresIn: 900,
			})
		case "/auth/refresh":
			var req pkgapi.RefreshRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "old-refresh", req.RefreshToken)
			_ = json.NewEncoder(w).Encode(pkgapi.TokenResponse{
				Success: true, AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 900,
			})
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))

	ctx := context.Background()
	_, err := svc.Login(ctx, "member@fitzone.com", "secret-password")
	require.NoError(t, err)

	require.NoError(t, svc.RefreshToken(ctx))

	assert.Equal(t, "new-access", svc.Token(ctx))
	assert.True(t, sess.Authenticated())
}

// Отклоненный refresh token завершает сессию целиком
func TestRefreshToken_RejectedEndsSession(t *testing.T) {
	svc, sess := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login-2fa":
			_ = json.NewEncoder(w).Encode(pkgapi.LoginResponse{
				Success: true, AccessToken: "access", RefreshToken: "stale-refresh", ExpiresIn: 900,
			})
		case "/auth/refresh":
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(pkgapi.ErrorResponse{Message: "refresh token expired"})
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))

	var reason atomic.Value
	svc.SetSessionExpiredHandler(func(r string) { reason.Store(r) })

	ctx := context.Background()
	_, err := svc.Login(ctx, "member@fitzone.com", "secret-password")
	require.NoError(t, err)
	require.True(t, sess.Authenticated())

	err = svc.RefreshToken(ctx)
	require.Error(t, err)

	// Полный logout как side effect: хранилище чисто, сессия завершена
	assert.False(t, sess.Authenticated())
	assert.False(t, svc.IsAuthenticated(ctx))
	assert.Empty(t, svc.Token(ctx))
	assert.Equal(t, ReasonExpired, reason.Load())
}

func TestLogout(t *testing.T) {
	svc, sess := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(pkgapi.LoginResponse{
			Success: true, AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 900,
		})
	}))

	ctx := context.Background()
	_, err := svc.Login(ctx, "member@fitzone.com", "secret-password")
	require.NoError(t, err)

	gen := sess.Generation()
	require.NoError(t, svc.Logout(ctx))

	assert.False(t, sess.Authenticated())
	assert.False(t, svc.IsAuthenticated(ctx))
	// Generation растет: поздние ответы login будут отброшены
	assert.Equal(t, gen+1, sess.Generation())
}

// Установка сессии со старым generation отбрасывается и затирает токены
func TestEstablishSession_StaleGeneration(t *testing.T) {
	svc, sess := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	ctx := context.Background()
	gen := sess.Generation()

	// Logout произошел пока "сетевой вызов" шел
	sess.MarkLoggedOut()

	require.NoError(t, svc.establishSession(ctx, gen, "late-access", "late-refresh", 900))

	assert.False(t, sess.Authenticated())
	assert.False(t, svc.IsAuthenticated(ctx))
}

func TestTokenLifetime(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	// expires_in от сервера имеет приоритет
	assert.Equal(t, 600*time.Second, svc.tokenLifetime("opaque-token", 600))

	// Иначе читается exp claim из JWT
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(10 * time.Minute)),
	})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)

	lifetime := svc.tokenLifetime(signed, 0)
	assert.InDelta(t, (10 * time.Minute).Seconds(), lifetime.Seconds(), 5)

	// Нечитаемый токен без expires_in получает дефолт
	assert.Equal(t, DefaultTokenLifetime, svc.tokenLifetime("garbage", 0))
}

// Повторная отправка кода ограничена клиентским cooldown
func TestResendOTP_Cooldown(t *testing.T) {
	var calls int32
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/auth/resend-otp", r.URL.Path)
	}))

	ctx := context.Background()
	require.NoError(t, svc.ResendOTP(ctx, "member@fitzone.com"))

	err := svc.ResendOTP(ctx, "member@fitzone.com")
	assert.ErrorIs(t, err, ErrResendCooldown)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestUserInfo_CachedAfterFirstFetch(t *testing.T) {
	var calls int32
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/user-info", r.URL.Path)
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(pkgapi.UserInfo{ID: 42, Email: "member@fitzone.com", Name: "Ana"})
	}))

	ctx := context.Background()

	user, err := svc.UserInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)

	// Второй вызов идет из кэша
	again, err := svc.UserInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, user, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRegister_PendingChallengeWithoutTokens(t *testing.T) {
	svc, sess := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/public/register", r.URL.Path)
		_ = json.NewEncoder(w).Encode(pkgapi.RegisterResponse{
			Success: true,
			UserID:  7,
			Message: "Account created, verify your email",
		})
	}))

	req := pkgapi.RegisterRequest{
		FirstName:             "Ana",
		LastName:              "Gomez",
		Email:                 "ana@fitzone.com",
		DocumentType:          pkgapi.DocumentCC,
		DocumentNumber:        "10203040",
		Password:              "secret-password",
		PhoneNumber:           "+573111222333",
		BirthDate:             "1995-04-12",
		EmergencyContactPhone: "+573111222000",
		Role:                  pkgapi.RoleUser,
	}

	outcome, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, OutcomeOTPRequired, outcome.Kind)
	assert.Equal(t, "ana@fitzone.com", svc.PendingEmail())
	assert.False(t, sess.Authenticated())

	// Identity закэширована с сервера
	user, err := svc.UserInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
}

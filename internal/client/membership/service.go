// Package membership wraps the remote membership/payment endpoints with the
// local cache: successful fetches refresh the cache, connectivity failures
// fall back to it.
package membership

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"

	pkgapi "github.com/fitzone/fitzone-cli/pkg/api"

	"github.com/fitzone/fitzone-cli/internal/client/api"
	"github.com/fitzone/fitzone-cli/internal/client/cache"
)

// DefaultCurrency для платежей провайдера карт
const DefaultCurrency = "usd"

// Service предоставляет операции с тарифами, подписками и оплатой
type Service struct {
	apiClient *api.Client
	cache     cache.Cache // может быть nil: кэш опционален
}

// NewService создает membership-сервис
func NewService(apiClient *api.Client, c cache.Cache) *Service {
	return &Service{apiClient: apiClient, cache: c}
}

// ListPlans возвращает тарифы клуба
// Успешный ответ обновляет кэш; при недоступном сервере отдается кэш
func (s *Service) ListPlans(ctx context.Context) ([]pkgapi.MembershipType, error) {
	plans, err := s.apiClient.MembershipTypes(ctx)
	if err != nil {
		if cached, ok := s.cachedPlans(ctx, err); ok {
			return cached, nil
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SavePlans(ctx, plans); err != nil {
			slog.Warn("failed to cache membership plans", "error", err)
		}
	}
	return plans, nil
}

// Plan возвращает тариф по ID
func (s *Service) Plan(ctx context.Context, id int64) (*pkgapi.MembershipType, error) {
	return s.apiClient.MembershipType(ctx, id)
}

// Subscribe оформляет подписку пользователя на тариф
func (s *Service) Subscribe(ctx context.Context, userID, planID int64) (*pkgapi.SubscriptionResponse, error) {
	sub, err := s.apiClient.Subscribe(ctx, pkgapi.SubscriptionRequest{
		UserID:           userID,
		MembershipTypeID: planID,
	})
	if err != nil {
		return nil, err
	}

	// Кэш подписок обновляем целиком со свежего списка
	s.refreshSubscriptionCache(ctx, userID)
	return sub, nil
}

// Subscriptions возвращает подписки пользователя, с кэшем как fallback
func (s *Service) Subscriptions(ctx context.Context, userID int64) ([]pkgapi.SubscriptionResponse, error) {
	subs, err := s.apiClient.UserSubscriptions(ctx, userID)
	if err != nil {
		if s.cache != nil && api.IsCode(err, api.CodeUnavailable) {
			cached, cacheErr := s.cache.Subscriptions(ctx, userID)
			if cacheErr == nil {
				slog.Warn("server unreachable, showing cached subscriptions")
				return cached, nil
			}
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SaveSubscriptions(ctx, userID, subs); err != nil {
			slog.Warn("failed to cache subscriptions", "error", err)
		}
	}
	return subs, nil
}

// Cancel отменяет подписку
func (s *Service) Cancel(ctx context.Context, subscriptionID int64) (*pkgapi.SubscriptionResponse, error) {
	sub, err := s.apiClient.CancelSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	s.refreshSubscriptionCache(ctx, sub.UserID)
	return sub, nil
}

// CreatePayment создает платеж за тариф у провайдера карт
// Возвращает client secret; подтверждение карты - вне зоны клиента
func (s *Service) CreatePayment(ctx context.Context, plan *pkgapi.MembershipType) (string, error) {
	req := pkgapi.PaymentIntentRequest{
		Amount:      plan.MonthlyPrice,
		Currency:    DefaultCurrency,
		Description: fmt.Sprintf("FitZone %s membership", plan.Name),
	}

	// Идемпотентный ключ защищает от двойного списания при ретраях
	idempotencyKey := ulid.Make().String()

	secret, err := s.apiClient.CreatePaymentIntent(ctx, req, idempotencyKey)
	if err != nil {
		return "", err
	}
	if secret == "" {
		return "", fmt.Errorf("payment provider returned empty client secret")
	}
	return secret, nil
}

func (s *Service) cachedPlans(ctx context.Context, cause error) ([]pkgapi.MembershipType, bool) {
	if s.cache == nil || !api.IsCode(cause, api.CodeUnavailable) {
		return nil, false
	}
	plans, err := s.cache.Plans(ctx)
	if err != nil {
		return nil, false
	}
	slog.Warn("server unreachable, showing cached plans")
	return plans, true
}

func (s *Service) refreshSubscriptionCache(ctx context.Context, userID int64) {
	if s.cache == nil || userID == 0 {
		return
	}
	subs, err := s.apiClient.UserSubscriptions(ctx, userID)
	if err != nil {
		return
	}
	if err := s.cache.SaveSubscriptions(ctx, userID, subs); err != nil {
		slog.Warn("failed to cache subscriptions", "error", err)
	}
}

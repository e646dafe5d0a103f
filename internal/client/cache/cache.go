// Package cache keeps a local copy of membership data so plans and the
// member's own subscriptions stay visible when the server is unreachable.
package cache

import (
	"context"
	"errors"

	pkgapi "github.com/fitzone/fitzone-cli/pkg/api"
)

// ErrCacheMiss indicates that the requested data has never been cached
var ErrCacheMiss = errors.New("not found in local cache")

//go:generate moq -out cache_mock.go . Cache

// Cache defines the local membership data store
type Cache interface {
	// SavePlans замещает кэш тарифов целиком
	SavePlans(ctx context.Context, plans []pkgapi.MembershipType) error

	// Plans возвращает кэшированные тарифы; ErrCacheMiss если кэш пуст
	Plans(ctx context.Context) ([]pkgapi.MembershipType, error)

	// SaveSubscriptions замещает кэш подписок пользователя
	SaveSubscriptions(ctx context.Context, userID int64, subs []pkgapi.SubscriptionResponse) error

	// Subscriptions возвращает кэшированные подписки пользователя
	Subscriptions(ctx context.Context, userID int64) ([]pkgapi.SubscriptionResponse, error)

	// Close releases the underlying database
	Close() error
}

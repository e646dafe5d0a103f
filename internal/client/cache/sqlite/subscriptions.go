package sqlite

import (
	"context"
	"fmt"
	"time"

	pkgapi "github.com/fitzone/fitzone-cli/pkg/api"

	"github.com/fitzone/fitzone-cli/internal/client/cache"
)

// SaveSubscriptions замещает кэш подписок пользователя
func (s *Storage) SaveSubscriptions(ctx context.Context, userID int64, subs []pkgapi.SubscriptionResponse) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM subscriptions WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to clear subscriptions: %w", err)
	}

	now := time.Now().Unix()
	const insertQuery = `
		INSERT INTO subscriptions (id, user_id, user_name, plan_id, plan_name,
			plan_description, monthly_price, subscription_date, expiration_date,
			status, is_active, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, sub := range subs {
		_, err := tx.ExecContext(ctx, insertQuery,
			sub.SubscriptionID, userID, sub.UserName, sub.MembershipTypeID,
			sub.MembershipTypeName, sub.MembershipDescription, sub.MonthlyPrice,
			sub.SubscriptionDate, sub.ExpirationDate, sub.Status, boolToInt(sub.IsActive), now)
		if err != nil {
			return fmt.Errorf("failed to insert subscription %d: %w", sub.SubscriptionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Subscriptions возвращает кэшированные подписки пользователя
func (s *Storage) Subscriptions(ctx context.Context, userID int64) ([]pkgapi.SubscriptionResponse, error) {
	const query = `
		SELECT id, user_name, plan_id, plan_name, plan_description,
			monthly_price, subscription_date, expiration_date, status, is_active
		FROM subscriptions WHERE user_id = ? ORDER BY subscription_date DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var subs []pkgapi.SubscriptionResponse
	for rows.Next() {
		var sub pkgapi.SubscriptionResponse
		var isActive int
		err := rows.Scan(&sub.SubscriptionID, &sub.UserName, &sub.MembershipTypeID,
			&sub.MembershipTypeName, &sub.MembershipDescription, &sub.MonthlyPrice,
			&sub.SubscriptionDate, &sub.ExpirationDate, &sub.Status, &isActive)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		sub.UserID = userID
		sub.IsActive = isActive != 0
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriptions: %w", err)
	}

	if len(subs) == 0 {
		return nil, cache.ErrCacheMiss
	}
	return subs, nil
}

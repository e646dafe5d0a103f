package sqlite

import (
	"context"
	"fmt"
	"time"

	pkgapi "github.com/fitzone/fitzone-cli/pkg/api"

	"github.com/fitzone/fitzone-cli/internal/client/cache"
)

// SavePlans замещает кэш тарифов целиком в одной транзакции
func (s *Storage) SavePlans(ctx context.Context, plans []pkgapi.MembershipType) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM plans"); err != nil {
		return fmt.Errorf("failed to clear plans: %w", err)
	}

	now := time.Now().Unix()
	const insertQuery = `
		INSERT INTO plans (id, name, description, monthly_price, access_all_locations,
			group_classes, personal_training, specialized_classes, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, p := range plans {
		_, err := tx.ExecContext(ctx, insertQuery,
			p.ID, p.Name, p.Description, p.MonthlyPrice,
			boolToInt(p.AccessToAllLocations), p.GroupClassesSessionsIncluded,
			p.PersonalTrainingIncluded, boolToInt(p.SpecializedClassesIncluded), now)
		if err != nil {
			return fmt.Errorf("failed to insert plan %d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Plans возвращает кэшированные тарифы
func (s *Storage) Plans(ctx context.Context) ([]pkgapi.MembershipType, error) {
	const query = `
		SELECT id, name, description, monthly_price, access_all_locations,
			group_classes, personal_training, specialized_classes
		FROM plans ORDER BY monthly_price`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var plans []pkgapi.MembershipType
	for rows.Next() {
		var p pkgapi.MembershipType
		var accessAll, specialized int
		err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.MonthlyPrice,
			&accessAll, &p.GroupClassesSessionsIncluded, &p.PersonalTrainingIncluded, &specialized)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		p.AccessToAllLocations = accessAll != 0
		p.SpecializedClassesIncluded = specialized != 0
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plans: %w", err)
	}

	if len(plans) == 0 {
		return nil, cache.ErrCacheMiss
	}
	return plans, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/okian/buzz/internal/domain/model"
)

const topInterestsSQL = `
	SELECT category_id, score
	FROM user_interests
	WHERE user_id = $1
	ORDER BY score DESC, category_id ASC
	LIMIT $2`

// InterestRepository reads a user's ranked interest categories.
type InterestRepository struct {
	db Querier
}

// NewInterestRepository wraps a pool.
func NewInterestRepository(db Querier) *InterestRepository {
	return &InterestRepository{db: db}
}

// TopCategories returns up to k categories, highest interest first.
func (r *InterestRepository) TopCategories(ctx context.Context, userID string, k int) ([]model.InterestCategory, error) {
	if userID == "" || k < 1 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, topInterestsSQL, userID, k)
	if err != nil {
		return nil, fmt.Errorf("%w: interests: %v", ErrQuery, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.InterestCategory, error) {
		var c model.InterestCategory
		err := row.Scan(&c.CategoryID, &c.Score)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan interests: %v", ErrQuery, err)
	}
	return out, nil
}

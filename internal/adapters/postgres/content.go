package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/okian/buzz/internal/domain/model"
)

const tweetsByIDSQL = `
	SELECT id, author_id, content, likes_count, reposts_count, quotes_count, replies_count, created_at
	FROM tweets
	WHERE id = ANY($1) AND deleted_at IS NULL`

// ContentRepository hydrates tweet ids into full content.
type ContentRepository struct {
	db Querier
}

// NewContentRepository wraps a pool.
func NewContentRepository(db Querier) *ContentRepository {
	return &ContentRepository{db: db}
}

// FetchByIDs loads the tweets in one round trip. Missing or deleted ids are
// absent from the result; order is unspecified.
func (r *ContentRepository) FetchByIDs(ctx context.Context, ids []string) ([]model.Tweet, error) {
	if len(ids) == 0 {
		return []model.Tweet{}, nil
	}
	rows, err := r.db.Query(ctx, tweetsByIDSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: tweets: %v", ErrQuery, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Tweet, error) {
		var (
			t                               model.Tweet
			likes, reposts, quotes, replies int64
		)
		err := row.Scan(&t.ID, &t.AuthorID, &t.Content, &likes, &reposts, &quotes, &replies, &t.CreatedAt)
		t.Likes = nonNegative(likes)
		t.Reposts = nonNegative(reposts)
		t.Quotes = nonNegative(quotes)
		t.Replies = nonNegative(replies)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan tweets: %v", ErrQuery, err)
	}
	return out, nil
}

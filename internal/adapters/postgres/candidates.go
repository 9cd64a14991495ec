package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/okian/buzz/internal/domain/candidates"
	"github.com/okian/buzz/internal/domain/model"
)

const categoriesByTweetSQL = `
	SELECT tweet_id, category_id, percentage
	FROM tweet_categories
	WHERE tweet_id = ANY($1)`

// CandidateRepository implements candidates.Repository over the tweets and
// tweet_categories tables.
type CandidateRepository struct {
	db Querier
}

var _ candidates.Repository = (*CandidateRepository)(nil)

// NewCandidateRepository wraps a pool.
func NewCandidateRepository(db Querier) *CandidateRepository {
	return &CandidateRepository{db: db}
}

// Count returns the number of tweets inside the window.
func (r *CandidateRepository) Count(ctx context.Context, f candidates.Filter) (int, error) {
	query, args := countCandidatesSQL(f)
	var total int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("%w: count candidates: %v", ErrQuery, err)
	}
	return int(total), nil
}

// FetchPage loads one page of snapshots plus their category shares.
func (r *CandidateRepository) FetchPage(ctx context.Context, f candidates.Filter, skip, take int) ([]model.EngagementSnapshot, error) {
	if skip < 0 || take < 1 {
		return nil, candidates.ErrInvalidPage
	}

	query, args := pageCandidatesSQL(f, skip, take)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch candidates: %v", ErrQuery, err)
	}
	out, err := pgx.CollectRows(rows, scanSnapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: scan candidates: %v", ErrQuery, err)
	}
	if len(out) == 0 {
		return out, nil
	}

	if err := r.attachCategories(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CandidateRepository) attachCategories(ctx context.Context, snaps []model.EngagementSnapshot) error {
	ids := make([]string, len(snaps))
	index := make(map[string]int, len(snaps))
	for i, s := range snaps {
		ids[i] = s.TweetID
		index[s.TweetID] = i
	}

	rows, err := r.db.Query(ctx, categoriesByTweetSQL, ids)
	if err != nil {
		return fmt.Errorf("%w: fetch categories: %v", ErrQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tweetID string
			share   model.CategoryShare
		)
		if err := rows.Scan(&tweetID, &share.CategoryID, &share.Percentage); err != nil {
			return fmt.Errorf("%w: scan category: %v", ErrQuery, err)
		}
		if i, ok := index[tweetID]; ok {
			snaps[i].Categories = append(snaps[i].Categories, share)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: categories: %v", ErrQuery, err)
	}
	return nil
}

func scanSnapshot(row pgx.CollectableRow) (model.EngagementSnapshot, error) {
	var (
		s                               model.EngagementSnapshot
		likes, reposts, quotes, replies int64
	)
	err := row.Scan(&s.TweetID, &likes, &reposts, &quotes, &replies, &s.CreatedAt, &s.UpdatedAt)
	s.Likes = nonNegative(likes)
	s.Reposts = nonNegative(reposts)
	s.Quotes = nonNegative(quotes)
	s.Replies = nonNegative(replies)
	return s, err
}

func nonNegative(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

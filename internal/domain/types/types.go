// Package types contains the read shapes shared by the ranking reader and the HTTP API.
package types

import "github.com/okian/buzz/internal/domain/model"

// Entry is one ranked, hydrated tweet.
type Entry struct {
	Rank  int         `json:"rank"`
	Score float64     `json:"score"`
	Tweet model.Tweet `json:"tweet"`
}

// CategoryPage is one offset page of a category leaderboard.
type CategoryPage struct {
	CategoryID string  `json:"category_id"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	Tweets     []Entry `json:"tweets"`
	HasMore    bool    `json:"has_more"`
}

// FeedSection groups the top tweets of one category.
type FeedSection struct {
	CategoryID string  `json:"category_id"`
	Tweets     []Entry `json:"tweets"`
}

// Feed is the personalized "for you" view, sections in interest order.
type Feed struct {
	UserID       string        `json:"user_id,omitempty"`
	Personalized bool          `json:"personalized"`
	Sections     []FeedSection `json:"sections"`
}

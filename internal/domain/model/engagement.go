// Package model contains domain models passed between layers.
package model

import "time"

// CategoryShare ties a tweet to a category with a 0..100 weight.
// Shares of one tweet need not sum to 100.
type CategoryShare struct {
	CategoryID string  `json:"category_id"`
	Percentage float64 `json:"percentage"`
}

// EngagementSnapshot is the engagement state of one tweet as read from the
// relational store. It is immutable once read.
type EngagementSnapshot struct {
	TweetID    string
	Likes      uint64
	Reposts    uint64
	Quotes     uint64
	Replies    uint64
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Categories []CategoryShare
}

// ScoredItem is a snapshot reduced to its rank score. It lives for one batch.
type ScoredItem struct {
	TweetID    string
	Score      float64
	Categories []CategoryShare
}

// RankedMember is one member of a category leaderboard.
type RankedMember struct {
	TweetID string  `json:"tweet_id"`
	Score   float64 `json:"score"`
}

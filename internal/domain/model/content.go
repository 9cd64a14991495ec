package model

import "time"

// Tweet is the hydrated content returned to readers.
type Tweet struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	Likes     uint64    `json:"likes"`
	Reposts   uint64    `json:"reposts"`
	Quotes    uint64    `json:"quotes"`
	Replies   uint64    `json:"replies"`
	CreatedAt time.Time `json:"created_at"`
}

// InterestCategory is one entry of a user's ranked interests.
type InterestCategory struct {
	CategoryID string
	Score      float64
}

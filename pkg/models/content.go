package models

import (
	"time"

	"github.com/google/uuid"
)

type ContentItem struct {
	ID           uuid.UUID `json:"id" db:"id"`
	CreatorID    uuid.UUID `json:"creator_id" db:"creator_id"`
	Title        string    `json:"title" db:"title"`
	Hashtags     []string  `json:"hashtags,omitempty" db:"hashtags"`
	Duration     int       `json:"duration" db:"duration"` // seconds
	LikeCount    int64     `json:"like_count" db:"like_count"`
	CommentCount int64     `json:"comment_count" db:"comment_count"`
	ShareCount   int64     `json:"share_count" db:"share_count"`
	ViewCount    int64     `json:"view_count" db:"view_count"`
	QualityScore float64   `json:"quality_score" db:"quality_score"`
	Published    bool      `json:"published" db:"published"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// AgeDays returns the content age in whole days with a floor of one day,
// so recency scores never divide by zero for same-day uploads.
func (c *ContentItem) AgeDays(now time.Time) float64 {
	days := now.Sub(c.CreatedAt).Hours() / 24
	if days < 1 {
		return 1
	}
	return days
}

// ContentFilter describes a catalog lookup. Empty slices mean "no filter on
// that dimension"; Exclude is always applied.
type ContentFilter struct {
	CreatorIDs []uuid.UUID
	Topics     []string
	Since      *time.Time
	Exclude    []uuid.UUID
	Limit      int
}

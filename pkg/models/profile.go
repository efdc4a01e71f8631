package models

import (
	"time"

	"github.com/google/uuid"
)

// InterestProfile is rebuilt per request (or served from a short-lived
// cache). An empty profile is valid: every weight map may be nil and all
// providers must treat that as zero-weighted topic matching.
type InterestProfile struct {
	UserID            uuid.UUID          `json:"user_id"`
	ExplicitInterests map[string]float64 `json:"explicit_interests,omitempty"`
	ImplicitInterests map[string]float64 `json:"implicit_interests,omitempty"`
	ViewingPatterns   ViewingPatterns    `json:"viewing_patterns"`
	Engagement        EngagementMetrics  `json:"engagement"`
	BuiltAt           time.Time          `json:"built_at"`
}

type ViewingPatterns struct {
	AvgWatchDuration   float64        `json:"avg_watch_duration"`
	AvgCompletionRatio float64        `json:"avg_completion_ratio"`
	HourHistogram      [24]int        `json:"hour_histogram"`
	TopicEngagement    map[string]int `json:"topic_engagement,omitempty"`
}

type EngagementMetrics struct {
	LikeRatio    float64 `json:"like_ratio"`
	CommentRatio float64 `json:"comment_ratio"`
	ShareRatio   float64 `json:"share_ratio"`
}

// Topics returns the union of explicit and implicit interest topics with
// combined weights.
func (p *InterestProfile) Topics() map[string]float64 {
	combined := make(map[string]float64, len(p.ExplicitInterests)+len(p.ImplicitInterests))
	for topic, w := range p.ExplicitInterests {
		combined[topic] += w
	}
	for topic, w := range p.ImplicitInterests {
		combined[topic] += w
	}
	return combined
}

// IsEmpty reports whether the profile carries no interest signal at all.
func (p *InterestProfile) IsEmpty() bool {
	return len(p.ExplicitInterests) == 0 && len(p.ImplicitInterests) == 0
}

// BehaviorRecord is one row of the append-only behavioral log. It is written
// by RecordView and consumed by the interest profile builder; organic views
// (no recommendation row) are recorded too.
type BehaviorRecord struct {
	ID             uuid.UUID              `json:"id" db:"id"`
	UserID         uuid.UUID              `json:"user_id" db:"user_id"`
	BehaviorType   string                 `json:"behavior_type" db:"behavior_type"`
	ContentID      uuid.UUID              `json:"content_id" db:"content_id"`
	ContentType    string                 `json:"content_type" db:"content_type"`
	WatchDuration  int                    `json:"watch_duration" db:"watch_duration"` // seconds
	CompletionRate float64                `json:"completion_rate" db:"completion_rate"`
	Metadata       map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	Timestamp      time.Time              `json:"timestamp" db:"timestamp"`
}

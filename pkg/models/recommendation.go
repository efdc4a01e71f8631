package models

import (
	"time"

	"github.com/google/uuid"
)

// RecommendationSource identifies which candidate provider produced an item.
type RecommendationSource string

const (
	SourceFollowing RecommendationSource = "following"
	SourceTopic     RecommendationSource = "topic"
	SourceTrending  RecommendationSource = "trending"
	SourceSimilar   RecommendationSource = "similar"
	SourceExplore   RecommendationSource = "explore"
)

// Priority orders sources for deterministic tie-breaking when two providers
// surface the same content with an identical score. Lower wins.
func (s RecommendationSource) Priority() int {
	switch s {
	case SourceFollowing:
		return 0
	case SourceSimilar:
		return 1
	case SourceTopic:
		return 2
	case SourceTrending:
		return 3
	case SourceExplore:
		return 4
	default:
		return 5
	}
}

// Candidate is a transient, provider-local scored item. Scores are not
// comparable across sources until the aggregator has resolved duplicates.
type Candidate struct {
	ContentID uuid.UUID              `json:"content_id"`
	CreatorID uuid.UUID              `json:"creator_id"`
	Topics    []string               `json:"topics,omitempty"`
	Score     float64                `json:"score"`
	Reason    string                 `json:"reason"`
	Source    RecommendationSource   `json:"source"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// RankedRecommendation is the persisted form owned by the recommendation
// store. Rows expire after the freshness window or once consumed; expired
// rows remain for analytics but no longer count as available.
type RankedRecommendation struct {
	UserID     uuid.UUID              `json:"user_id" db:"user_id"`
	ContentID  uuid.UUID              `json:"content_id" db:"content_id"`
	FinalScore float64                `json:"final_score" db:"final_score"`
	Reason     string                 `json:"reason" db:"reason"`
	Source     RecommendationSource   `json:"source" db:"source"`
	IsViewed   bool                   `json:"is_viewed" db:"is_viewed"`
	IsClicked  bool                   `json:"is_clicked" db:"is_clicked"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
	ViewedAt   *time.Time             `json:"viewed_at,omitempty" db:"viewed_at"`
	ClickedAt  *time.Time             `json:"clicked_at,omitempty" db:"clicked_at"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
}

// RecommendationOptions controls a single getRecommendations call.
type RecommendationOptions struct {
	Limit            int     `json:"limit" validate:"omitempty,min=1,max=100"`
	IncludeFollowing bool    `json:"include_following"`
	IncludeTopic     bool    `json:"include_topic"`
	IncludeTrending  bool    `json:"include_trending"`
	IncludeSimilar   bool    `json:"include_similar"`
	IncludeExplore   bool    `json:"include_explore"`
	DiversityFactor  float64 `json:"diversity_factor" validate:"omitempty,min=0,max=1"`
}

// DefaultRecommendationOptions returns the documented defaults: limit 20,
// every source enabled, diversity factor 0.3.
func DefaultRecommendationOptions() RecommendationOptions {
	return RecommendationOptions{
		Limit:            20,
		IncludeFollowing: true,
		IncludeTopic:     true,
		IncludeTrending:  true,
		IncludeSimilar:   true,
		IncludeExplore:   true,
		DiversityFactor:  0.3,
	}
}

type RecommendationResponse struct {
	UserID          uuid.UUID              `json:"user_id"`
	Recommendations []RankedRecommendation `json:"recommendations"`
	FromCache       bool                   `json:"from_cache"`
	GeneratedAt     time.Time              `json:"generated_at"`
}

type ViewEventRequest struct {
	ContentID      uuid.UUID `json:"content_id" validate:"required"`
	CompletionRate float64   `json:"completion_rate" validate:"min=0,max=1"`
	WatchDuration  int       `json:"watch_duration" validate:"min=0"`
}

type MarkViewedRequest struct {
	ContentIDs []uuid.UUID `json:"content_ids" validate:"required,min=1,max=100"`
}

// RelevanceScore is one validated entry from the external content-relevance
// scorer. The raw payload is duck-typed JSON; anything that survives schema
// validation is range-checked again before use.
type RelevanceScore struct {
	ContentID uuid.UUID              `json:"content_id"`
	Score     float64                `json:"score"` // [0,1]
	Reason    string                 `json:"reason"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

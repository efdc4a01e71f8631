package services

import (
	"math"
	"time"

	"github.com/reelworks/reco/internal/config"
	"github.com/reelworks/reco/pkg/models"
)

// Shared scoring helpers for the candidate providers. All weights live in
// config.ScoringConfig so they can be tuned without touching provider code.

// engagementScore is the weighted like/comment/share sum used by the
// following and topic providers.
func engagementScore(item *models.ContentItem, scoring *config.ScoringConfig) float64 {
	return float64(item.LikeCount)*scoring.LikeWeight +
		float64(item.CommentCount)*scoring.CommentWeight +
		float64(item.ShareCount)*scoring.ShareWeight
}

// cappedRecency maps content age to (0, cap]: one day old scores the full
// cap, halving per doubled age.
func cappedRecency(item *models.ContentItem, cap float64, now time.Time) float64 {
	return math.Min(cap, cap/item.AgeDays(now))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// candidateFromContent fills the candidate fields every provider shares.
func candidateFromContent(item *models.ContentItem, source models.RecommendationSource) models.Candidate {
	topics := make([]string, 0, len(item.Hashtags))
	for _, tag := range item.Hashtags {
		topics = append(topics, NormalizeTopic(tag))
	}
	return models.Candidate{
		ContentID: item.ID,
		CreatorID: item.CreatorID,
		Topics:    topics,
		Source:    source,
	}
}

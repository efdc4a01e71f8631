package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/internal/config"
	"github.com/reelworks/reco/pkg/models"
)

// TrendingProvider ranks recent content by engagement velocity. It works
// for brand-new users with no profile at all, and never proposes the
// requesting user's own uploads.
type TrendingProvider struct {
	catalog ContentCatalog
	scoring *config.ScoringConfig
	logger  *logrus.Logger
}

func NewTrendingProvider(
	catalog ContentCatalog,
	scoring *config.ScoringConfig,
	logger *logrus.Logger,
) *TrendingProvider {
	return &TrendingProvider{
		catalog: catalog,
		scoring: scoring,
		logger:  logger,
	}
}

func (p *TrendingProvider) Source() models.RecommendationSource {
	return models.SourceTrending
}

func (p *TrendingProvider) Fetch(ctx context.Context, req *ProviderRequest) ([]models.Candidate, error) {
	since := time.Now().Add(-p.scoring.TrendingWindow)

	items, err := p.catalog.FindPublished(ctx, models.ContentFilter{
		Since:   &since,
		Exclude: req.Exclude,
		Limit:   req.Limit * 2, // overfetch; own content is filtered below
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trending content: %w", err)
	}

	now := time.Now()
	candidates := make([]models.Candidate, 0, len(items))
	for i := range items {
		item := &items[i]
		if item.CreatorID == req.UserID {
			continue
		}

		candidate := candidateFromContent(item, models.SourceTrending)
		candidate.Score = p.velocityScore(item, now)
		candidate.Reason = "Trending now"
		candidates = append(candidates, candidate)

		if len(candidates) >= req.Limit {
			break
		}
	}

	return candidates, nil
}

// velocityScore is engagement-per-hour clamped into the trending band so
// trending scores never outrank followed-creator content on volume alone.
func (p *TrendingProvider) velocityScore(item *models.ContentItem, now time.Time) float64 {
	hoursOld := math.Max(1, now.Sub(item.CreatedAt).Hours())

	velocity := (float64(item.LikeCount)*p.scoring.TrendingLikeWeight +
		float64(item.CommentCount)*p.scoring.TrendingCommentWeight +
		float64(item.ShareCount)*p.scoring.TrendingShareWeight +
		float64(item.ViewCount)*p.scoring.TrendingViewWeight) / hoursOld

	return clamp(velocity, p.scoring.TrendingMin, p.scoring.TrendingMax)
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/internal/config"
	"github.com/reelworks/reco/pkg/models"
)

// FollowingProvider surfaces recent published content from creators the
// user follows. Scores start high: content from a deliberate follow is the
// strongest signal any provider has.
type FollowingProvider struct {
	catalog ContentCatalog
	graph   FollowGraph
	scoring *config.ScoringConfig
	logger  *logrus.Logger
}

func NewFollowingProvider(
	catalog ContentCatalog,
	graph FollowGraph,
	scoring *config.ScoringConfig,
	logger *logrus.Logger,
) *FollowingProvider {
	return &FollowingProvider{
		catalog: catalog,
		graph:   graph,
		scoring: scoring,
		logger:  logger,
	}
}

func (p *FollowingProvider) Source() models.RecommendationSource {
	return models.SourceFollowing
}

func (p *FollowingProvider) Fetch(ctx context.Context, req *ProviderRequest) ([]models.Candidate, error) {
	creators, err := p.graph.FollowedCreators(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve followed creators: %w", err)
	}
	if len(creators) == 0 {
		return nil, nil
	}

	items, err := p.catalog.FindPublished(ctx, models.ContentFilter{
		CreatorIDs: creators,
		Exclude:    req.Exclude,
		Limit:      req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch followed content: %w", err)
	}

	now := time.Now()
	candidates := make([]models.Candidate, 0, len(items))
	for i := range items {
		item := &items[i]

		recency := 1 / item.AgeDays(now)
		score := p.scoring.FollowingBase +
			recency*p.scoring.FollowingRecencyWeight +
			engagementScore(item, p.scoring)

		candidate := candidateFromContent(item, models.SourceFollowing)
		candidate.Score = score
		candidate.Reason = fmt.Sprintf("New from a creator you follow (%s)", item.CreatorID)
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

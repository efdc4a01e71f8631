package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/internal/config"
	"github.com/reelworks/reco/internal/scorer"
	"github.com/reelworks/reco/pkg/models"
)

// exploreTopicPool is how many active catalog topics are considered when
// looking for ones outside the user's interest set.
const exploreTopicPool = 30

// ExploreProvider proposes content from topics the user has not engaged
// with, delegating selection to the external content-relevance scorer. The
// scorer is allowed to be slow, down, or wrong: any failure falls back to a
// deterministic decreasing score by candidate order, and the request never
// sees an error from this provider that the orchestrator would not already
// absorb.
type ExploreProvider struct {
	catalog ContentCatalog
	scorer  scorer.RelevanceScorer
	config  *config.RecommendationConfig
	logger  *logrus.Logger
}

func NewExploreProvider(
	catalog ContentCatalog,
	relevanceScorer scorer.RelevanceScorer,
	cfg *config.RecommendationConfig,
	logger *logrus.Logger,
) *ExploreProvider {
	return &ExploreProvider{
		catalog: catalog,
		scorer:  relevanceScorer,
		config:  cfg,
		logger:  logger,
	}
}

func (p *ExploreProvider) Source() models.RecommendationSource {
	return models.SourceExplore
}

func (p *ExploreProvider) Fetch(ctx context.Context, req *ProviderRequest) ([]models.Candidate, error) {
	topics, err := p.noveltyTopics(ctx, req.Profile)
	if err != nil {
		return nil, fmt.Errorf("failed to find novelty topics: %w", err)
	}
	if len(topics) == 0 {
		return nil, nil
	}

	pool, err := p.catalog.FindPublished(ctx, models.ContentFilter{
		Topics:  topics,
		Exclude: req.Exclude,
		Limit:   req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch explore pool: %w", err)
	}
	if len(pool) == 0 {
		return nil, nil
	}

	scores := p.scoreCandidates(ctx, req.Profile, pool)

	byID := make(map[uuid.UUID]*models.ContentItem, len(pool))
	for i := range pool {
		byID[pool[i].ID] = &pool[i]
	}

	scoring := &p.config.Scoring
	candidates := make([]models.Candidate, 0, len(scores))
	for _, score := range scores {
		item, ok := byID[score.ContentID]
		if !ok {
			continue
		}

		candidate := candidateFromContent(item, models.SourceExplore)
		candidate.Score = scoring.ExploreBase + score.Score*scoring.ExploreRange
		candidate.Reason = score.Reason
		if candidate.Reason == "" {
			candidate.Reason = "Something new to explore"
		}
		candidate.Metadata = score.Metadata
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// noveltyTopics returns active catalog topics absent from the user's
// current interest set.
func (p *ExploreProvider) noveltyTopics(ctx context.Context, profile *models.InterestProfile) ([]string, error) {
	since := time.Now().Add(-p.config.Scoring.TrendingWindow)

	active, err := p.catalog.ActiveTopics(ctx, since, exploreTopicPool)
	if err != nil {
		return nil, err
	}

	known := profile.Topics()
	var novel []string
	for _, topic := range active {
		if _, ok := known[NormalizeTopic(topic)]; !ok {
			novel = append(novel, topic)
		}
	}
	return novel, nil
}

// scoreCandidates asks the external scorer to pick and score a subset, and
// degrades to deterministic fallback scores on any failure or contract
// violation.
func (p *ExploreProvider) scoreCandidates(
	ctx context.Context,
	profile *models.InterestProfile,
	pool []models.ContentItem,
) []models.RelevanceScore {
	scoring := &p.config.Scoring

	maxResults := scoring.ExploreMax
	if len(pool) < maxResults {
		maxResults = len(pool)
	}
	minResults := scoring.ExploreMin
	if len(pool) < minResults {
		minResults = len(pool)
	}

	if p.scorer != nil {
		summaries := make([]scorer.CandidateSummary, len(pool))
		for i := range pool {
			summaries[i] = scorer.CandidateSummary{
				ContentID: pool[i].ID,
				Title:     pool[i].Title,
				Topics:    pool[i].Hashtags,
				ViewCount: pool[i].ViewCount,
			}
		}

		scores, err := p.scorer.Score(ctx, scorer.ProfileSummary{
			Interests:          profile.Topics(),
			AvgCompletionRatio: profile.ViewingPatterns.AvgCompletionRatio,
			LikeRatio:          profile.Engagement.LikeRatio,
		}, summaries, maxResults)
		if err == nil && len(scores) >= minResults {
			if len(scores) > maxResults {
				scores = scores[:maxResults]
			}
			return scores
		}
		if err == nil {
			err = fmt.Errorf("scorer returned %d results, need at least %d", len(scores), minResults)
		}
		p.logger.WithError(err).Warn("Relevance scorer unusable, using fallback scores")
	}

	return fallbackScores(pool, maxResults)
}

// fallbackScores assigns a decreasing score by candidate order so explore
// output stays deterministic when the scorer is unavailable.
func fallbackScores(pool []models.ContentItem, maxResults int) []models.RelevanceScore {
	if maxResults > len(pool) {
		maxResults = len(pool)
	}

	scores := make([]models.RelevanceScore, maxResults)
	for i := 0; i < maxResults; i++ {
		scores[i] = models.RelevanceScore{
			ContentID: pool[i].ID,
			Score:     1 - float64(i)/float64(len(pool)),
			Reason:    "Something new to explore",
		}
	}
	return scores
}

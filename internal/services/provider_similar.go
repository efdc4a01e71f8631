package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/internal/config"
	"github.com/reelworks/reco/pkg/models"
)

// maxSimilarSeeds bounds how many recent high-completion views seed the
// similarity lookup.
const maxSimilarSeeds = 20

// SimilarContentProvider proposes content sharing a topic or creator with
// the user's recent high-completion views. Watching something to the end is
// a stronger signal than a view alone, so only those views become seeds.
type SimilarContentProvider struct {
	db      DatabaseQuerier
	catalog ContentCatalog
	config  *config.RecommendationConfig
	logger  *logrus.Logger
}

func NewSimilarContentProvider(
	db DatabaseQuerier,
	catalog ContentCatalog,
	cfg *config.RecommendationConfig,
	logger *logrus.Logger,
) *SimilarContentProvider {
	return &SimilarContentProvider{
		db:      db,
		catalog: catalog,
		config:  cfg,
		logger:  logger,
	}
}

func (p *SimilarContentProvider) Source() models.RecommendationSource {
	return models.SourceSimilar
}

func (p *SimilarContentProvider) Fetch(ctx context.Context, req *ProviderRequest) ([]models.Candidate, error) {
	seedIDs, err := p.highCompletionViews(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed views: %w", err)
	}
	if len(seedIDs) == 0 {
		return nil, nil
	}

	seeds, err := p.catalog.FindByIDs(ctx, seedIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed content: %w", err)
	}

	seedTopics := make(map[string]bool)
	seedCreators := make(map[uuid.UUID]bool)
	for i := range seeds {
		seedCreators[seeds[i].CreatorID] = true
		for _, tag := range seeds[i].Hashtags {
			seedTopics[NormalizeTopic(tag)] = true
		}
	}

	// Two lookups (shared topic, shared creator) merged; the seeds
	// themselves are in the exclude set already since they were viewed.
	exclude := append(append([]uuid.UUID{}, req.Exclude...), seedIDs...)

	topics := make([]string, 0, len(seedTopics))
	for topic := range seedTopics {
		topics = append(topics, topic)
	}

	byTopic, err := p.catalog.FindPublished(ctx, models.ContentFilter{
		Topics:  topics,
		Exclude: exclude,
		Limit:   req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch topic-similar content: %w", err)
	}

	creators := make([]uuid.UUID, 0, len(seedCreators))
	for creator := range seedCreators {
		creators = append(creators, creator)
	}

	byCreator, err := p.catalog.FindPublished(ctx, models.ContentFilter{
		CreatorIDs: creators,
		Exclude:    exclude,
		Limit:      req.Limit,
	})
	if err != nil {
		p.logger.WithError(err).Warn("Creator-similar lookup failed, continuing with topic matches only")
		byCreator = nil
	}

	now := time.Now()
	seen := make(map[uuid.UUID]bool)
	candidates := make([]models.Candidate, 0, len(byTopic)+len(byCreator))
	for _, items := range [][]models.ContentItem{byTopic, byCreator} {
		for i := range items {
			item := &items[i]
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true

			candidate := candidateFromContent(item, models.SourceSimilar)
			candidate.Score = p.score(item, seedTopics, seedCreators, now)
			candidate.Reason = "Similar to videos you watched"
			candidates = append(candidates, candidate)
		}
	}

	return candidates, nil
}

func (p *SimilarContentProvider) score(
	item *models.ContentItem,
	seedTopics map[string]bool,
	seedCreators map[uuid.UUID]bool,
	now time.Time,
) float64 {
	scoring := &p.config.Scoring

	var overlap int
	for _, tag := range item.Hashtags {
		if seedTopics[NormalizeTopic(tag)] {
			overlap++
		}
	}
	var topicOverlap float64
	if len(item.Hashtags) > 0 {
		topicOverlap = math.Min(scoring.SimilarTopicCap,
			scoring.SimilarTopicCap*float64(overlap)/float64(len(item.Hashtags)))
	}

	var creatorOverlap float64
	if seedCreators[item.CreatorID] {
		creatorOverlap = scoring.SimilarCreatorBonus
	}

	quality := clamp(item.QualityScore, 0, 1) * scoring.SimilarQualityCap
	recency := cappedRecency(item, scoring.SimilarRecencyCap, now)

	return topicOverlap + creatorOverlap + quality + recency
}

func (p *SimilarContentProvider) highCompletionViews(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	since := time.Now().Add(-p.config.LookbackWindow)

	rows, err := p.db.Query(ctx, `
		SELECT DISTINCT content_id
		FROM behavior_records
		WHERE user_id = $1
			AND behavior_type = 'view'
			AND completion_rate >= $2
			AND timestamp >= $3
		LIMIT $4`,
		userID, p.config.Scoring.SimilarSeedMinCompletion, since, maxSimilarSeeds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

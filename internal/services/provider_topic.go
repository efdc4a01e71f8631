package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/internal/config"
	"github.com/reelworks/reco/pkg/models"
)

// maxQueryTopics bounds the hashtag overlap query; interests beyond the
// strongest ones contribute too little weight to matter.
const maxQueryTopics = 10

// TopicAffinityProvider surfaces content tagged with the user's combined
// explicit and implicit interest topics. An empty profile yields no
// candidates, which is valid output.
type TopicAffinityProvider struct {
	catalog ContentCatalog
	scoring *config.ScoringConfig
	logger  *logrus.Logger
}

func NewTopicAffinityProvider(
	catalog ContentCatalog,
	scoring *config.ScoringConfig,
	logger *logrus.Logger,
) *TopicAffinityProvider {
	return &TopicAffinityProvider{
		catalog: catalog,
		scoring: scoring,
		logger:  logger,
	}
}

func (p *TopicAffinityProvider) Source() models.RecommendationSource {
	return models.SourceTopic
}

func (p *TopicAffinityProvider) Fetch(ctx context.Context, req *ProviderRequest) ([]models.Candidate, error) {
	interests := req.Profile.Topics()
	if len(interests) == 0 {
		return nil, nil
	}

	queryTopics := strongestTopics(interests, maxQueryTopics)

	items, err := p.catalog.FindPublished(ctx, models.ContentFilter{
		Topics:  queryTopics,
		Exclude: req.Exclude,
		Limit:   req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch topic content: %w", err)
	}

	now := time.Now()
	candidates := make([]models.Candidate, 0, len(items))
	for i := range items {
		item := &items[i]

		var matchedWeight float64
		var matched []string
		for _, tag := range item.Hashtags {
			topic := NormalizeTopic(tag)
			if weight, ok := interests[topic]; ok {
				matchedWeight += weight
				matched = append(matched, topic)
			}
		}
		if len(matched) == 0 {
			continue
		}

		topicMatch := math.Min(p.scoring.TopicMatchCap, matchedWeight*p.scoring.TopicMatchCap)
		engagement := math.Min(p.scoring.TopicEngagementCap, engagementScore(item, p.scoring))
		recency := cappedRecency(item, p.scoring.TopicRecencyCap, now)

		candidate := candidateFromContent(item, models.SourceTopic)
		candidate.Score = topicMatch + engagement + recency
		candidate.Reason = topicReason(matched)
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// strongestTopics returns up to n interest topics by descending weight.
func strongestTopics(interests map[string]float64, n int) []string {
	topics := make([]string, 0, len(interests))
	for topic := range interests {
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(i, j int) bool {
		if interests[topics[i]] != interests[topics[j]] {
			return interests[topics[i]] > interests[topics[j]]
		}
		return topics[i] < topics[j]
	})
	if len(topics) > n {
		topics = topics[:n]
	}
	return topics
}

func topicReason(matched []string) string {
	sort.Strings(matched)
	if len(matched) > 2 {
		matched = matched[:2]
	}
	return fmt.Sprintf("Matches your interest in #%s", strings.Join(matched, ", #"))
}

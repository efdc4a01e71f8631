package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/internal/config"
	"github.com/reelworks/reco/internal/scorer"
	"github.com/reelworks/reco/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		FollowingBase:          90.0,
		FollowingRecencyWeight: 10.0,

		LikeWeight:    0.01,
		CommentWeight: 0.02,
		ShareWeight:   0.03,

		TopicMatchCap:      50.0,
		TopicEngagementCap: 30.0,
		TopicRecencyCap:    20.0,

		TrendingLikeWeight:    1.5,
		TrendingCommentWeight: 2.0,
		TrendingShareWeight:   3.0,
		TrendingViewWeight:    0.1,
		TrendingMin:           40.0,
		TrendingMax:           85.0,
		TrendingWindow:        168 * time.Hour,

		SimilarTopicCap:          40.0,
		SimilarCreatorBonus:      20.0,
		SimilarQualityCap:        20.0,
		SimilarRecencyCap:        20.0,
		SimilarSeedMinCompletion: 0.7,

		ExploreBase:  55.0,
		ExploreRange: 20.0,
		ExploreMin:   5,
		ExploreMax:   10,

		DiversityProtectTop:  3,
		DiversityCreatorPen:  10.0,
		DiversityTopicPen:    15.0,
		DiversityExploreBump: 5.0,

		CompletionHighTier:   0.9,
		CompletionMidTier:    0.7,
		CompletionLowTier:    0.4,
		WeightHighCompletion: 3.0,
		WeightMidCompletion:  2.0,
		WeightLowCompletion:  1.0,
		WeightMinCompletion:  0.5,
	}
}

func testRecommendationConfig() *config.RecommendationConfig {
	return &config.RecommendationConfig{
		DefaultLimit:    20,
		CandidateLimit:  40,
		DiversityFactor: 0.3,
		ProviderTimeout: 2 * time.Second,
		FreshnessWindow: 24 * time.Hour,
		ExcludeWindow:   14 * 24 * time.Hour,
		LookbackWindow:  30 * 24 * time.Hour,
		ProfileCacheTTL: 10 * time.Minute,
		Scoring:         testScoringConfig(),
	}
}

// stubCatalog serves canned content for provider tests and records the
// filters it was asked for.
type stubCatalog struct {
	published []models.ContentItem
	byIDs     []models.ContentItem
	topics    []string
	err       error

	publishedFilters []models.ContentFilter
}

func (s *stubCatalog) FindPublished(_ context.Context, filter models.ContentFilter) ([]models.ContentItem, error) {
	s.publishedFilters = append(s.publishedFilters, filter)
	if s.err != nil {
		return nil, s.err
	}

	exclude := make(map[uuid.UUID]bool, len(filter.Exclude))
	for _, id := range filter.Exclude {
		exclude[id] = true
	}

	var items []models.ContentItem
	for _, item := range s.published {
		if !exclude[item.ID] {
			items = append(items, item)
		}
	}
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (s *stubCatalog) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.ContentItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var items []models.ContentItem
	for _, item := range s.byIDs {
		if want[item.ID] {
			items = append(items, item)
		}
	}
	return items, nil
}

func (s *stubCatalog) ActiveTopics(_ context.Context, _ time.Time, limit int) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	topics := s.topics
	if limit > 0 && len(topics) > limit {
		topics = topics[:limit]
	}
	return topics, nil
}

type stubFollowGraph struct {
	creators []uuid.UUID
	err      error
}

func (s *stubFollowGraph) FollowedCreators(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	return s.creators, s.err
}

type stubScorer struct {
	scores []models.RelevanceScore
	err    error
}

func (s *stubScorer) Score(_ context.Context, _ scorer.ProfileSummary, _ []scorer.CandidateSummary, _ int) ([]models.RelevanceScore, error) {
	return s.scores, s.err
}

type stubProfileBuilder struct {
	profile *models.InterestProfile
}

func (s *stubProfileBuilder) BuildProfile(_ context.Context, userID uuid.UUID) *models.InterestProfile {
	if s.profile != nil {
		return s.profile
	}
	return &models.InterestProfile{UserID: userID, BuiltAt: time.Now()}
}

// stubStore is an in-memory RecommendationStoreInterface for orchestrator
// tests.
type stubStore struct {
	fresh     []models.RankedRecommendation
	freshErr  error
	viewed    []uuid.UUID
	viewedErr error

	persisted [][]models.RankedRecommendation
}

func (s *stubStore) GetFreshRecommendations(_ context.Context, _ uuid.UUID, limit int) ([]models.RankedRecommendation, error) {
	if s.freshErr != nil {
		return nil, s.freshErr
	}
	fresh := s.fresh
	if limit > 0 && len(fresh) > limit {
		fresh = fresh[:limit]
	}
	return fresh, nil
}

func (s *stubStore) Persist(_ context.Context, _ uuid.UUID, ranked []models.RankedRecommendation) error {
	s.persisted = append(s.persisted, ranked)
	return nil
}

func (s *stubStore) RecordView(_ context.Context, _, _ uuid.UUID, _ float64, _ int) error {
	return nil
}

func (s *stubStore) MarkViewed(_ context.Context, _ uuid.UUID, _ []uuid.UUID) error {
	return nil
}

func (s *stubStore) RecentlyViewed(_ context.Context, _ uuid.UUID, _ time.Time) ([]uuid.UUID, error) {
	return s.viewed, s.viewedErr
}

// stubProvider returns fixed candidates (or an error) for its source.
type stubProvider struct {
	source     models.RecommendationSource
	candidates []models.Candidate
	err        error
}

func (s *stubProvider) Source() models.RecommendationSource {
	return s.source
}

func (s *stubProvider) Fetch(_ context.Context, _ *ProviderRequest) ([]models.Candidate, error) {
	return s.candidates, s.err
}

func candidate(source models.RecommendationSource, score float64) models.Candidate {
	return models.Candidate{
		ContentID: uuid.New(),
		CreatorID: uuid.New(),
		Score:     score,
		Source:    source,
	}
}

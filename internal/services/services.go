package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/internal/config"
	"github.com/reelworks/reco/internal/database"
	"github.com/reelworks/reco/internal/messaging"
	"github.com/reelworks/reco/internal/scorer"
)

type Services struct {
	Catalog        *ContentCatalogService
	Profile        *InterestProfileService
	Store          *RecommendationStore
	Reranker       *DiversityReranker
	Recommendation *RecommendationService
	RateLimit      *RateLimitService
	BehaviorBus    *messaging.BehaviorBus
	Metrics        *PipelineMetrics
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	behaviorBus, err := messaging.NewBehaviorBus(cfg, logger)
	if err != nil {
		return nil, err
	}

	catalog := NewContentCatalogService(db.PG, logger)
	profile := NewInterestProfileService(db.PG, db.Redis, &cfg.Recommendation, logger)
	store := NewRecommendationStore(db.PG, behaviorBus, &cfg.Recommendation, logger)
	reranker := NewDiversityReranker(&cfg.Recommendation.Scoring, logger)
	rateLimit := NewRateLimitService(db.Redis, &cfg.Auth.RateLimit, logger)
	metrics := NewPipelineMetrics(prometheus.DefaultRegisterer)

	relevanceScorer, err := scorer.NewHTTPScorer(&cfg.Scorer, logger)
	if err != nil {
		return nil, err
	}

	followGraph := NewNeo4jFollowGraph(db.Neo4j, logger)

	providers := []CandidateProvider{
		NewFollowingProvider(catalog, followGraph, &cfg.Recommendation.Scoring, logger),
		NewTopicAffinityProvider(catalog, &cfg.Recommendation.Scoring, logger),
		NewTrendingProvider(catalog, &cfg.Recommendation.Scoring, logger),
		NewSimilarContentProvider(db.PG, catalog, &cfg.Recommendation, logger),
		NewExploreProvider(catalog, relevanceScorer, &cfg.Recommendation, logger),
	}

	recommendation := NewRecommendationService(
		providers, profile, store, reranker, &cfg.Recommendation, metrics, logger,
	)

	return &Services{
		Catalog:        catalog,
		Profile:        profile,
		Store:          store,
		Reranker:       reranker,
		Recommendation: recommendation,
		RateLimit:      rateLimit,
		BehaviorBus:    behaviorBus,
		Metrics:        metrics,
	}, nil
}

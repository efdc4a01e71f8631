package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/internal/config"
	"github.com/reelworks/reco/pkg/models"
)

// providerResult is the outcome of one provider fetch within a ranking run.
type providerResult struct {
	Source     models.RecommendationSource
	Candidates []models.Candidate
	Latency    time.Duration
	Err        error
}

// RecommendationService is the top-level entry point: it serves fresh
// persisted results when enough exist, otherwise runs the full ranking
// pipeline (profile, parallel provider fan-out, aggregate, rerank,
// persist). All provider failures are soft; a total failure yields an
// empty list, never an error the caller has to render.
type RecommendationService struct {
	providers []CandidateProvider
	profile   ProfileBuilder
	store     RecommendationStoreInterface
	reranker  *DiversityReranker
	config    *config.RecommendationConfig
	metrics   *PipelineMetrics
	logger    *logrus.Logger
}

func NewRecommendationService(
	providers []CandidateProvider,
	profile ProfileBuilder,
	store RecommendationStoreInterface,
	reranker *DiversityReranker,
	cfg *config.RecommendationConfig,
	metrics *PipelineMetrics,
	logger *logrus.Logger,
) *RecommendationService {
	return &RecommendationService{
		providers: providers,
		profile:   profile,
		store:     store,
		reranker:  reranker,
		config:    cfg,
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *RecommendationService) GetRecommendations(
	ctx context.Context,
	userID uuid.UUID,
	opts models.RecommendationOptions,
) (*models.RecommendationResponse, error) {
	startTime := time.Now()
	opts = s.normalizeOptions(opts)

	// Serve from the store when enough fresh, unconsumed rows exist.
	fresh, err := s.store.GetFreshRecommendations(ctx, userID, opts.Limit)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Fresh recommendation lookup failed, running full pipeline")
	} else if len(fresh) >= opts.Limit {
		if s.metrics != nil {
			s.metrics.CacheHit()
		}
		return &models.RecommendationResponse{
			UserID:          userID,
			Recommendations: fresh,
			FromCache:       true,
			GeneratedAt:     startTime,
		}, nil
	}

	profile := s.profile.BuildProfile(ctx, userID)

	exclude, err := s.store.RecentlyViewed(ctx, userID, time.Now().Add(-s.config.ExcludeWindow))
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load exclusion set, continuing without it")
		exclude = nil
	}

	req := &ProviderRequest{
		UserID:  userID,
		Profile: profile,
		Exclude: exclude,
		Limit:   s.config.CandidateLimit,
	}

	results := s.fetchParallel(ctx, req, opts)

	var all []models.Candidate
	for _, result := range results {
		all = append(all, result.Candidates...)
	}

	merged := AggregateCandidates(all)
	ranked := s.reranker.Rerank(merged, opts.DiversityFactor, opts.Limit)
	recommendations := s.toRankedRecommendations(userID, ranked)

	// A canceled caller gets nothing back, but completed provider work is
	// still persisted to warm the store for the next request.
	if ctx.Err() != nil {
		persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.store.Persist(persistCtx, userID, recommendations); err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("Cache-warm persistence failed after cancellation")
		}
		return nil, ctx.Err()
	}

	if err := s.store.Persist(ctx, userID, recommendations); err != nil {
		// Results are still returned; the store regenerates missing rows
		// on the next pass once the freshness window permits.
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to persist ranked recommendations")
	}

	if s.metrics != nil {
		s.metrics.ObservePipeline(time.Since(startTime))
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"candidates": len(all),
		"returned":   len(recommendations),
		"latency":    time.Since(startTime),
	}).Info("Recommendations generated")

	return &models.RecommendationResponse{
		UserID:          userID,
		Recommendations: recommendations,
		FromCache:       false,
		GeneratedAt:     startTime,
	}, nil
}

// fetchParallel fans out to every enabled provider with an independent
// timeout. A provider that errors or times out contributes an empty result
// set; the join never fails.
func (s *RecommendationService) fetchParallel(
	ctx context.Context,
	req *ProviderRequest,
	opts models.RecommendationOptions,
) []providerResult {
	enabled := make([]CandidateProvider, 0, len(s.providers))
	for _, provider := range s.providers {
		if s.providerEnabled(provider.Source(), opts) {
			enabled = append(enabled, provider)
		}
	}

	var wg sync.WaitGroup
	results := make([]providerResult, len(enabled))

	for i, provider := range enabled {
		wg.Add(1)
		go func(i int, provider CandidateProvider) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, s.config.ProviderTimeout)
			defer cancel()

			startTime := time.Now()
			candidates, err := provider.Fetch(fetchCtx, req)
			latency := time.Since(startTime)

			if err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"source":  provider.Source(),
					"user_id": req.UserID,
					"latency": latency,
				}).Warn("Candidate provider failed, contributing no candidates")
				candidates = nil
			}

			if s.metrics != nil {
				s.metrics.ObserveProvider(string(provider.Source()), latency, err != nil)
			}

			results[i] = providerResult{
				Source:     provider.Source(),
				Candidates: candidates,
				Latency:    latency,
				Err:        err,
			}
		}(i, provider)
	}

	wg.Wait()
	return results
}

func (s *RecommendationService) providerEnabled(source models.RecommendationSource, opts models.RecommendationOptions) bool {
	switch source {
	case models.SourceFollowing:
		return opts.IncludeFollowing
	case models.SourceTopic:
		return opts.IncludeTopic
	case models.SourceTrending:
		return opts.IncludeTrending
	case models.SourceSimilar:
		return opts.IncludeSimilar
	case models.SourceExplore:
		return opts.IncludeExplore
	default:
		return false
	}
}

func (s *RecommendationService) normalizeOptions(opts models.RecommendationOptions) models.RecommendationOptions {
	if opts.Limit <= 0 {
		opts.Limit = s.config.DefaultLimit
	}
	if opts.DiversityFactor < 0 {
		opts.DiversityFactor = 0
	}
	if opts.DiversityFactor > 1 {
		opts.DiversityFactor = 1
	}
	return opts
}

func (s *RecommendationService) toRankedRecommendations(userID uuid.UUID, candidates []models.Candidate) []models.RankedRecommendation {
	now := time.Now()
	recommendations := make([]models.RankedRecommendation, len(candidates))
	for i, candidate := range candidates {
		recommendations[i] = models.RankedRecommendation{
			UserID:     userID,
			ContentID:  candidate.ContentID,
			FinalScore: candidate.Score,
			Reason:     candidate.Reason,
			Source:     candidate.Source,
			CreatedAt:  now,
			Metadata:   candidate.Metadata,
		}
	}
	return recommendations
}

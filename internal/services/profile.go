package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
	"gonum.org/v1/gonum/stat"

	"github.com/reelworks/reco/internal/config"
	"github.com/reelworks/reco/pkg/models"
)

// InterestProfileService derives per-user interest profiles from explicit
// topic preferences and the behavioral log. It is fail-open: any internal
// error degrades to an empty profile so the ranking pipeline keeps running
// with source-agnostic scores.
type InterestProfileService struct {
	db     DatabaseQuerier
	redis  *redis.Client
	config *config.RecommendationConfig
	logger *logrus.Logger
}

func NewInterestProfileService(
	db DatabaseQuerier,
	redis *redis.Client,
	cfg *config.RecommendationConfig,
	logger *logrus.Logger,
) *InterestProfileService {
	return &InterestProfileService{
		db:     db,
		redis:  redis,
		config: cfg,
		logger: logger,
	}
}

// viewRecord is one recent view joined with the content's hashtags.
type viewRecord struct {
	completionRate float64
	watchDuration  float64
	viewedAt       time.Time
	topics         []string
}

func (s *InterestProfileService) BuildProfile(ctx context.Context, userID uuid.UUID) *models.InterestProfile {
	if cached := s.getCachedProfile(ctx, userID); cached != nil {
		return cached
	}

	profile := &models.InterestProfile{
		UserID:  userID,
		BuiltAt: time.Now(),
	}

	since := time.Now().Add(-s.config.LookbackWindow)

	explicit, err := s.loadExplicitInterests(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load explicit interests, continuing with empty set")
	} else {
		profile.ExplicitInterests = explicit
	}

	views, err := s.loadRecentViews(ctx, userID, since)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load recent views, continuing with empty history")
		views = nil
	}

	profile.ImplicitInterests = s.computeImplicitInterests(views)
	profile.ViewingPatterns = buildViewingPatterns(views)

	engagement, err := s.loadEngagementMetrics(ctx, userID, since)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load engagement metrics")
	} else {
		profile.Engagement = engagement
	}

	s.cacheProfile(ctx, profile)

	s.logger.WithFields(logrus.Fields{
		"user_id":            userID,
		"explicit_interests": len(profile.ExplicitInterests),
		"implicit_interests": len(profile.ImplicitInterests),
		"recent_views":       len(views),
	}).Debug("Interest profile built")

	return profile
}

// InvalidateProfile drops the cached profile so the next request rebuilds it
// from the behavioral log. Called by the behavior-event consumer.
func (s *InterestProfileService) InvalidateProfile(ctx context.Context, userID uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, profileCacheKey(userID)).Err(); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to invalidate cached profile")
	}
}

func (s *InterestProfileService) loadExplicitInterests(ctx context.Context, userID uuid.UUID) (map[string]float64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT topic, weight
		FROM user_topic_preferences
		WHERE user_id = $1 AND weight > 0`, userID)
	if err != nil {
		return nil, fmt.Errorf("explicit interests query failed: %w", err)
	}
	defer rows.Close()

	interests := make(map[string]float64)
	for rows.Next() {
		var topic string
		var weight float64
		if err := rows.Scan(&topic, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan preference row: %w", err)
		}
		if weight > 1 {
			weight = 1
		}
		interests[NormalizeTopic(topic)] = weight
	}

	if len(interests) == 0 {
		return nil, rows.Err()
	}
	return interests, rows.Err()
}

func (s *InterestProfileService) loadRecentViews(ctx context.Context, userID uuid.UUID, since time.Time) ([]viewRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT b.completion_rate, b.watch_duration, b.timestamp, c.hashtags
		FROM behavior_records b
		JOIN content_items c ON c.id = b.content_id
		WHERE b.user_id = $1 AND b.behavior_type = 'view' AND b.timestamp >= $2
		ORDER BY b.timestamp DESC`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("recent views query failed: %w", err)
	}
	defer rows.Close()

	var views []viewRecord
	for rows.Next() {
		var view viewRecord
		var duration int
		if err := rows.Scan(&view.completionRate, &duration, &view.viewedAt, &view.topics); err != nil {
			return nil, fmt.Errorf("failed to scan view row: %w", err)
		}
		view.watchDuration = float64(duration)
		views = append(views, view)
	}

	return views, rows.Err()
}

func (s *InterestProfileService) loadEngagementMetrics(ctx context.Context, userID uuid.UUID, since time.Time) (models.EngagementMetrics, error) {
	rows, err := s.db.Query(ctx, `
		SELECT behavior_type, COUNT(*)
		FROM behavior_records
		WHERE user_id = $1 AND timestamp >= $2
		GROUP BY behavior_type`, userID, since)
	if err != nil {
		return models.EngagementMetrics{}, fmt.Errorf("engagement metrics query failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]float64)
	for rows.Next() {
		var behaviorType string
		var count int64
		if err := rows.Scan(&behaviorType, &count); err != nil {
			return models.EngagementMetrics{}, fmt.Errorf("failed to scan behavior count: %w", err)
		}
		counts[behaviorType] = float64(count)
	}
	if err := rows.Err(); err != nil {
		return models.EngagementMetrics{}, err
	}

	views := counts["view"]
	if views == 0 {
		return models.EngagementMetrics{}, nil
	}

	return models.EngagementMetrics{
		LikeRatio:    counts["like"] / views,
		CommentRatio: counts["comment"] / views,
		ShareRatio:   counts["share"] / views,
	}, nil
}

// computeImplicitInterests turns recent views into normalized topic weights.
// Each view contributes by completion tier; contributions are summed per
// topic across the view's hashtags and divided by the total mass so the
// weights sum to 1. Zero mass yields an empty set.
func (s *InterestProfileService) computeImplicitInterests(views []viewRecord) map[string]float64 {
	scoring := &s.config.Scoring

	contributions := make(map[string]float64)
	var totalMass float64

	for _, view := range views {
		contribution := completionContribution(view.completionRate, scoring)
		for _, topic := range view.topics {
			key := NormalizeTopic(topic)
			if key == "" {
				continue
			}
			contributions[key] += contribution
			totalMass += contribution
		}
	}

	if totalMass == 0 {
		return nil
	}

	weights := make(map[string]float64, len(contributions))
	for topic, mass := range contributions {
		weights[topic] = mass / totalMass
	}
	return weights
}

func completionContribution(completionRate float64, scoring *config.ScoringConfig) float64 {
	switch {
	case completionRate >= scoring.CompletionHighTier:
		return scoring.WeightHighCompletion
	case completionRate >= scoring.CompletionMidTier:
		return scoring.WeightMidCompletion
	case completionRate >= scoring.CompletionLowTier:
		return scoring.WeightLowCompletion
	default:
		return scoring.WeightMinCompletion
	}
}

func buildViewingPatterns(views []viewRecord) models.ViewingPatterns {
	patterns := models.ViewingPatterns{}
	if len(views) == 0 {
		return patterns
	}

	durations := make([]float64, len(views))
	completions := make([]float64, len(views))
	topicEngagement := make(map[string]int)

	for i, view := range views {
		durations[i] = view.watchDuration
		completions[i] = view.completionRate
		patterns.HourHistogram[view.viewedAt.Hour()]++
		for _, topic := range view.topics {
			topicEngagement[NormalizeTopic(topic)]++
		}
	}

	patterns.AvgWatchDuration = stat.Mean(durations, nil)
	patterns.AvgCompletionRatio = stat.Mean(completions, nil)
	patterns.TopicEngagement = topicEngagement
	return patterns
}

// NormalizeTopic collapses hashtag variants (case, compatibility forms) to
// one topic key.
func NormalizeTopic(topic string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(topic)))
}

func profileCacheKey(userID uuid.UUID) string {
	return "profile:" + userID.String()
}

func (s *InterestProfileService) getCachedProfile(ctx context.Context, userID uuid.UUID) *models.InterestProfile {
	if s.redis == nil {
		return nil
	}

	cached, err := s.redis.Get(ctx, profileCacheKey(userID)).Result()
	if err != nil {
		return nil
	}

	var profile models.InterestProfile
	if err := json.Unmarshal([]byte(cached), &profile); err != nil {
		s.logger.WithError(err).Warn("Failed to unmarshal cached profile")
		return nil
	}
	return &profile
}

func (s *InterestProfileService) cacheProfile(ctx context.Context, profile *models.InterestProfile) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return
	}

	if err := s.redis.Set(ctx, profileCacheKey(profile.UserID), data, s.config.ProfileCacheTTL).Err(); err != nil {
		s.logger.WithError(err).Warn("Failed to cache profile")
	}
}

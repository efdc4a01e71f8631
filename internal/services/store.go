package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/internal/config"
	"github.com/reelworks/reco/pkg/models"
)

// RecommendationStore owns persisted RankedRecommendation rows and the
// behavioral-log appends. Providers and the reranker never touch this
// state; all mutation funnels through here.
type RecommendationStore struct {
	db     DatabaseExecutor
	bus    BehaviorPublisher
	config *config.RecommendationConfig
	logger *logrus.Logger
}

func NewRecommendationStore(
	db DatabaseExecutor,
	bus BehaviorPublisher,
	cfg *config.RecommendationConfig,
	logger *logrus.Logger,
) *RecommendationStore {
	return &RecommendationStore{
		db:     db,
		bus:    bus,
		config: cfg,
		logger: logger,
	}
}

// GetFreshRecommendations returns up to limit non-viewed rows created inside
// the freshness window, highest score first. Fewer than limit rows means
// the caller should run a fresh ranking pass.
func (s *RecommendationStore) GetFreshRecommendations(ctx context.Context, userID uuid.UUID, limit int) ([]models.RankedRecommendation, error) {
	cutoff := time.Now().Add(-s.config.FreshnessWindow)

	rows, err := s.db.Query(ctx, `
		SELECT user_id, content_id, final_score, reason, source,
			is_viewed, is_clicked, created_at, viewed_at, clicked_at, metadata
		FROM recommendations
		WHERE user_id = $1 AND is_viewed = false AND created_at >= $2
		ORDER BY final_score DESC
		LIMIT $3`, userID, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("fresh recommendations query failed: %w", err)
	}
	defer rows.Close()

	var recommendations []models.RankedRecommendation
	for rows.Next() {
		var rec models.RankedRecommendation
		err := rows.Scan(
			&rec.UserID,
			&rec.ContentID,
			&rec.FinalScore,
			&rec.Reason,
			&rec.Source,
			&rec.IsViewed,
			&rec.IsClicked,
			&rec.CreatedAt,
			&rec.ViewedAt,
			&rec.ClickedAt,
			&rec.Metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation row: %w", err)
		}
		recommendations = append(recommendations, rec)
	}

	return recommendations, rows.Err()
}

// Persist upserts the ranked list keyed by (user, content). Existing rows
// are left alone so re-ranking the same content never duplicates or bumps a
// recommendation the user already saw. A failed row is logged and skipped;
// the next ranking pass regenerates whatever is missing.
func (s *RecommendationStore) Persist(ctx context.Context, userID uuid.UUID, ranked []models.RankedRecommendation) error {
	var failed int
	for i := range ranked {
		rec := &ranked[i]
		_, err := s.db.Exec(ctx, `
			INSERT INTO recommendations
				(user_id, content_id, final_score, reason, source, is_viewed, is_clicked, created_at, metadata)
			VALUES ($1, $2, $3, $4, $5, false, false, $6, $7)
			ON CONFLICT (user_id, content_id) DO NOTHING`,
			userID, rec.ContentID, rec.FinalScore, rec.Reason, rec.Source, rec.CreatedAt, rec.Metadata)
		if err != nil {
			failed++
			s.logger.WithError(err).WithFields(logrus.Fields{
				"user_id":    userID,
				"content_id": rec.ContentID,
			}).Warn("Failed to persist recommendation row, skipping")
		}
	}

	if failed > 0 {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"failed":  failed,
			"total":   len(ranked),
		}).Warn("Partial recommendation persistence")
	}
	return nil
}

// RecordView closes the feedback loop for one watched video. If an
// unclicked recommendation row matches it is marked viewed and clicked with
// the watch outcome; either way a behavioral-log record is appended, so
// organic views feed the profile builder too.
func (s *RecommendationStore) RecordView(ctx context.Context, userID, contentID uuid.UUID, completionRate float64, watchDuration int) error {
	now := time.Now()

	tag, err := s.db.Exec(ctx, `
		UPDATE recommendations
		SET is_viewed = true, is_clicked = true, viewed_at = $3, clicked_at = $3,
			metadata = COALESCE(metadata, '{}'::jsonb) || $4
		WHERE user_id = $1 AND content_id = $2 AND is_clicked = false`,
		userID, contentID, now,
		map[string]interface{}{
			"completion_rate": completionRate,
			"watch_duration":  watchDuration,
		})

	fromRecommendation := false
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":    userID,
			"content_id": contentID,
		}).Warn("Failed to update recommendation outcome")
	} else {
		fromRecommendation = tag.RowsAffected() > 0
	}

	record := models.BehaviorRecord{
		ID:             uuid.New(),
		UserID:         userID,
		BehaviorType:   "view",
		ContentID:      contentID,
		ContentType:    "video",
		WatchDuration:  watchDuration,
		CompletionRate: completionRate,
		Metadata: map[string]interface{}{
			"fromRecommendation": fromRecommendation,
		},
		Timestamp: now,
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO behavior_records
			(id, user_id, behavior_type, content_id, content_type, watch_duration, completion_rate, metadata, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID, record.UserID, record.BehaviorType, record.ContentID, record.ContentType,
		record.WatchDuration, record.CompletionRate, record.Metadata, record.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append behavior record: %w", err)
	}

	if s.bus != nil {
		if err := s.bus.Publish(ctx, record); err != nil {
			// The row is durable; the bus is best-effort fan-out.
			s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to publish behavior event")
		}
	}

	return nil
}

// MarkViewed flags a batch as surfaced to the user without engagement.
// Already-viewed rows are untouched (last write wins on status flags).
func (s *RecommendationStore) MarkViewed(ctx context.Context, userID uuid.UUID, contentIDs []uuid.UUID) error {
	if len(contentIDs) == 0 {
		return nil
	}

	_, err := s.db.Exec(ctx, `
		UPDATE recommendations
		SET is_viewed = true, viewed_at = $3
		WHERE user_id = $1 AND content_id = ANY($2) AND is_viewed = false`,
		userID, contentIDs, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark recommendations viewed: %w", err)
	}

	return nil
}

// RecentlyViewed returns distinct content IDs the user viewed since the
// given time, used as the exclusion set for candidate providers.
func (s *RecommendationStore) RecentlyViewed(ctx context.Context, userID uuid.UUID, since time.Time) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT content_id
		FROM behavior_records
		WHERE user_id = $1 AND behavior_type = 'view' AND timestamp >= $2`,
		userID, since)
	if err != nil {
		return nil, fmt.Errorf("recently viewed query failed: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan viewed content id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

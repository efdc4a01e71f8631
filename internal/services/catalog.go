package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/pkg/models"
)

// ContentCatalogService implements catalog lookups over PostgreSQL. The
// catalog tables are owned by the content subsystem; everything here is
// read-only and assumed eventually consistent.
type ContentCatalogService struct {
	db     DatabaseQuerier
	logger *logrus.Logger
}

func NewContentCatalogService(db DatabaseQuerier, logger *logrus.Logger) *ContentCatalogService {
	return &ContentCatalogService{
		db:     db,
		logger: logger,
	}
}

const contentColumns = `id, creator_id, title, hashtags, duration,
		like_count, comment_count, share_count, view_count, quality_score, published, created_at`

func (s *ContentCatalogService) FindPublished(ctx context.Context, filter models.ContentFilter) ([]models.ContentItem, error) {
	query := `
		SELECT ` + contentColumns + `
		FROM content_items
		WHERE published = true`

	args := []interface{}{}
	argIndex := 1

	if len(filter.CreatorIDs) > 0 {
		query += fmt.Sprintf(" AND creator_id = ANY($%d)", argIndex)
		args = append(args, filter.CreatorIDs)
		argIndex++
	}

	if len(filter.Topics) > 0 {
		query += fmt.Sprintf(" AND hashtags && $%d", argIndex)
		args = append(args, filter.Topics)
		argIndex++
	}

	if filter.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, *filter.Since)
		argIndex++
	}

	if len(filter.Exclude) > 0 {
		query += fmt.Sprintf(" AND id != ALL($%d)", argIndex)
		args = append(args, filter.Exclude)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog query failed: %w", err)
	}
	defer rows.Close()

	return s.scanContentItems(rows)
}

func (s *ContentCatalogService) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ContentItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+contentColumns+`
		FROM content_items
		WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup by ids failed: %w", err)
	}
	defer rows.Close()

	return s.scanContentItems(rows)
}

// ActiveTopics returns hashtags with published activity since the given
// time, most active first. Used by the explore provider to find topics
// worth proposing outside the user's current interest set.
func (s *ContentCatalogService) ActiveTopics(ctx context.Context, since time.Time, limit int) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT tag, COUNT(*) AS activity
		FROM content_items, UNNEST(hashtags) AS tag
		WHERE published = true AND created_at >= $1
		GROUP BY tag
		HAVING COUNT(*) > 0
		ORDER BY activity DESC
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("active topics query failed: %w", err)
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var topic string
		var activity int64
		if err := rows.Scan(&topic, &activity); err != nil {
			return nil, fmt.Errorf("failed to scan topic row: %w", err)
		}
		topics = append(topics, topic)
	}

	return topics, rows.Err()
}

func (s *ContentCatalogService) scanContentItems(rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}) ([]models.ContentItem, error) {
	var items []models.ContentItem
	for rows.Next() {
		var item models.ContentItem
		err := rows.Scan(
			&item.ID,
			&item.CreatorID,
			&item.Title,
			&item.Hashtags,
			&item.Duration,
			&item.LikeCount,
			&item.CommentCount,
			&item.ShareCount,
			&item.ViewCount,
			&item.QualityScore,
			&item.Published,
			&item.CreatedAt,
		)
		if err != nil {
			s.logger.WithError(err).Error("Failed to scan content item")
			continue
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/reelworks/reco/pkg/models"
)

// DatabaseQuerier is the read-side database surface, satisfied by both
// *pgxpool.Pool and pgxmock.
type DatabaseQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// DatabaseExecutor adds the write side for the recommendation store.
type DatabaseExecutor interface {
	DatabaseQuerier
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// ContentCatalog is the read-only lookup into the published content catalog.
// The catalog is owned elsewhere; this subsystem never mutates it.
type ContentCatalog interface {
	FindPublished(ctx context.Context, filter models.ContentFilter) ([]models.ContentItem, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ContentItem, error)
	ActiveTopics(ctx context.Context, since time.Time, limit int) ([]string, error)
}

// FollowGraph resolves which creators a user follows.
type FollowGraph interface {
	FollowedCreators(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// ProfileBuilder derives a per-user interest profile. It must never fail the
// pipeline: implementations return an empty profile on internal errors.
type ProfileBuilder interface {
	BuildProfile(ctx context.Context, userID uuid.UUID) *models.InterestProfile
}

// ProviderRequest is the shared input for one candidate-provider fetch.
// Profile is never nil (an empty profile stands in for missing data) and
// Exclude carries content viewed inside the exclusion window.
type ProviderRequest struct {
	UserID  uuid.UUID
	Profile *models.InterestProfile
	Exclude []uuid.UUID
	Limit   int
}

// CandidateProvider is one of the five independent candidate sources. A
// provider that errors or times out contributes nothing; it never aborts
// the request.
type CandidateProvider interface {
	Source() models.RecommendationSource
	Fetch(ctx context.Context, req *ProviderRequest) ([]models.Candidate, error)
}

// RecommendationStoreInterface owns persisted RankedRecommendation rows and
// the behavioral-log appends that close the feedback loop.
type RecommendationStoreInterface interface {
	GetFreshRecommendations(ctx context.Context, userID uuid.UUID, limit int) ([]models.RankedRecommendation, error)
	Persist(ctx context.Context, userID uuid.UUID, ranked []models.RankedRecommendation) error
	RecordView(ctx context.Context, userID, contentID uuid.UUID, completionRate float64, watchDuration int) error
	MarkViewed(ctx context.Context, userID uuid.UUID, contentIDs []uuid.UUID) error
	RecentlyViewed(ctx context.Context, userID uuid.UUID, since time.Time) ([]uuid.UUID, error)
}

// BehaviorPublisher pushes behavioral-log appends onto the event bus for
// asynchronous consumers.
type BehaviorPublisher interface {
	Publish(ctx context.Context, record models.BehaviorRecord) error
}

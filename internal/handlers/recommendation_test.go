package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelworks/reco/pkg/models"
)

type stubRecommendationService struct {
	response *models.RecommendationResponse
	err      error

	gotUserID uuid.UUID
	gotOpts   models.RecommendationOptions
}

func (s *stubRecommendationService) GetRecommendations(_ context.Context, userID uuid.UUID, opts models.RecommendationOptions) (*models.RecommendationResponse, error) {
	s.gotUserID = userID
	s.gotOpts = opts
	return s.response, s.err
}

type stubStore struct {
	recordViewErr error
	markViewedErr error

	recordedContent uuid.UUID
	recordedRate    float64
	markedIDs       []uuid.UUID
}

func (s *stubStore) GetFreshRecommendations(_ context.Context, _ uuid.UUID, _ int) ([]models.RankedRecommendation, error) {
	return nil, nil
}

func (s *stubStore) Persist(_ context.Context, _ uuid.UUID, _ []models.RankedRecommendation) error {
	return nil
}

func (s *stubStore) RecordView(_ context.Context, _, contentID uuid.UUID, completionRate float64, _ int) error {
	s.recordedContent = contentID
	s.recordedRate = completionRate
	return s.recordViewErr
}

func (s *stubStore) MarkViewed(_ context.Context, _ uuid.UUID, contentIDs []uuid.UUID) error {
	s.markedIDs = contentIDs
	return s.markViewedErr
}

func (s *stubStore) RecentlyViewed(_ context.Context, _ uuid.UUID, _ time.Time) ([]uuid.UUID, error) {
	return nil, nil
}

func testRouter(handler *RecommendationHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/recommendations/:userId", handler.Get)
	router.POST("/recommendations/:userId/viewed", handler.MarkViewed)
	router.POST("/views/:userId", handler.RecordView)
	return router
}

func TestRecommendationHandler_Get(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	userID := uuid.New()

	t.Run("returns the generated response", func(t *testing.T) {
		service := &stubRecommendationService{
			response: &models.RecommendationResponse{
				UserID: userID,
				Recommendations: []models.RankedRecommendation{
					{UserID: userID, ContentID: uuid.New(), FinalScore: 95.1, Source: models.SourceFollowing},
				},
			},
		}
		router := testRouter(NewRecommendationHandler(service, &stubStore{}, logger))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/recommendations/"+userID.String(), nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var response models.RecommendationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, userID, response.UserID)
		assert.Len(t, response.Recommendations, 1)

		assert.Equal(t, userID, service.gotUserID)
		assert.Equal(t, models.DefaultRecommendationOptions(), service.gotOpts)
	})

	t.Run("empty result is 200, not an error", func(t *testing.T) {
		service := &stubRecommendationService{
			response: &models.RecommendationResponse{UserID: userID},
		}
		router := testRouter(NewRecommendationHandler(service, &stubStore{}, logger))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/recommendations/"+userID.String(), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("query parameters override the defaults", func(t *testing.T) {
		service := &stubRecommendationService{
			response: &models.RecommendationResponse{UserID: userID},
		}
		router := testRouter(NewRecommendationHandler(service, &stubStore{}, logger))

		w := httptest.NewRecorder()
		url := fmt.Sprintf("/recommendations/%s?limit=5&diversity_factor=0.7&include_trending=false", userID)
		req := httptest.NewRequest(http.MethodGet, url, nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 5, service.gotOpts.Limit)
		assert.Equal(t, 0.7, service.gotOpts.DiversityFactor)
		assert.False(t, service.gotOpts.IncludeTrending)
		assert.True(t, service.gotOpts.IncludeFollowing)
	})

	t.Run("invalid query values fall back to defaults", func(t *testing.T) {
		service := &stubRecommendationService{
			response: &models.RecommendationResponse{UserID: userID},
		}
		router := testRouter(NewRecommendationHandler(service, &stubStore{}, logger))

		w := httptest.NewRecorder()
		url := fmt.Sprintf("/recommendations/%s?limit=-3&diversity_factor=9", userID)
		req := httptest.NewRequest(http.MethodGet, url, nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 20, service.gotOpts.Limit)
		assert.Equal(t, 0.3, service.gotOpts.DiversityFactor)
	})

	t.Run("malformed user id is a 400", func(t *testing.T) {
		router := testRouter(NewRecommendationHandler(&stubRecommendationService{}, &stubStore{}, logger))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/recommendations/not-a-uuid", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_USER_ID")
	})

	t.Run("service failure is a 500", func(t *testing.T) {
		service := &stubRecommendationService{err: assert.AnError}
		router := testRouter(NewRecommendationHandler(service, &stubStore{}, logger))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/recommendations/"+userID.String(), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "RECOMMENDATION_GENERATION_FAILED")
	})
}

func TestRecommendationHandler_RecordView(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	userID := uuid.New()

	t.Run("records the view event", func(t *testing.T) {
		store := &stubStore{}
		router := testRouter(NewRecommendationHandler(&stubRecommendationService{}, store, logger))

		contentID := uuid.New()
		body, _ := json.Marshal(models.ViewEventRequest{
			ContentID:      contentID,
			CompletionRate: 0.85,
			WatchDuration:  45,
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/views/"+userID.String(), bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, contentID, store.recordedContent)
		assert.Equal(t, 0.85, store.recordedRate)
	})

	t.Run("invalid body is a 400", func(t *testing.T) {
		router := testRouter(NewRecommendationHandler(&stubRecommendationService{}, &stubStore{}, logger))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/views/"+userID.String(), bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("store failure is a 500", func(t *testing.T) {
		store := &stubStore{recordViewErr: assert.AnError}
		router := testRouter(NewRecommendationHandler(&stubRecommendationService{}, store, logger))

		body, _ := json.Marshal(models.ViewEventRequest{ContentID: uuid.New()})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/views/"+userID.String(), bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRecommendationHandler_MarkViewed(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	userID := uuid.New()

	t.Run("marks the batch", func(t *testing.T) {
		store := &stubStore{}
		router := testRouter(NewRecommendationHandler(&stubRecommendationService{}, store, logger))

		contentIDs := []uuid.UUID{uuid.New(), uuid.New()}
		body, _ := json.Marshal(models.MarkViewedRequest{ContentIDs: contentIDs})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/recommendations/"+userID.String()+"/viewed", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, contentIDs, store.markedIDs)
	})

	t.Run("store failure is a 500", func(t *testing.T) {
		store := &stubStore{markViewedErr: assert.AnError}
		router := testRouter(NewRecommendationHandler(&stubRecommendationService{}, store, logger))

		body, _ := json.Marshal(models.MarkViewedRequest{ContentIDs: []uuid.UUID{uuid.New()}})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/recommendations/"+userID.String()+"/viewed", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/internal/services"
	"github.com/reelworks/reco/pkg/models"
)

// RecommendationServiceInterface is what the handler needs from the
// pipeline; tests substitute a stub.
type RecommendationServiceInterface interface {
	GetRecommendations(ctx context.Context, userID uuid.UUID, opts models.RecommendationOptions) (*models.RecommendationResponse, error)
}

type RecommendationHandler struct {
	service   RecommendationServiceInterface
	store     services.RecommendationStoreInterface
	validator *validator.Validate
	logger    *logrus.Logger
}

func NewRecommendationHandler(
	service RecommendationServiceInterface,
	store services.RecommendationStoreInterface,
	logger *logrus.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		service:   service,
		store:     store,
		validator: validator.New(),
		logger:    logger,
	}
}

func (h *RecommendationHandler) Get(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	opts := models.DefaultRecommendationOptions()

	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			opts.Limit = limit
		}
	}

	if factorStr := c.Query("diversity_factor"); factorStr != "" {
		if factor, err := strconv.ParseFloat(factorStr, 64); err == nil && factor >= 0 && factor <= 1 {
			opts.DiversityFactor = factor
		}
	}

	opts.IncludeFollowing = boolQuery(c, "include_following", opts.IncludeFollowing)
	opts.IncludeTopic = boolQuery(c, "include_topic", opts.IncludeTopic)
	opts.IncludeTrending = boolQuery(c, "include_trending", opts.IncludeTrending)
	opts.IncludeSimilar = boolQuery(c, "include_similar", opts.IncludeSimilar)
	opts.IncludeExplore = boolQuery(c, "include_explore", opts.IncludeExplore)

	response, err := h.service.GetRecommendations(c.Request.Context(), userID, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.Status(http.StatusRequestTimeout)
			return
		}
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to generate recommendations")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "RECOMMENDATION_GENERATION_FAILED",
				"message": "Failed to generate recommendations",
			},
		})
		return
	}

	c.JSON(http.StatusOK, response)
}

// RecordView ingests one watch event: completion rate and duration close
// the loop on a surfaced recommendation and always land in the behavioral
// log, recommendation row or not.
func (h *RecommendationHandler) RecordView(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req models.ViewEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": "Invalid view event format",
			},
		})
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	if err := h.store.RecordView(c.Request.Context(), userID, req.ContentID, req.CompletionRate, req.WatchDuration); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":    userID,
			"content_id": req.ContentID,
		}).Error("Failed to record view")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "VIEW_RECORDING_FAILED",
				"message": "Failed to record view",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "View recorded"})
}

func (h *RecommendationHandler) MarkViewed(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req models.MarkViewedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": "Invalid mark-viewed format",
			},
		})
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	if err := h.store.MarkViewed(c.Request.Context(), userID, req.ContentIDs); err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to mark recommendations viewed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "MARK_VIEWED_FAILED",
				"message": "Failed to mark recommendations viewed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Recommendations marked viewed"})
}

func parseUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_USER_ID",
				"message": "Invalid user ID format",
			},
		})
		return uuid.Nil, false
	}
	return userID, true
}

func boolQuery(c *gin.Context, name string, fallback bool) bool {
	value := c.Query(name)
	if value == "" {
		return fallback
	}
	return value == "true" || value == "1"
}

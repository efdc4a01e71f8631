package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/internal/services"
)

func RateLimit(rateLimitService *services.RateLimitService, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserFromContext(c)
		if !ok {
			// Should not happen when the auth middleware runs first.
			logger.Error("Rate limit middleware called without user context")
			c.Next()
			return
		}

		if !rateLimitService.Allow(c.Request.Context(), userID.String()) {
			logger.WithField("user_id", userID).Warn("Rate limit exceeded")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "Rate limit exceeded. Please try again later.",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

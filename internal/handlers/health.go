package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/internal/database"
)

type HealthHandler struct {
	db     *database.Database
	logger *logrus.Logger
}

func NewHealthHandler(db *database.Database, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()

	status := http.StatusOK
	components := gin.H{}

	if err := h.db.PG.Ping(ctx); err != nil {
		components["postgres"] = "down"
		status = http.StatusServiceUnavailable
	} else {
		components["postgres"] = "up"
	}

	if err := h.db.Redis.Ping(ctx).Err(); err != nil {
		components["redis"] = "down"
		status = http.StatusServiceUnavailable
	} else {
		components["redis"] = "up"
	}

	c.JSON(status, gin.H{
		"status":     http.StatusText(status),
		"components": components,
		"timestamp":  time.Now().UTC(),
	})
}

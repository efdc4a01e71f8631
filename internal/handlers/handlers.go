package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/internal/database"
	"github.com/reelworks/reco/internal/services"
)

type Handlers struct {
	Recommendation *RecommendationHandler
	Health         *HealthHandler
}

func New(logger *logrus.Logger, svc *services.Services, db *database.Database) *Handlers {
	return &Handlers{
		Recommendation: NewRecommendationHandler(svc.Recommendation, svc.Store, logger),
		Health:         NewHealthHandler(db, logger),
	}
}

package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/internal/config"
	"github.com/reelworks/reco/internal/database"
	"github.com/reelworks/reco/internal/handlers"
	"github.com/reelworks/reco/internal/messaging"
	"github.com/reelworks/reco/internal/middleware"
	"github.com/reelworks/reco/internal/services"
)

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	db       *database.Database
	services *services.Services
	handlers *handlers.Handlers
	router   *gin.Engine

	consumerCancel context.CancelFunc
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	svc, err := services.New(cfg, app.logger, db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = svc

	app.handlers = handlers.New(app.logger, svc, db)

	app.setupRouter()
	app.startBehaviorConsumer()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// startBehaviorConsumer drops cached interest profiles as behavior events
// arrive, so the next recommendation request rebuilds from fresh signals
// instead of waiting out the cache TTL.
func (a *App) startBehaviorConsumer() {
	ctx, cancel := context.WithCancel(context.Background())
	a.consumerCancel = cancel

	go func() {
		err := a.services.BehaviorBus.Consume(ctx, func(event messaging.BehaviorEvent) error {
			a.services.Profile.InvalidateProfile(ctx, event.Record.UserID)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			a.logger.WithError(err).Error("Behavior consumer stopped unexpectedly")
		}
	}()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if a.consumerCancel != nil {
		a.consumerCancel()
	}

	if err := a.services.BehaviorBus.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing behavior bus")
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RequestLogger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))

	// Health check endpoint (no auth required)
	router.GET("/health", a.handlers.Health.Check)

	// Prometheus metrics endpoint (no auth required)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.Use(middleware.Auth(&a.config.Auth, a.logger))
		api.Use(middleware.RateLimit(a.services.RateLimit, a.logger))

		recommendations := api.Group("/recommendations")
		{
			recommendations.GET("/:userId", a.handlers.Recommendation.Get)
			recommendations.POST("/:userId/viewed", a.handlers.Recommendation.MarkViewed)
		}

		views := api.Group("/views")
		{
			views.POST("/:userId", a.handlers.Recommendation.RecordView)
		}
	}

	a.router = router
}

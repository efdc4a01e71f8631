package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/internal/app"
	"github.com/reelworks/reco/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Cannot load configuration")
	}

	application, err := app.New(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Cannot wire application")
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: application.Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	logrus.WithFields(logrus.Fields{
		"port": cfg.Server.Port,
		"mode": cfg.Server.Mode,
	}).Info("Recommendation server listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Server stopped unexpectedly")
		}
	case sig := <-quit:
		logrus.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("HTTP server did not drain in time")
	}
	if err := application.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("Application teardown reported errors")
	}

	logrus.Info("Server stopped")
}

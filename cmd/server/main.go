package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/alx-travel/alx-travel-app/internal/application"
	"github.com/alx-travel/alx-travel-app/internal/config"
	"github.com/alx-travel/alx-travel-app/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	c := newCLI()
	command := kingpin.MustParse(c.app.Parse(os.Args[1:]))

	cfg, err := config.Load(c.overrides())
	c.app.FatalIfError(err, "failed to load configuration")

	logger, err := logging.New(cfg.Debug)
	c.app.FatalIfError(err, "failed to initialize logger")
	defer func() {
		_ = logger.Sync()
	}()

	switch command {
	case c.check.FullCommand():
		runCheck(os.Stdout, cfg, *c.checkDeploy)
	case c.migrateUp.FullCommand():
		c.app.FatalIfError(runMigrate(os.Stdout, cfg, migrateUp, 0), "migrate up")
	case c.migrateDown.FullCommand():
		c.app.FatalIfError(runMigrate(os.Stdout, cfg, migrateDown, *c.migrateSteps), "migrate down")
	case c.migrateVersion.FullCommand():
		c.app.FatalIfError(runMigrate(os.Stdout, cfg, migrateVersion, 0), "migrate version")
	case c.token.FullCommand():
		c.app.FatalIfError(runToken(os.Stdout, cfg, *c.tokenSubject, *c.tokenTTL), "issue token")
	default:
		serve(cfg, logger)
	}
}

func serve(cfg config.Config, logger *zap.Logger) {
	logger.Info("configuration loaded", cfg.LogFields()...)
	if !cfg.Debug {
		for _, w := range config.DeployWarnings(cfg) {
			logger.Warn(w.Message, zap.String("check", w.ID))
		}
	}

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
	}()

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}

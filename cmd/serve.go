package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/TryAwesome/CVibe-sub002/internal/httpserver"
	"github.com/TryAwesome/CVibe-sub002/matching/embedding/embeddingapi"
	"github.com/TryAwesome/CVibe-sub002/matching/job/jobapi"
	"github.com/TryAwesome/CVibe-sub002/matching/match/matchapi"
	"github.com/TryAwesome/CVibe-sub002/matching/recompute/recomputeapi"
	"github.com/TryAwesome/CVibe-sub002/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logx.Info("Starting matching API server...")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	app := httpserver.New(httpserver.Options{
		AppName:   cfg.Server.AppName,
		AccessLog: true,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"db":     container.DB.Ping() == nil,
			"pool":   container.Pool.Ping(c.Context()) == nil,
			"redis":  container.Redis.Ping(c.Context()).Err() == nil,
			"search": container.Strategy.Name(),
		})
	})

	// Crawler ingestion: /api/crawler/*, catalogue: /api/jobs/*
	jobapi.RegisterRoutes(app, container.JobHandlers, container.AuthMiddleware)
	embeddingapi.RegisterRoutes(app, container.EmbeddingHandlers, container.AuthMiddleware)

	// Recompute owns /api/matches/recompute and has to win over /api/matches/:jobId
	recomputeapi.RegisterRoutes(app, container.RecomputeHandlers, container.AuthMiddleware)
	matchapi.RegisterRoutes(app, container.MatchHandlers, container.AuthMiddleware)

	errCh := make(chan error, 1)
	go func() {
		logx.Infof("Server listening on port %s", cfg.Server.Port)
		errCh <- app.Listen(":" + cfg.Server.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logx.Info("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}
	logx.Info("Server exited")
	return nil
}

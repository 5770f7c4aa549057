package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/TryAwesome/CVibe-sub002/internal/scheduler"
	"github.com/TryAwesome/CVibe-sub002/matching/recompute/worker"
	"github.com/TryAwesome/CVibe-sub002/pkg/logx"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run recompute workers, the embedding fan-out and the maintenance scheduler",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWorker(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	w := worker.NewRecomputeWorker(container.RecomputeService, container.Queue, cfg.Recompute.Workers).
		WithIntervals(cfg.Recompute.DequeueTimeout, cfg.Recompute.DelayedMoveInterval)

	sched := scheduler.New(
		scheduler.Task{
			Name:       "recompute-sweep",
			Spec:       cfg.Recompute.SweepSpec,
			RunOnStart: true,
			Run: func(ctx context.Context) error {
				resp, err := container.RecomputeService.Sweep(ctx)
				if err != nil {
					return err
				}
				logx.Infof("Sweep scanned %d users, triggered %d", resp.Scanned, resp.Triggered)
				return nil
			},
		},
		scheduler.Task{
			Name: "deactivate-stale-jobs",
			Spec: cfg.Recompute.DeactivateSpec,
			Run: func(ctx context.Context) error {
				resp, err := container.JobService.DeactivateStale(ctx, nil)
				if err != nil {
					return err
				}
				logx.Infof("Deactivated %d jobs not seen since %s", resp.Deactivated, resp.Before.Format("2006-01-02"))
				return nil
			},
		},
		scheduler.Task{
			Name: "embedding-backfill",
			Spec: cfg.Recompute.BackfillSpec,
			Run: func(ctx context.Context) error {
				_, err := container.EmbeddingService.Backfill(ctx)
				return err
			},
		},
	)

	w.Start(ctx)
	if err := sched.Start(ctx); err != nil {
		stop()
		w.Wait()
		return err
	}

	<-ctx.Done()
	logx.Info("Shutting down worker...")
	sched.Stop()
	w.Wait()
	logx.Info("Worker exited")
	return nil
}

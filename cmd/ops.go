package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/TryAwesome/CVibe-sub002/matching/search"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/TryAwesome/CVibe-sub002/pkg/logx"
	"github.com/spf13/cobra"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute <user-id>",
	Short: "Rebuild one user's matches synchronously",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, c *Container) error {
			result, err := c.RecomputeService.Run(ctx, kernel.UserID(args[0]))
			if err != nil {
				return err
			}
			return printJSON(result)
		})
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Deactivate stale jobs and queue users whose matches are out of date",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, c *Container) error {
			deactivated, err := c.JobService.DeactivateStale(ctx, nil)
			if err != nil {
				return err
			}
			swept, err := c.RecomputeService.Sweep(ctx)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"deactivated": deactivated,
				"sweep":       swept,
			})
		})
	},
}

var verifyIndexCmd = &cobra.Command{
	Use:   "verify-index <user-id>",
	Short: "Compare the ANN index against an exact scan for one user's profile vector",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, c *Container) error {
			return verifyIndex(ctx, c, kernel.UserID(args[0]))
		})
	},
}

func init() {
	rootCmd.AddCommand(recomputeCmd, sweepCmd, verifyIndexCmd)
}

// recallReport is printed by verify-index
type recallReport struct {
	UserID    kernel.UserID `json:"user_id"`
	K         int           `json:"k"`
	Exact     []search.Hit  `json:"exact"`
	Index     []search.Hit  `json:"index"`
	Misses    int           `json:"misses"`
	Tolerance int           `json:"tolerance"`
}

func verifyIndex(ctx context.Context, c *Container, userID kernel.UserID) error {
	vector, err := c.Profiles.GetProfileVector(ctx, userID)
	if err != nil {
		return err
	}

	k := c.Config.Scoring.TopK
	exact, err := c.Exact.TopK(ctx, vector, k, nil)
	if err != nil {
		return fmt.Errorf("exact scan: %w", err)
	}
	approx, err := c.Index.TopK(ctx, vector, k, nil)
	if err != nil {
		return fmt.Errorf("index query: %w", err)
	}

	report := recallReport{
		UserID:    userID,
		K:         k,
		Exact:     exact,
		Index:     approx,
		Misses:    search.RecallMisses(exact, approx),
		Tolerance: c.Config.Search.RecallTolerance,
	}
	if err := printJSON(report); err != nil {
		return err
	}
	if report.Misses > report.Tolerance {
		return fmt.Errorf("index missed %d of the exact top %d (tolerance %d)", report.Misses, k, report.Tolerance)
	}
	return nil
}

func withContainer(ctx context.Context, fn func(ctx context.Context, c *Container) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	container, err := NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	if err := fn(ctx, container); err != nil {
		logx.Errorf("Command failed: %v", err)
		return err
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

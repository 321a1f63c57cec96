package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/postvault/pkg/app"
	"github.com/yeisme/postvault/pkg/internal/jobs"
	"github.com/yeisme/postvault/pkg/internal/service"
)

var (
	olderThan time.Duration

	trashCmd = &cobra.Command{
		Use:   "trash",
		Short: "trash maintenance commands",
	}

	trashSweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "permanently delete trash entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, _ *app.Runtime) error {
				return jobs.TrashCleanup(ctx)
			})
		},
	}

	publishCmd = &cobra.Command{
		Use:   "publish",
		Short: "scheduled publishing commands",
	}

	publishDueCmd = &cobra.Command{
		Use:   "due",
		Short: "submit every scheduled post whose time has come",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, _ *app.Runtime) error {
				return jobs.PublishDue(ctx)
			})
		},
	}

	publishReconcileCmd = &cobra.Command{
		Use:   "reconcile",
		Short: "mark posts stuck in posting as failed with an unknown outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}

			return withRuntime(cmd, func(ctx context.Context, _ *app.Runtime) error {
				n, err := service.NewPublishService(ctx).ReconcileStuck(ctx, olderThan)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%d post(s) marked failed\n", n)

				return nil
			})
		},
	}
)

// registerLifecycleCommands 注册回收站与发布维护命令.
func registerLifecycleCommands() {
	publishReconcileCmd.Flags().DurationVar(&olderThan, "older-than", 15*time.Minute, "minimum time spent in posting")

	trashCmd.AddCommand(trashSweepCmd)
	publishCmd.AddCommand(publishDueCmd, publishReconcileCmd)

	rootCmd.AddCommand(trashCmd, publishCmd)
}

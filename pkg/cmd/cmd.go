// Package cmd 提供 postvault 命令行：服务启动、迁移与生命周期维护任务.
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/postvault/pkg/app"
	"github.com/yeisme/postvault/pkg/configs"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:          "postvault",
		Short:        "Content lifecycle manager: trash, autosave and scheduled publishing",
		Version:      configs.AppVersion,
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP API, scheduler and autosave coordinator",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.NewApp(configPath)
			if err != nil {
				return err
			}

			return a.Run()
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
				if err := rt.Storage.DB.Migrate(ctx); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), "migration done")

				return nil
			})
		},
	}
)

// withRuntime 初始化组件、执行 fn 并释放资源，供一次性维护命令使用.
func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *app.Runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := app.Bootstrap(ctx, configPath)
	if err != nil {
		return err
	}

	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = rt.Close(cctx)
	}()

	return fn(rt.Context(ctx), rt)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")

	rootCmd.AddCommand(serveCmd, migrateCmd)

	registerConfigsCommands()
	registerLifecycleCommands()
	registerStorageCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

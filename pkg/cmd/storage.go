package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/postvault/pkg/app"
	"github.com/yeisme/postvault/pkg/internal/storage/db"
	"github.com/yeisme/postvault/pkg/internal/storage/kv"
	"github.com/yeisme/postvault/pkg/internal/storage/mq"
)

const pingTimeout = 5 * time.Second

var (
	storageCmd = &cobra.Command{
		Use:   "storage",
		Short: "Storage backends: registered drivers and connectivity",
	}

	storageDriversCmd = &cobra.Command{
		Use:     "drivers",
		Aliases: []string{"ls"},
		Short:   "List the db, kv and mq drivers compiled into this binary",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()

			printList(w, "db", db.GetRegisteredDBTypes())
			printList(w, "kv", kv.GetRegisteredKVTypes())
			printList(w, "mq", mq.GetRegisteredMQTypes())
		},
	}

	storagePingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Connect to every configured backend and report its health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
				return pingAll(ctx, cmd.OutOrStdout(), rt)
			})
		},
	}
)

func printList[T ~string](w io.Writer, kind string, names []T) {
	fmt.Fprintf(w, "%s:\n", kind)

	for _, n := range names {
		fmt.Fprintf(w, " - %s\n", n)
	}
}

// pingAll 逐个探测已启用的后端，全部结束后汇总错误.
func pingAll(ctx context.Context, w io.Writer, rt *app.Runtime) error {
	var errs []error

	for _, p := range rt.Storage.Probes() {
		if !p.Enabled {
			fmt.Fprintf(w, "%-3s disabled\n", p.Name)
			continue
		}

		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := p.Check(pctx)

		cancel()

		if err != nil {
			fmt.Fprintf(w, "%-3s error: %v\n", p.Name, err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))

			continue
		}

		fmt.Fprintf(w, "%-3s ok\n", p.Name)
	}

	return errors.Join(errs...)
}

// registerStorageCommands 注册存储相关命令.
func registerStorageCommands() {
	rootCmd.AddCommand(storageCmd)
	storageCmd.AddCommand(storageDriversCmd, storagePingCmd)
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/clipvault/pkg/configs"
	"github.com/yeisme/clipvault/pkg/internal/storage/db"
	"github.com/yeisme/clipvault/pkg/internal/store"
)

var (
	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "Database related commands",
	}

	dbListCmd = &cobra.Command{
		Use:   "ls",
		Short: "list all registered database types",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered database types:")
			for _, dbType := range db.GetRegisteredDBTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), " - "+dbType)
			}
		},
	}

	dbVerifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "compare the search index with the item table without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				report, err := st.VerifyIndex(ctx)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "items=%d entries=%d missing=%d orphans=%d stale=%d\n",
					report.Items, report.Entries, report.Missing, report.Orphans, report.Stale)

				if !report.OK() {
					return fmt.Errorf("search index is inconsistent, run `%s db reindex`", configs.AppName)
				}

				return nil
			})
		},
	}

	dbReindexCmd = &cobra.Command{
		Use:   "reindex",
		Short: "rebuild the search index from the item table (stop the server first when using sqlite)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
				if err := st.RebuildIndex(ctx); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), "search index rebuilt")

				return nil
			})
		},
	}
)

// withStore 打开存储执行 fn，不做启动校验，也不应用保留策略.
func withStore(ctx context.Context, fn func(context.Context, *store.Store) error) error {
	cfg := configs.GetConfig()

	client, err := db.New(ctx, &cfg.DB)
	if err != nil {
		return err
	}
	defer client.Close()

	opts := store.OptionsFromConfig(&cfg.Store)
	opts.VerifyOnStart = false
	opts.MaxItems = 0

	st, err := store.Open(ctx, client.DB, opts)
	if err != nil {
		return err
	}

	return fn(ctx, st)
}

// registerDBCommands 注册数据库相关命令.
func registerDBCommands() {
	rootCmd.AddCommand(dbCmd)

	dbCmd.AddCommand(dbListCmd, dbVerifyCmd, dbReindexCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/clipvault/pkg/cache"
	"github.com/yeisme/clipvault/pkg/configs"
	kv "github.com/yeisme/clipvault/pkg/internal/storage/kv"
)

var (
	kvCmd = &cobra.Command{
		Use:     "kv",
		Short:   "query cache (key-value store) commands",
		Aliases: []string{"keyvalue", "cache"},
	}

	kvListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered kv types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered kv types:")
			for _, t := range kv.GetRegisteredKVTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}

	kvKeysCmd = &cobra.Command{
		Use:   "keys [pattern]",
		Short: "list cached query keys matching pattern (path.Match syntax, default *)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openKV(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			keys, err := client.Keys(cmd.Context(), patternArg(args))
			if err != nil {
				return err
			}

			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}

			return nil
		},
	}

	kvClearCmd = &cobra.Command{
		Use:   "clear [pattern]",
		Short: "drop cached query results matching pattern, e.g. 'history:*'",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openKV(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := cache.NewCache(client).Clear(cmd.Context(), patternArg(args)); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "cleared", patternArg(args))

			return nil
		},
	}
)

func openKV(cmd *cobra.Command) (*kv.Client, error) {
	cfg := configs.GetConfig()
	if cfg.KV.Type == string(kv.KVTypeMemory) || cfg.KV.Type == string(kv.KVTypeGroupcache) {
		return nil, fmt.Errorf("kv type %q lives inside the server process", cfg.KV.Type)
	}

	return kv.NewKVClient(cmd.Context(), &cfg.KV)
}

func patternArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}

	return "*"
}

// registerKVCommands 注册 KV 相关命令.
func registerKVCommands() {
	rootCmd.AddCommand(kvCmd)
	kvCmd.AddCommand(kvListCmd, kvKeysCmd, kvClearCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/clipvault/pkg/configs"
	"github.com/yeisme/clipvault/pkg/internal/hub"
	relay "github.com/yeisme/clipvault/pkg/internal/mq"
	"github.com/yeisme/clipvault/pkg/internal/storage/mq"
	"github.com/yeisme/clipvault/pkg/internal/types"
	"github.com/yeisme/clipvault/pkg/queue"
)

var (
	mqCmd = &cobra.Command{
		Use:     "mq",
		Short:   "message queue commands (ingestion and event relay)",
		Aliases: []string{"messagequeue"},
	}

	mqListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered mq types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered mq types:")
			for _, t := range mq.GetRegisteredMQTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}

	mqTopicsCmd = &cobra.Command{
		Use:   "topics",
		Short: "print the topics the service consumes and relays to under the current config",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := configs.GetConfig()
			out := cmd.OutOrStdout()
			r := relay.NewRelay(nil, hub.New(hub.Options{}), cfg.Events, cfg.CircuitBreaker)

			fmt.Fprintf(out, "ingest  %s (enabled=%t)\n", cfg.Ingest.MQ.Topic, cfg.Ingest.MQ.Enabled)

			for _, event := range []string{
				types.EventNewItem, types.EventItemTouched, types.EventItemUpdated,
				types.EventItemDeleted, types.EventTagsChanged,
			} {
				fmt.Fprintf(out, "relay   %s (enabled=%t)\n", queue.EventTopic(cfg.Events.TopicPrefix, event), r.Enabled(event))
			}
		},
	}
)

// registerMQCommands 注册 MQ 相关命令.
func registerMQCommands() {
	rootCmd.AddCommand(mqCmd)
	mqCmd.AddCommand(mqListCmd, mqTopicsCmd)
}

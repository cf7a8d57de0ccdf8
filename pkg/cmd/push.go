package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/clipvault/pkg/configs"
	"github.com/yeisme/clipvault/pkg/internal/ingest"
	"github.com/yeisme/clipvault/pkg/internal/storage/mq"
	"github.com/yeisme/clipvault/pkg/internal/types"
	"github.com/yeisme/clipvault/pkg/queue"
)

var (
	pushType       string
	pushFormatType string
	pushFormatted  string
	pushVia        string

	// push 子命令：把一条内容交给正在运行的服务.
	pushCmd = &cobra.Command{
		Use:   "push [content]",
		Short: "push one clipboard entry to a running service (reads stdin when no content is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := pushContent(cmd, args)
			if err != nil {
				return err
			}

			ev := types.Event{
				Type:             pushType,
				Content:          content,
				FormattedContent: pushFormatted,
				FormatType:       pushFormatType,
			}

			cfg := configs.GetConfig()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Ingest.SubmitTimeout)
			defer cancel()

			switch pushVia {
			case "socket":
				return pushSocket(ctx, cmd, cfg, ev)
			case "http":
				return pushHTTP(ctx, cmd, cfg, ev)
			case "mq":
				return pushMQ(ctx, cmd, cfg, ev)
			default:
				return fmt.Errorf("unknown transport %q (socket, http or mq)", pushVia)
			}
		},
	}
)

func pushContent(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	if cmd.InOrStdin() == os.Stdin && stdinIsTerminal() {
		return "", fmt.Errorf("no content given and stdin is a terminal")
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}

	return strings.TrimSuffix(string(data), "\n"), nil
}

func pushSocket(ctx context.Context, cmd *cobra.Command, cfg *configs.AppConfig, ev types.Event) error {
	reply, err := ingest.Push(ctx, cfg.Ingest.Socket.Network, cfg.Ingest.Socket.Address, ev)
	if err != nil {
		return err
	}

	if !reply.OK {
		return fmt.Errorf("rejected: %s", reply.Error)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "id=%d new=%t\n", reply.ID, reply.WasNew)

	return nil
}

func pushHTTP(ctx context.Context, cmd *cobra.Command, cfg *configs.AppConfig, ev types.Event) error {
	body, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}

	url := "http://" + cfg.Server.Addr() + "/api/v1/ingest"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var res types.IngestResponse
	if err := sonic.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "id=%d new=%t\n", res.ID, res.WasNew)

	return nil
}

// pushMQ 发布采集请求，只确认消息已发出，不等待写入结果.
func pushMQ(ctx context.Context, cmd *cobra.Command, cfg *configs.AppConfig, ev types.Event) error {
	if cfg.MQ.Type == configs.MQTypeMemory {
		return fmt.Errorf("mq type %q is in-process only, use socket or http", cfg.MQ.Type)
	}

	client, err := mq.New(ctx, &cfg.MQ)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := queue.PublishIngest(client.Publisher(), cfg.Ingest.MQ.Topic, ev); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "published to", cfg.Ingest.MQ.Topic)

	return nil
}

// registerPushCommands 注册 push 命令.
func registerPushCommands() {
	pushCmd.Flags().StringVarP(&pushType, "type", "t", "text", "entry type: text, file, image/screenshot, image/web, image/generic")
	pushCmd.Flags().StringVar(&pushFormatType, "format-type", "", "rich text format of --formatted: html or rtf")
	pushCmd.Flags().StringVar(&pushFormatted, "formatted", "", "rich text representation of the content")
	pushCmd.Flags().StringVar(&pushVia, "via", "socket", "transport: socket, http or mq")

	rootCmd.AddCommand(pushCmd)
}

// stdinIsTerminal 标准输入是否为终端.
func stdinIsTerminal() bool {
	fi, err := os.Stdin.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

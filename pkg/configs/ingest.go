package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultIngestQueueSize       = 256              // 写入任务队列长度
	DefaultIngestSubmitTimeout   = 10 * time.Second // 生产者等待写入结果的超时
	DefaultIngestMaxPayloadBytes = 32 << 20         // 单个采集信封的最大字节数
	DefaultIngestSocketNetwork   = "unix"
	DefaultIngestSocketAddress   = "/tmp/clipvault.sock"
	DefaultIngestMQTopic         = "clip.ingest.requested"
)

// IngestConfig 采集网关配置.
type IngestConfig struct {
	QueueSize       int              `mapstructure:"queue_size"        rule:"min=1"`
	SubmitTimeout   time.Duration    `mapstructure:"submit_timeout"`
	MaxPayloadBytes int64            `mapstructure:"max_payload_bytes" rule:"min=1024"`
	Socket          IngestSocketConf `mapstructure:"socket"`
	MQ              IngestMQConf     `mapstructure:"mq"`
}

// IngestSocketConf 本地 socket 采集通道，每个连接发送一个 JSON 信封.
type IngestSocketConf struct {
	Enabled bool   `mapstructure:"enabled"`
	Network string `mapstructure:"network" rule:"oneof=unix tcp"`
	Address string `mapstructure:"address" rule:"required"`
}

// IngestMQConf 消息队列采集通道.
type IngestMQConf struct {
	Enabled bool   `mapstructure:"enabled"`
	Topic   string `mapstructure:"topic"   rule:"required"`
}

func (c *IngestConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("ingest.queue_size", DefaultIngestQueueSize)
	v.SetDefault("ingest.submit_timeout", DefaultIngestSubmitTimeout)
	v.SetDefault("ingest.max_payload_bytes", DefaultIngestMaxPayloadBytes)

	v.SetDefault("ingest.socket.enabled", true)
	v.SetDefault("ingest.socket.network", DefaultIngestSocketNetwork)
	v.SetDefault("ingest.socket.address", DefaultIngestSocketAddress)

	v.SetDefault("ingest.mq.enabled", false)
	v.SetDefault("ingest.mq.topic", DefaultIngestMQTopic)
}

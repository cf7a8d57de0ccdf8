package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultHubBufferSize  = 64              // 每个订阅者的待投递队列长度
	DefaultHubSendTimeout = 5 * time.Second // 单条消息投递截止时间，超时剔除订阅者
)

// HubConfig 广播中心配置.
type HubConfig struct {
	BufferSize  int           `mapstructure:"buffer_size"  rule:"min=1"`
	SendTimeout time.Duration `mapstructure:"send_timeout" rule:"min=1ms"`
}

func (c *HubConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("hub.buffer_size", DefaultHubBufferSize)
	v.SetDefault("hub.send_timeout", DefaultHubSendTimeout)
}

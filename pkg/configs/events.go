package configs

import "github.com/spf13/viper"

// EventsConfig 控制广播事件转发到消息队列的开关（全局与分事件）。
type EventsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`      // 总开关
	TopicPrefix string `mapstructure:"topic_prefix"` // 主题前缀，实际主题为 <prefix><event>
	// Buffer 转发器订阅广播中心时使用的缓冲，转发器过慢时会被广播中心剔除
	Buffer int              `mapstructure:"buffer" rule:"min=1"`
	Item   ItemEventsConfig `mapstructure:"item"`
	Tags   TagsEventsConfig `mapstructure:"tags"`
}

// ItemEventsConfig 剪贴板条目相关事件开关。
type ItemEventsConfig struct {
	New     bool `mapstructure:"new"`
	Touched bool `mapstructure:"touched"`
	Updated bool `mapstructure:"updated"`
	Deleted bool `mapstructure:"deleted"`
}

// TagsEventsConfig 标签相关事件开关。
type TagsEventsConfig struct {
	Changed bool `mapstructure:"changed"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认关闭，仅在部署了外部消费者时开启
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.topic_prefix", "clip.events.")
	v.SetDefault("events.buffer", 1024)

	v.SetDefault("events.item.new", true)
	v.SetDefault("events.item.deleted", true)
	v.SetDefault("events.item.updated", true)
	// touched 在频繁复制同一内容时量很大，默认关闭
	v.SetDefault("events.item.touched", false)
	v.SetDefault("events.tags.changed", true)
}

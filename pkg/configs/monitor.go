package configs

import "github.com/spf13/viper"

// MonitorConfig 系统剪贴板监听配置，无图形环境的服务器上应保持关闭.
type MonitorConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Text / Image 分别控制是否监听文本与图片格式
	Text  bool `mapstructure:"text"`
	Image bool `mapstructure:"image"`
}

func (c *MonitorConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("monitor.enabled", false)
	v.SetDefault("monitor.text", true)
	v.SetDefault("monitor.image", true)
}

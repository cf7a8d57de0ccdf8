package configs

import (
	"time"

	"github.com/spf13/viper"
)

// CacheConfig 查询结果缓存配置，缓存键包含存储写入代数，写入后旧结果自动失效.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

func (c *CacheConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "30s")
}

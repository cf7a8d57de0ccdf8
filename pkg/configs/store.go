package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultStoreMaxItems        = 1000        // 默认最多保留的条目数，0 表示不限制
	DefaultStoreHashSampleBytes = 64 * 1024   // 超过该大小的内容按首尾采样计算哈希
	DefaultStoreBlobThreshold   = 1024 * 1024 // 超过该大小且启用 S3 时内容转存到对象存储
	DefaultStorePageSize        = 50          // get_history 默认每页条数
	DefaultStoreMaxPageSize     = 500         // get_history 最大每页条数
	DefaultStoreSearchLimit     = 200         // 单次搜索最多返回条数
	DefaultStoreVerifyOnStart   = true        // 启动时校验搜索索引
	DefaultStoreSystemTag       = "favorites" // 默认系统标签
)

// StoreConfig 剪贴板内容存储配置.
type StoreConfig struct {
	MaxItems        int      `mapstructure:"max_items"         rule:"min=0"`
	HashSampleBytes int      `mapstructure:"hash_sample_bytes" rule:"min=1024"`
	BlobThreshold   int      `mapstructure:"blob_threshold"    rule:"min=0"`
	PageSize        int      `mapstructure:"page_size"         rule:"min=1"`
	MaxPageSize     int      `mapstructure:"max_page_size"     rule:"min=1"`
	SearchLimit     int      `mapstructure:"search_limit"      rule:"min=1"`
	VerifyOnStart   bool     `mapstructure:"verify_on_start"`
	SystemTags      []string `mapstructure:"system_tags"`
}

// setDefaults 设置存储配置的默认值.
func (c *StoreConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("store.max_items", DefaultStoreMaxItems)
	v.SetDefault("store.hash_sample_bytes", DefaultStoreHashSampleBytes)
	v.SetDefault("store.blob_threshold", DefaultStoreBlobThreshold)
	v.SetDefault("store.page_size", DefaultStorePageSize)
	v.SetDefault("store.max_page_size", DefaultStoreMaxPageSize)
	v.SetDefault("store.search_limit", DefaultStoreSearchLimit)
	v.SetDefault("store.verify_on_start", DefaultStoreVerifyOnStart)
	v.SetDefault("store.system_tags", []string{DefaultStoreSystemTag})
}

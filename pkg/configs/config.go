// Package configs 管理应用程序配置，包括数据库、KV、消息队列、剪贴板存储与广播等配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing Store config:
//
//	storeConfig := configs.GetConfig().Store
//	fmt.Println("max items:", storeConfig.MaxItems)
//
// Example reacting to hot reload:
//
//	configs.OnReload(func(c *configs.AppConfig) {
//		fmt.Println("new max items:", c.Store.MaxItems)
//	})
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/yeisme/clipvault/pkg/rule"
)

const (
	// AppName 应用名称，同时用作环境变量前缀.
	AppName = "clipvault"
	// AppVersion 应用版本.
	AppVersion = "0.1.0"
)

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		DB             DBConfig             `mapstructure:"db"`              // DBConfig 数据库配置
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 键值存储配置
		S3             S3Config             `mapstructure:"s3"`              // S3Config 大对象存储配置
		MQ             MQConfig             `mapstructure:"mq"`              // MQConfig 消息队列配置
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 服务器端口、调试模式等
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		Events         EventsConfig         `mapstructure:"events"`          // EventsConfig 广播事件转发到 MQ 的开关
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig HTTP 限流
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig 熔断
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 指标
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 链路追踪
		Store          StoreConfig          `mapstructure:"store"`           // StoreConfig 剪贴板内容存储
		Hub            HubConfig            `mapstructure:"hub"`             // HubConfig 广播中心
		Ingest         IngestConfig         `mapstructure:"ingest"`          // IngestConfig 采集网关
		Monitor        MonitorConfig        `mapstructure:"monitor"`         // MonitorConfig 系统剪贴板监听
		Jobs           JobsConfig           `mapstructure:"jobs"`            // JobsConfig 定时任务
		Cache          CacheConfig          `mapstructure:"cache"`           // CacheConfig 查询结果缓存
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper

	hooksMu     sync.Mutex
	reloadHooks []func(*AppConfig)
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// 找不到配置文件时使用默认值与环境变量.
func InitConfig(path string) error {
	if path == "" {
		path = "."
	}

	appViper = viper.New()
	// 设置默认值
	setAllDefaults(appViper)

	// 检查path是否是文件
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		// 是文件，使用SetConfigFile，Viper会自动检测类型
		appViper.SetConfigFile(path)
	} else {
		// 是目录，设置配置名和路径
		appViper.SetConfigName("config")
		appViper.AddConfigPath(path)
		appViper.AddConfigPath(filepath.Join(path, "configs"))

		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, ext := range exts {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				appViper.SetConfigFile(cfg)

				break
			}
		}
	}

	appViper.SetEnvPrefix(strings.ToUpper(AppName))
	appViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	appViper.AutomaticEnv()

	// 读取配置
	if err := appViper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 解析到全局配置
	if err := appViper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := rule.ValidateStruct(&globalConfig); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if appViper.ConfigFileUsed() != "" {
		reloadConfigs(appViper, globalConfig.Server.ReloadConfig)
	}

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var cfg AppConfig

	cfg.Server.setDefaults(v)
	cfg.DB.setDefaults(v)
	cfg.KV.setDefaults(v)
	cfg.S3.setDefaults(v)
	cfg.MQ.setDefaults(v)
	cfg.Log.setDefaults(v)
	cfg.Events.setDefaults(v)
	cfg.RateLimit.setDefaults(v)
	cfg.CircuitBreaker.setDefaults(v)
	cfg.Metrics.setDefaults(v)
	cfg.Tracing.setDefaults(v)
	cfg.Store.setDefaults(v)
	cfg.Hub.setDefaults(v)
	cfg.Ingest.setDefaults(v)
	cfg.Monitor.setDefaults(v)
	cfg.Jobs.setDefaults(v)
	cfg.Cache.setDefaults(v)
}

// Defaults 返回仅包含默认值的配置，不读取文件和环境变量.
func Defaults() AppConfig {
	v := viper.New()
	setAllDefaults(v)

	var cfg AppConfig
	_ = v.Unmarshal(&cfg)

	return cfg
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Fprintln(os.Stderr, "Config file changed:", e.Name)

		if err := v.Unmarshal(&globalConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Error reloading config: %v\n", err)
			return
		}

		hooksMu.Lock()
		hooks := append([]func(*AppConfig){}, reloadHooks...)
		hooksMu.Unlock()

		for _, fn := range hooks {
			fn(&globalConfig)
		}
	})
	v.WatchConfig()
}

// OnReload 注册配置热重载回调，回调在配置文件变更并成功解析后执行.
func OnReload(fn func(*AppConfig)) {
	hooksMu.Lock()
	defer hooksMu.Unlock()

	reloadHooks = append(reloadHooks, fn)
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

// GetViper 返回全局 Viper 实例，未初始化时为 nil.
func GetViper() *viper.Viper {
	return appViper
}

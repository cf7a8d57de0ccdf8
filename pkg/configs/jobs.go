package configs

import "github.com/spf13/viper"

const (
	DefaultJobsRetentionCron   = "*/10 * * * *" // 每 10 分钟执行一次保留策略兜底
	DefaultJobsIndexVerifyCron = "17 * * * *"   // 每小时校验搜索索引
	DefaultJobsPastePruneCron  = "30 3 * * *"   // 每天 03:30 清理粘贴记录
	DefaultJobsPasteRetainDays = 30             // 粘贴记录保留天数
)

// JobsConfig 定时任务配置.
type JobsConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	RetentionCron   string `mapstructure:"retention_cron"`
	IndexVerifyCron string `mapstructure:"index_verify_cron"`
	PastePruneCron  string `mapstructure:"paste_prune_cron"`
	PasteRetainDays int    `mapstructure:"paste_retain_days" rule:"min=1"`
}

func (c *JobsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.retention_cron", DefaultJobsRetentionCron)
	v.SetDefault("jobs.index_verify_cron", DefaultJobsIndexVerifyCron)
	v.SetDefault("jobs.paste_prune_cron", DefaultJobsPastePruneCron)
	v.SetDefault("jobs.paste_retain_days", DefaultJobsPasteRetainDays)
}

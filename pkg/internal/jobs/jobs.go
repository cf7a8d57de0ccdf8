// Package jobs 负责注册与实现剪贴板存储的定时维护任务（基于 scheduler）.
//
// 所有修改存储的任务都经由写入网关执行，与采集写入共享同一个写入队列.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yeisme/clipvault/pkg/configs"
	"github.com/yeisme/clipvault/pkg/internal/hub"
	"github.com/yeisme/clipvault/pkg/internal/ingest"
	"github.com/yeisme/clipvault/pkg/internal/store"
	"github.com/yeisme/clipvault/pkg/internal/types"
	"github.com/yeisme/clipvault/pkg/log"
	"github.com/yeisme/clipvault/pkg/scheduler"
)

// Runner 执行维护任务.
type Runner struct {
	gw        *ingest.Gateway
	st        *store.Store
	retainFor time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewRunner 创建任务执行器，pasteRetainDays 为粘贴记录保留天数.
func NewRunner(gw *ingest.Gateway, pasteRetainDays int) *Runner {
	if pasteRetainDays <= 0 {
		pasteRetainDays = configs.DefaultJobsPasteRetainDays
	}

	return &Runner{
		gw:        gw,
		st:        gw.Store(),
		retainFor: time.Duration(pasteRetainDays) * 24 * time.Hour,
		now:       time.Now,
		log:       log.Component("jobs"),
	}
}

// WithClock 替换时钟，仅用于测试.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// RegisterCronJobs 按配置注册维护任务：
//   - 保留策略兜底裁剪（配置热重载调低 max_items 后生效）
//   - 搜索索引校验与自愈
//   - 过期粘贴记录清理
func RegisterCronJobs(ctx context.Context, sched *scheduler.Scheduler, r *Runner, cfg configs.JobsConfig) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	jobs := []struct {
		name string
		cron string
		fn   scheduler.JobFunc
	}{
		{JobRetentionSweep, cfg.RetentionCron, r.RetentionSweep},
		{JobIndexVerify, cfg.IndexVerifyCron, r.VerifyIndex},
		{JobPastePrune, cfg.PastePruneCron, r.PrunePastes},
	}

	for _, j := range jobs {
		if j.cron == "" {
			continue
		}

		if err := sched.AddCron(ctx, j.name, j.cron, j.fn); err != nil {
			return err
		}
	}

	return nil
}

// RetentionSweep 将条目数裁剪到当前上限，并为每个被删除的条目广播 item_deleted.
func (r *Runner) RetentionSweep(ctx context.Context) error {
	var trimmed int

	err := r.gw.Exec(ctx, func(ctx context.Context) ([]hub.Notification, error) {
		items, err := r.st.ApplyRetention(ctx)
		if err != nil {
			return nil, err
		}

		trimmed = len(items)

		notes := make([]hub.Notification, 0, len(items))
		for i := range items {
			notes = append(notes, types.DeletedEnvelope(items[i].ID))
		}

		return notes, nil
	})
	if err != nil {
		return fmt.Errorf("retention sweep: %w", err)
	}

	if trimmed > 0 {
		r.log.Info().Int("trimmed", trimmed).Int("max_items", r.st.MaxItems()).Msg("retention sweep trimmed items")
	}

	return nil
}

// VerifyIndex 校验搜索索引，不一致时从条目表重建.
func (r *Runner) VerifyIndex(ctx context.Context) error {
	var report store.IndexReport

	err := r.gw.Exec(ctx, func(ctx context.Context) ([]hub.Notification, error) {
		var err error

		report, err = r.st.HealIndex(ctx)

		return nil, err
	})
	if err != nil {
		return fmt.Errorf("verify index: %w", err)
	}

	r.log.Debug().Int64("items", report.Items).Int64("entries", report.Entries).Msg("search index verified")

	return nil
}

// PrunePastes 删除超过保留期的粘贴记录.
func (r *Runner) PrunePastes(ctx context.Context) error {
	before := r.now().Add(-r.retainFor)

	var n int64

	err := r.gw.Exec(ctx, func(ctx context.Context) ([]hub.Notification, error) {
		var err error

		n, err = r.st.PrunePastes(ctx, before)

		return nil, err
	})
	if err != nil {
		return fmt.Errorf("prune pastes: %w", err)
	}

	if n > 0 {
		r.log.Info().Int64("deleted", n).Time("before", before).Msg("pruned paste events")
	}

	return nil
}

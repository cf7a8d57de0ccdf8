// Package storage 聚合剪贴板服务用到的存储资源：数据库、KV、消息队列与可选的 S3 大对象存储.
//
// Example:
//
//	mgr, err := storage.Init(ctx, configs.GetConfig())
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
//	dbClient := mgr.GetDBClient()
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yeisme/clipvault/pkg/configs"
	dbc "github.com/yeisme/clipvault/pkg/internal/storage/db"
	kvc "github.com/yeisme/clipvault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/clipvault/pkg/internal/storage/mq"
	s3c "github.com/yeisme/clipvault/pkg/internal/storage/s3"
	clog "github.com/yeisme/clipvault/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	DB *dbc.Client
	KV *kvc.Client
	MQ *mqc.Client
	S3 *s3c.Client // 未启用时为 nil
}

// Option 配置 Manager 初始化.
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
}

// WithRegisterer 为消息队列注册 Prometheus 指标，数据库连接池指标由 db 包按配置注册.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// Init 按配置初始化全部存储，任一资源失败时关闭已打开的资源并返回错误.
func Init(ctx context.Context, cfg *configs.AppConfig, opts ...Option) (m *Manager, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	m = &Manager{}

	defer func() {
		if err != nil {
			_ = m.Close()
			m = nil
		}
	}()

	if m.DB, err = dbc.New(ctx, &cfg.DB); err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	if m.KV, err = kvc.NewKVClient(ctx, &cfg.KV); err != nil {
		return nil, fmt.Errorf("init kv: %w", err)
	}

	var mqOpts []mqc.Option
	if o.registerer != nil {
		mqOpts = append(mqOpts, mqc.WithMetrics(o.registerer, cfg.Metrics.Namespace))
	}

	if m.MQ, err = mqc.New(ctx, &cfg.MQ, mqOpts...); err != nil {
		return nil, fmt.Errorf("init mq: %w", err)
	}

	if cfg.S3.Enabled {
		if m.S3, err = s3c.New(ctx, &cfg.S3); err != nil {
			return nil, fmt.Errorf("init s3: %w", err)
		}
	}

	clog.Logger().Info().
		Str("db", string(cfg.DB.Type)).
		Str("kv", cfg.KV.Type).
		Str("mq", string(cfg.MQ.Type)).
		Bool("s3", m.S3 != nil).
		Msg("storage manager initialized")

	return m, nil
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// GetS3Client 获取 S3 客户端，未启用时返回 nil.
func (m *Manager) GetS3Client() *s3c.Client {
	return m.S3
}

// Close 按与打开相反的顺序关闭资源.
func (m *Manager) Close() error {
	var errs []error

	if m.S3 != nil {
		errs = append(errs, m.S3.Close())
	}

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}

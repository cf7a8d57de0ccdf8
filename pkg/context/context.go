// Package context 拓展上下文功能，将存储资源、剪贴板服务组件与任务调度器集成到上下文中，方便 HTTP 处理器获取.
package context

import (
	"context"

	"github.com/yeisme/clipvault/pkg/internal/hub"
	"github.com/yeisme/clipvault/pkg/internal/ingest"
	"github.com/yeisme/clipvault/pkg/internal/service"
	"github.com/yeisme/clipvault/pkg/internal/storage"
	dbc "github.com/yeisme/clipvault/pkg/internal/storage/db"
	kvc "github.com/yeisme/clipvault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/clipvault/pkg/internal/storage/mq"
	s3c "github.com/yeisme/clipvault/pkg/internal/storage/s3"
	"github.com/yeisme/clipvault/pkg/scheduler"
)

type ContextKey string

const (
	StorageManagerKey ContextKey = "storageManager"
	RuntimeKey        ContextKey = "runtime"
)

// Runtime 服务运行期组件.
type Runtime struct {
	Service   *service.ClipService
	Gateway   *ingest.Gateway
	Hub       *hub.Hub
	Scheduler *scheduler.Scheduler
}

// WithStorageManager 将 Manager 存储到 context 中.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, StorageManagerKey, mgr)
}

// GetManager 从 context 中获取 Manager.
func GetManager(ctx context.Context) *storage.Manager {
	if mgr, ok := ctx.Value(StorageManagerKey).(*storage.Manager); ok {
		return mgr
	}

	return nil
}

// GetS3Client 从 context 中获取 S3 客户端.
func GetS3Client(ctx context.Context) *s3c.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetS3Client()
	}

	return nil
}

// GetDBClient 从 context 中获取 DB 客户端.
func GetDBClient(ctx context.Context) *dbc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetDBClient()
	}

	return nil
}

// GetMQClient 从 context 中获取 MQ 客户端.
func GetMQClient(ctx context.Context) *mqc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetMQClient()
	}

	return nil
}

// GetKVClient 从 context 中获取 KV 客户端.
func GetKVClient(ctx context.Context) *kvc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetKVClient()
	}

	return nil
}

// WithRuntime 将运行期组件存储到 context 中.
func WithRuntime(ctx context.Context, rt *Runtime) context.Context {
	return context.WithValue(ctx, RuntimeKey, rt)
}

// GetRuntime 从 context 中获取运行期组件.
func GetRuntime(ctx context.Context) *Runtime {
	if rt, ok := ctx.Value(RuntimeKey).(*Runtime); ok {
		return rt
	}

	return nil
}

// GetClipService 从 context 中获取剪贴板服务.
func GetClipService(ctx context.Context) *service.ClipService {
	if rt := GetRuntime(ctx); rt != nil {
		return rt.Service
	}

	return nil
}

// GetGateway 从 context 中获取写入网关.
func GetGateway(ctx context.Context) *ingest.Gateway {
	if rt := GetRuntime(ctx); rt != nil {
		return rt.Gateway
	}

	return nil
}

// GetHub 从 context 中获取广播中心.
func GetHub(ctx context.Context) *hub.Hub {
	if rt := GetRuntime(ctx); rt != nil {
		return rt.Hub
	}

	return nil
}

// GetScheduler 从 context 中获取维护任务调度器.
func GetScheduler(ctx context.Context) *scheduler.Scheduler {
	if rt := GetRuntime(ctx); rt != nil {
		return rt.Scheduler
	}

	return nil
}

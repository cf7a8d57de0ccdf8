// Package app 提供应用程序的初始化和配置功能.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/clipvault/pkg/api"
	"github.com/yeisme/clipvault/pkg/cache"
	"github.com/yeisme/clipvault/pkg/configs"
	ctxPkg "github.com/yeisme/clipvault/pkg/context"
	"github.com/yeisme/clipvault/pkg/internal/classify"
	"github.com/yeisme/clipvault/pkg/internal/hub"
	"github.com/yeisme/clipvault/pkg/internal/ingest"
	"github.com/yeisme/clipvault/pkg/internal/jobs"
	"github.com/yeisme/clipvault/pkg/internal/mq"
	"github.com/yeisme/clipvault/pkg/internal/router"
	"github.com/yeisme/clipvault/pkg/internal/service"
	"github.com/yeisme/clipvault/pkg/internal/storage"
	"github.com/yeisme/clipvault/pkg/internal/store"
	"github.com/yeisme/clipvault/pkg/log"
	"github.com/yeisme/clipvault/pkg/metrics"
	"github.com/yeisme/clipvault/pkg/middleware"
	"github.com/yeisme/clipvault/pkg/scheduler"
	"github.com/yeisme/clipvault/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

// App 组装后的剪贴板服务.
type App struct {
	Engine *gin.Engine

	config    *configs.AppConfig
	manager   *storage.Manager
	store     *store.Store
	hub       *hub.Hub
	gateway   *ingest.Gateway
	service   *service.ClipService
	scheduler *scheduler.Scheduler
	runner    *jobs.Runner
	log       zerolog.Logger
}

// NewApp 按已加载的全局配置初始化全部组件，失败时释放已打开的资源.
func NewApp(ctx context.Context) (a *App, err error) {
	config := configs.GetConfig()
	a = &App{config: config, log: log.Component("app")}

	defer func() {
		if err != nil {
			a.close()
			a = nil
		}
	}()

	// 初始化追踪
	if err = tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// 初始化监控
	if err = metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	var storageOpts []storage.Option
	if config.Metrics.Enabled {
		storageOpts = append(storageOpts, storage.WithRegisterer(metrics.GetRegistry()))
	}

	if a.manager, err = storage.Init(ctx, config, storageOpts...); err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	storeOpts := store.OptionsFromConfig(&config.Store)
	if a.manager.S3 != nil {
		storeOpts.Blobs = a.manager.S3
	}

	if a.store, err = store.Open(ctx, a.manager.DB.DB, storeOpts); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a.hub = hub.New(hub.OptionsFromConfig(&config.Hub))
	a.gateway = ingest.New(a.store, a.hub, ingest.OptionsFromConfig(&config.Ingest))
	a.service = service.NewClipService(a.gateway, a.hub, cache.NewCache(a.manager.KV), service.OptionsFromConfig(config))

	if a.scheduler, err = scheduler.NewScheduler(); err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	a.runner = jobs.NewRunner(a.gateway, config.Jobs.PasteRetainDays)
	if err = jobs.RegisterCronJobs(ctx, a.scheduler, a.runner, config.Jobs); err != nil {
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	configs.OnReload(a.onReload)

	a.Engine = a.newEngine()

	return a, nil
}

func (a *App) newEngine() *gin.Engine {
	if !a.config.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()

	engine.Use(
		gin.Recovery(),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(a.config.Server),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{router.EventsPath})),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.RateLimitMiddleware(a.config.RateLimit),
		middleware.CircuitBreakerMiddleware(a.config.CircuitBreaker, router.EventsPath),
		middleware.StorageMiddleware(a.manager),
		middleware.RuntimeMiddleware(&ctxPkg.Runtime{
			Service:   a.service,
			Gateway:   a.gateway,
			Hub:       a.hub,
			Scheduler: a.scheduler,
		}),
	)

	if a.config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(a.config.Metrics, engine)
	}

	return api.RegisterGroup(engine)
}

// onReload 热重载后应用新的条目上限并立即裁剪.
func (a *App) onReload(cfg *configs.AppConfig) {
	if cfg.Store.MaxItems == a.store.MaxItems() {
		return
	}

	a.store.SetMaxItems(cfg.Store.MaxItems)
	a.log.Info().Int("max_items", cfg.Store.MaxItems).Msg("max items changed")

	timeout := cfg.Ingest.SubmitTimeout
	if timeout <= 0 {
		timeout = configs.DefaultIngestSubmitTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.runner.RetentionSweep(ctx); err != nil {
		a.log.Error().Err(err).Msg("retention after reload failed")
	}
}

// Run 启动全部组件直到 ctx 结束或任一组件失败，返回前释放资源.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	var ingestRouter *message.Router

	if a.config.Ingest.MQ.Enabled {
		r, err := a.manager.MQ.NewRouter()
		if err != nil {
			return err
		}

		ingest.NewSubscriber(a.gateway, a.config.Ingest.MQ.Topic).Register(r, a.manager.MQ.Subscriber())
		ingestRouter = r
	}

	var monitor *classify.Monitor

	if a.config.Monitor.Enabled {
		probe, err := classify.NewSystemProbe(a.config.Monitor.Text, a.config.Monitor.Image)
		if err != nil {
			return fmt.Errorf("clipboard monitor: %w", err)
		}

		monitor = classify.NewMonitor(probe, nil, a.gateway)
	}

	srv := &http.Server{
		Addr:              a.config.Server.Addr(),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.gateway.Run(ctx) })

	g.Go(func() error {
		a.log.Info().Str("addr", srv.Addr).Msg("http server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		// 先关闭广播中心，事件流随之结束
		a.hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	if a.config.Ingest.Socket.Enabled {
		sock := ingest.NewSocketServer(a.gateway, a.config.Ingest.Socket, a.config.Ingest.SubmitTimeout)
		g.Go(func() error { return sock.Run(ctx) })
	}

	if ingestRouter != nil {
		g.Go(func() error { return ingestRouter.Run(ctx) })
	}

	relay := mq.NewRelay(a.manager.MQ.Publisher(), a.hub, a.config.Events, a.config.CircuitBreaker)
	g.Go(func() error { return relay.Run(ctx) })

	if monitor != nil {
		g.Go(func() error { return monitor.Run(ctx) })
	}

	a.scheduler.Start()

	return g.Wait()
}

func (a *App) close() {
	if a.scheduler != nil {
		if err := a.scheduler.Stop(); err != nil {
			a.log.Warn().Err(err).Msg("stop scheduler")
		}
	}

	if a.hub != nil {
		a.hub.Close()
	}

	if a.manager != nil {
		if err := a.manager.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close storage")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := tracing.ShutdownTracer(ctx); err != nil {
		a.log.Warn().Err(err).Msg("shutdown tracer")
	}
}

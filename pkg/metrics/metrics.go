// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集 HTTP、采集网关、广播中心与定时任务指标.
//
// Example:
//
//	import "github.com/yeisme/clipvault/pkg/metrics"
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// 记录指标
//	metrics.IngestTotal.WithLabelValues("text", "new").Inc()
//	metrics.RequestDuration.WithLabelValues("POST", "/api/v1/ingest").Observe(0.1)
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/clipvault/pkg/configs"
)

const namespace = configs.AppName

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 活跃连接数，SSE 长连接也计入.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of active connections",
		},
	)

	// IngestTotal 采集结果计数，result 为 new|touched|error|malformed.
	IngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_total",
			Help:      "Ingested clipboard events by kind and result",
		},
		[]string{"kind", "result"},
	)

	// IngestDuration 写入任务从入队到完成的耗时.
	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Time from enqueue to completion of writer tasks",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)

	// IngestQueueDepth 写入队列中等待的任务数.
	IngestQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingest_queue_depth",
			Help:      "Writer tasks waiting in the queue",
		},
	)

	// HubSubscribers 当前订阅者数.
	HubSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hub_subscribers",
			Help:      "Active broadcast subscribers",
		},
	)

	// HubEvictions 被剔除的订阅者数，reason 为 full|timeout.
	HubEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_evictions_total",
			Help:      "Subscribers evicted by the broadcast hub",
		},
		[]string{"reason"},
	)

	// HubPublished 广播的通知数.
	HubPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_published_total",
			Help:      "Notifications published by the broadcast hub",
		},
		[]string{"event"},
	)

	// RelayPublished 转发到消息队列的通知数，result 为 ok|error|rejected|dropped.
	RelayPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_published_total",
			Help:      "Broadcast envelopes relayed to the message queue",
		},
		[]string{"event", "result"},
	)

	// JobRuns 定时任务执行次数.
	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job and result",
		},
		[]string{"job", "result"},
	)

	// CacheRequests 查询缓存命中情况.
	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Query cache lookups by result",
		},
		[]string{"result"},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()

	initOnce sync.Once
)

// InitMetrics 初始化Metrics，重复调用只注册一次.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	var err error

	initOnce.Do(func() {
		// 注册标准收集器
		if config.RuntimeMetrics {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		for _, c := range []prometheus.Collector{
			RequestCounter, RequestDuration, ActiveConnections,
			IngestTotal, IngestDuration, IngestQueueDepth,
			HubSubscribers, HubEvictions, HubPublished,
			RelayPublished, JobRuns, CacheRequests,
		} {
			if err = registry.Register(c); err != nil {
				return
			}
		}
	})

	return err
}

// StartMetricsServer 在给定引擎上暴露指标与可选的 pprof 端点.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	engine.GET(path, gin.WrapH(promhttp.HandlerFor(Gatherer(), promhttp.HandlerOpts{})))

	// 如果启用pprof，注册pprof端点
	if config.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}

// Gatherer 合并本包注册表与默认注册表，GORM 插件注册在默认注册表上.
func Gatherer() prometheus.Gatherer {
	return prometheus.Gatherers{registry, prometheus.DefaultGatherer}
}

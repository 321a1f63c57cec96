// Package metrics 定义 Prometheus 指标：HTTP 访问、回收站操作、平台提交与自动保存.
//
// 指标注册到独立的 registry，由 StartMetricsServer 挂载到 gin 引擎.
package metrics

import (
	"net/http/pprof"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/postvault/pkg/configs"
)

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 活跃连接数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests being served",
		},
	)

	// TrashOps 回收站操作计数，op 为操作名，result 为 ok/error.
	TrashOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postvault_trash_operations_total",
			Help: "Trash manager operations by result",
		},
		[]string{"op", "result"},
	)

	// TrashSwept 过期清理删除的条目数.
	TrashSwept = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postvault_trash_swept_total",
			Help: "Expired trash items permanently deleted by the sweep",
		},
		[]string{"kind"},
	)

	// PublishSubmissions 平台提交结果计数.
	PublishSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postvault_publish_submissions_total",
			Help: "Platform submissions by platform and outcome",
		},
		[]string{"platform", "outcome"},
	)

	// PublishLatency 平台提交耗时.
	PublishLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "postvault_publish_submit_seconds",
			Help:    "Platform submission latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform"},
	)

	// AutosaveWrites 自动保存写入次数.
	AutosaveWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postvault_autosave_writes_total",
			Help: "Debounced autosave writes by result",
		},
		[]string{"result"},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()

	initOnce sync.Once
)

// Result 把错误转换为指标标签.
func Result(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}

// InitMetrics 注册全部指标，cfg.Labels 作为常量标签附加到每个指标.
func InitMetrics(cfg configs.MetricsConfig) error {
	if !cfg.Enabled {
		return nil
	}

	initOnce.Do(func() {
		reg := prometheus.WrapRegistererWith(cfg.Labels, registry)

		if cfg.RuntimeMetrics {
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		reg.MustRegister(RequestCounter, RequestDuration, ActiveConnections)
		reg.MustRegister(TrashOps, TrashSwept, PublishSubmissions, PublishLatency, AutosaveWrites)
	})

	return nil
}

// StartMetricsServer 在 engine 上挂载指标端点，Pprof 开启时同时挂载 /debug/pprof.
func StartMetricsServer(cfg configs.MetricsConfig, engine *gin.Engine) error {
	if !cfg.Enabled {
		return nil
	}

	engine.GET(cfg.Path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	if cfg.Pprof {
		dbg := engine.Group("/debug/pprof")
		dbg.GET("/", gin.WrapF(pprof.Index))
		dbg.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		dbg.GET("/profile", gin.WrapF(pprof.Profile))
		dbg.GET("/symbol", gin.WrapF(pprof.Symbol))
		dbg.GET("/trace", gin.WrapF(pprof.Trace))
		dbg.GET("/:name", func(c *gin.Context) {
			pprof.Handler(c.Param("name")).ServeHTTP(c.Writer, c.Request)
		})
	}

	return nil
}

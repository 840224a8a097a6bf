// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 检索指标
	retrievalsTotal      *prometheus.CounterVec
	retrievalDuration    *prometheus.HistogramVec
	retrievalUnits       prometheus.Histogram
	escalationsTotal     *prometheus.CounterVec
	escalationSupplement prometheus.Histogram

	// 入库指标
	ingestsTotal   *prometheus.CounterVec
	ingestDuration prometheus.Histogram
	ingestedNodes  prometheus.Counter
	ingestedEdges  prometheus.Counter

	// 嵌入与生成指标
	embeddingsTotal    *prometheus.CounterVec
	embeddingDuration  *prometheus.HistogramVec
	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec

	// 存储指标
	storeOperationsTotal   *prometheus.CounterVec
	storeOperationDuration *prometheus.HistogramVec

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// 数据库指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// 检索指标
	c.retrievalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Total number of hybrid retrievals",
		},
		[]string{"status", "used_search_agent"},
	)

	c.retrievalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Hybrid retrieval duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"status"},
	)

	c.retrievalUnits = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_context_units",
			Help:      "Number of context units returned per retrieval",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		},
	)

	c.escalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Total number of search-agent escalations",
		},
		[]string{"reason", "outcome"}, // outcome: ok, failed
	)

	c.escalationSupplement = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "escalation_supplemental_units",
			Help:      "Number of supplemental units produced per escalation",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		},
	)

	// 入库指标
	c.ingestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingests_total",
			Help:      "Total number of processed documents",
		},
		[]string{"status"},
	)

	c.ingestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Document processing duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	c.ingestedNodes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_nodes_total",
			Help:      "Total number of graph nodes stored",
		},
	)

	c.ingestedEdges = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_edges_total",
			Help:      "Total number of graph edges built",
		},
	)

	// 嵌入与生成指标
	c.embeddingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding calls",
		},
		[]string{"provider", "status"},
	)

	c.embeddingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_duration_seconds",
			Help:      "Embedding call duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"provider"},
	)

	c.generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Total number of answer generation calls",
		},
		[]string{"provider", "status"},
	)

	c.generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Answer generation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	// 存储指标
	c.storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of memory store operations",
		},
		[]string{"backend", "operation", "status"},
	)

	c.storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Memory store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	// 缓存指标
	c.cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// 数据库指标
	c.dbConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 🔍 检索与入库指标记录
// =============================================================================

// ObserveRetrieval 记录一次混合检索，实现 rag.RetrievalObserver
func (c *Collector) ObserveRetrieval(status string, usedSearchAgent bool, units int, d time.Duration) {
	c.retrievalsTotal.WithLabelValues(status, strconv.FormatBool(usedSearchAgent)).Inc()
	c.retrievalDuration.WithLabelValues(status).Observe(d.Seconds())
	if status == "success" {
		c.retrievalUnits.Observe(float64(units))
	}
}

// ObserveEscalation 记录一次升级补充检索，实现 rag.RetrievalObserver
func (c *Collector) ObserveEscalation(reason, outcome string, supplemental int) {
	c.escalationsTotal.WithLabelValues(reason, outcome).Inc()
	c.escalationSupplement.Observe(float64(supplemental))
}

// ObserveIngest 记录一次文档处理，实现 rag.IngestObserver
func (c *Collector) ObserveIngest(status string, nodes, edges int, d time.Duration) {
	c.ingestsTotal.WithLabelValues(status).Inc()
	c.ingestDuration.Observe(d.Seconds())
	c.ingestedNodes.Add(float64(nodes))
	c.ingestedEdges.Add(float64(edges))
}

// =============================================================================
// 🤖 嵌入、生成与存储指标记录
// =============================================================================

// ObserveEmbedding 记录一次嵌入调用，实现 embedding.Observer
func (c *Collector) ObserveEmbedding(provider, status string, d time.Duration) {
	c.embeddingsTotal.WithLabelValues(provider, status).Inc()
	c.embeddingDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveGeneration 记录一次生成调用，实现 generation.Observer
func (c *Collector) ObserveGeneration(provider, status string, d time.Duration) {
	c.generationsTotal.WithLabelValues(provider, status).Inc()
	c.generationDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveStoreOperation 记录一次存储操作，实现 memory.Observer
func (c *Collector) ObserveStoreOperation(backend, operation, status string, d time.Duration) {
	c.storeOperationsTotal.WithLabelValues(backend, operation, status).Inc()
	c.storeOperationDuration.WithLabelValues(backend, operation).Observe(d.Seconds())
}

// =============================================================================
// 💾 缓存与数据库指标记录
// =============================================================================

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

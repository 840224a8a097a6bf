package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.retrievalsTotal)
	assert.NotNil(t, collector.escalationsTotal)
	assert.NotNil(t, collector.storeOperationsTotal)
	assert.NotNil(t, collector.embeddingsTotal)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordHTTPRequest("POST", "/api/query", 200, 100*time.Millisecond, 1024, 2048)
	collector.RecordHTTPRequest("POST", "/api/query", 503, 50*time.Millisecond, 512, 64)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/api/query", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/api/query", "5xx")))
}

func TestCollector_ObserveRetrieval(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.ObserveRetrieval("success", true, 7, 20*time.Millisecond)
	collector.ObserveRetrieval("success", false, 3, 5*time.Millisecond)
	collector.ObserveRetrieval("error", false, 0, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.retrievalsTotal.WithLabelValues("success", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.retrievalsTotal.WithLabelValues("success", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.retrievalsTotal.WithLabelValues("error", "false")))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.retrievalUnits))
}

func TestCollector_ObserveEscalation(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.ObserveEscalation("interrogative", "ok", 4)
	collector.ObserveEscalation("interrogative", "failed", 0)
	collector.ObserveEscalation("few_primary_results", "ok", 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.escalationsTotal.WithLabelValues("interrogative", "failed")))
	assert.Equal(t, 3, testutil.CollectAndCount(collector.escalationsTotal))
}

func TestCollector_ObserveIngest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.ObserveIngest("success", 12, 30, time.Second)
	collector.ObserveIngest("success", 3, 4, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.ingestsTotal.WithLabelValues("success")))
	assert.Equal(t, 15.0, testutil.ToFloat64(collector.ingestedNodes))
	assert.Equal(t, 34.0, testutil.ToFloat64(collector.ingestedEdges))
}

func TestCollector_ProviderAndStoreObservers(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.ObserveEmbedding("hash", "ok", time.Millisecond)
	collector.ObserveGeneration("extractive", "ok", time.Millisecond)
	collector.ObserveStoreOperation("redis", "search", "error", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.embeddingsTotal.WithLabelValues("hash", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.generationsTotal.WithLabelValues("extractive", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.storeOperationsTotal.WithLabelValues("redis", "search", "error")))
}

func TestCollector_CacheAndDB(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordCacheHit("embedding_local")
	collector.RecordCacheMiss("embedding_remote")
	collector.RecordDBConnections("sqlite", 4, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.cacheHits.WithLabelValues("embedding_local")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.cacheMisses.WithLabelValues("embedding_remote")))
	assert.Equal(t, 4.0, testutil.ToFloat64(collector.dbConnectionsOpen.WithLabelValues("sqlite")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.dbConnectionsIdle.WithLabelValues("sqlite")))
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.RecordHTTPRequest("GET", "/health", 200, time.Millisecond, 0, 16)
			collector.ObserveRetrieval("success", true, 5, time.Millisecond)
			collector.RecordCacheHit("embedding_local")
		}()
	}
	wg.Wait()

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/health", "2xx")))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.retrievalsTotal.WithLabelValues("success", "true")))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(204))
	assert.Equal(t, "3xx", statusCode(301))
	assert.Equal(t, "4xx", statusCode(404))
	assert.Equal(t, "5xx", statusCode(502))
	assert.Equal(t, "unknown", statusCode(100))
}

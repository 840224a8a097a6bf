package memory

import (
	"context"
	"time"

	"github.com/BaSui01/docgraph/types"
)

// Observer 接收存储操作的耗时与结果，由 internal/metrics.Collector 实现。
type Observer interface {
	ObserveStoreOperation(backend, operation, status string, d time.Duration)
}

type instrumentedStore struct {
	next    Store
	backend string
	obs     Observer
}

// Instrument 包装 Store，为每次调用上报 backend/operation/status 与耗时。
// obs 为 nil 时原样返回 s。
func Instrument(s Store, backend string, obs Observer) Store {
	if obs == nil {
		return s
	}
	return &instrumentedStore{next: s, backend: backend, obs: obs}
}

func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.obs.ObserveStoreOperation(s.backend, op, status, time.Since(start))
}

func (s *instrumentedStore) Upsert(ctx context.Context, userID, content string, embedding []float64, metadata map[string]any) (m types.Memory, err error) {
	defer func(start time.Time) { s.observe("upsert", start, err) }(time.Now())
	return s.next.Upsert(ctx, userID, content, embedding, metadata)
}

func (s *instrumentedStore) GetProfile(ctx context.Context, userID string) (p types.UserProfile, err error) {
	defer func(start time.Time) { s.observe("get_profile", start, err) }(time.Now())
	return s.next.GetProfile(ctx, userID)
}

func (s *instrumentedStore) SearchBySimilarity(ctx context.Context, userID string, query []float64, limit int) (out []types.Memory, err error) {
	defer func(start time.Time) { s.observe("search", start, err) }(time.Now())
	return s.next.SearchBySimilarity(ctx, userID, query, limit)
}

// Ping 透传到底层存储，底层不支持时视为健康
func (s *instrumentedStore) Ping(ctx context.Context) error {
	if p, ok := s.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

package rag

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BaSui01/docgraph/llm/embedding"
	"github.com/BaSui01/docgraph/memory"
	"github.com/BaSui01/docgraph/types"
)

const testDims = 64

func newTestStore() *memory.InMemoryStore {
	return memory.NewInMemoryStore(memory.InMemoryStoreConfig{}, nil)
}

func newTestEmbedder() embedding.Embedder {
	return embedding.NewHashEmbedder(testDims)
}

// scriptedEmbedder 委托给哈希嵌入，failOn 中的文本返回错误
type scriptedEmbedder struct {
	next   embedding.Embedder
	failOn map[string]error
	calls  atomic.Int64

	mu    sync.Mutex
	texts []string
}

func newScriptedEmbedder(failOn map[string]error) *scriptedEmbedder {
	return &scriptedEmbedder{next: newTestEmbedder(), failOn: failOn}
}

func (s *scriptedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
	if err, ok := s.failOn[text]; ok {
		return nil, err
	}
	return s.next.Embed(ctx, text)
}

func (s *scriptedEmbedder) Dimensions() int { return s.next.Dimensions() }
func (s *scriptedEmbedder) Name() string    { return "scripted" }

func (s *scriptedEmbedder) embedded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

// blockingEmbedder 对指定文本阻塞直到 ctx 结束
type blockingEmbedder struct {
	next  embedding.Embedder
	block map[string]bool
}

func (b *blockingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if b.block[text] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return b.next.Embed(ctx, text)
}

func (b *blockingEmbedder) Dimensions() int { return b.next.Dimensions() }
func (b *blockingEmbedder) Name() string    { return "blocking" }

// faultyStore 包装真实存储，按调用序号注入搜索失败
type faultyStore struct {
	memory.Store
	failSearchAt map[int]bool
	failProfile  bool
	failUpsert   bool
	searches     atomic.Int64
}

var errStoreDown = types.NewError(types.ErrStoreUnavailable, "store down").WithHTTPStatus(503)

func (f *faultyStore) SearchBySimilarity(ctx context.Context, userID string, q []float64, limit int) ([]types.Memory, error) {
	n := int(f.searches.Add(1))
	if f.failSearchAt[n] {
		return nil, errStoreDown
	}
	return f.Store.SearchBySimilarity(ctx, userID, q, limit)
}

func (f *faultyStore) GetProfile(ctx context.Context, userID string) (types.UserProfile, error) {
	if f.failProfile {
		return types.UserProfile{}, errStoreDown
	}
	return f.Store.GetProfile(ctx, userID)
}

func (f *faultyStore) Upsert(ctx context.Context, userID, content string, emb []float64, meta map[string]any) (types.Memory, error) {
	if f.failUpsert {
		return types.Memory{}, errStoreDown
	}
	return f.Store.Upsert(ctx, userID, content, emb, meta)
}

// graphMemory 以图节点身份写入一条记忆
func graphMemory(ctx context.Context, s memory.Store, e embedding.Embedder, userID, nodeID string, nodeType NodeType, docID string, page int, content string) types.Memory {
	vec, err := e.Embed(ctx, content)
	if err != nil {
		panic(err)
	}
	m, err := s.Upsert(ctx, userID, content, vec, map[string]any{
		types.MetaNodeType:   types.NodeTypeGraph,
		types.MetaNodeID:     nodeID,
		types.MetaType:       string(nodeType),
		types.MetaDocumentID: docID,
		types.MetaPageNumber: page,
	})
	if err != nil {
		panic(err)
	}
	return m
}

type recordingRetrievalObserver struct {
	mu          sync.Mutex
	retrievals  []string
	escalations []string
}

func (r *recordingRetrievalObserver) ObserveRetrieval(status string, _ bool, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retrievals = append(r.retrievals, status)
}

func (r *recordingRetrievalObserver) ObserveEscalation(reason, outcome string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.escalations = append(r.escalations, reason+":"+outcome)
}

var errEmbedDown = errors.New("embedding backend down")

package rag

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/docgraph/types"
)

func noEscalation() CoordinatorOption {
	return WithEscalationPolicy(PolicyFunc(func(string, int) Decision {
		return Decision{Reason: ReasonNone}
	}))
}

func TestCoordinator_EmptyQueryRejectedBeforeEmbedding(t *testing.T) {
	emb := newScriptedEmbedder(nil)
	c := NewCoordinator(newTestStore(), emb, DefaultRetrievalConfig(), nil)

	for _, q := range []string{"", "   \n"} {
		res, err := c.Retrieve(context.Background(), "u", q, "")
		assert.Nil(t, res)
		assert.Equal(t, types.ErrRetrievalInputInvalid, types.GetErrorCode(err))
	}
	_, err := c.Retrieve(context.Background(), "", "revenue", "")
	assert.Equal(t, types.ErrRetrievalInputInvalid, types.GetErrorCode(err))
	assert.Zero(t, emb.calls.Load())
}

func TestCoordinator_PrimaryFailuresAreFatal(t *testing.T) {
	ctx := context.Background()
	base := newTestStore()
	graphMemory(ctx, base, newTestEmbedder(), "u", "chunk-d-1-0", NodeTextChunk, "d", 1, "revenue grew")

	t.Run("embedding", func(t *testing.T) {
		obs := &recordingRetrievalObserver{}
		c := NewCoordinator(base, newScriptedEmbedder(map[string]error{"revenue": errEmbedDown}), DefaultRetrievalConfig(), nil, WithRetrievalObserver(obs))
		res, err := c.Retrieve(ctx, "u", "revenue", "")
		require.Error(t, err)
		assert.Nil(t, res)
		assert.Equal(t, types.ErrRetrievalFailed, types.GetErrorCode(err))
		assert.True(t, types.IsErrorCode(err, types.ErrEmbeddingFailure))
		assert.ErrorIs(t, err, errEmbedDown)
		assert.Equal(t, []string{"error"}, obs.retrievals)
	})

	t.Run("primary search", func(t *testing.T) {
		fs := &faultyStore{Store: base, failSearchAt: map[int]bool{1: true}}
		c := NewCoordinator(fs, newTestEmbedder(), DefaultRetrievalConfig(), nil)
		res, err := c.Retrieve(ctx, "u", "revenue", "")
		assert.Nil(t, res)
		assert.Equal(t, types.ErrRetrievalFailed, types.GetErrorCode(err))
		assert.True(t, types.IsErrorCode(err, types.ErrStoreUnavailable))
		e, ok := types.AsError(err)
		require.True(t, ok)
		assert.Equal(t, 503, e.HTTPStatus)
	})

	t.Run("profile", func(t *testing.T) {
		fs := &faultyStore{Store: base, failProfile: true}
		c := NewCoordinator(fs, newTestEmbedder(), DefaultRetrievalConfig(), nil)
		_, err := c.Retrieve(ctx, "u", "revenue", "")
		assert.True(t, types.IsErrorCode(err, types.ErrStoreUnavailable))
	})
}

func TestCoordinator_NoEscalationForSpecificQuery(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	base := newTestEmbedder()
	for i := 0; i < 5; i++ {
		graphMemory(ctx, store, base, "u", fmt.Sprintf("chunk-d-1-%d", i), NodeTextChunk, "d", 1, fmt.Sprintf("revenue line %d", i))
	}

	emb := newScriptedEmbedder(nil)
	c := NewCoordinator(store, emb, DefaultRetrievalConfig(), nil)
	res, err := c.Retrieve(ctx, "u", "revenue", "")
	require.NoError(t, err)

	assert.False(t, res.UsedSearchAgent)
	assert.Equal(t, ReasonNone, res.Decision.Reason)
	assert.Len(t, res.Units, 5)
	assert.Equal(t, int64(1), emb.calls.Load())
	for _, u := range res.Units {
		assert.Equal(t, OriginPrimary, u.Origin)
	}
}

func TestCoordinator_PrimaryKeepsOnlyGraphUnits(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	emb := newTestEmbedder()

	graphMemory(ctx, store, emb, "u", "chunk-d-1-0", NodeTextChunk, "d", 1, "revenue grew in europe")
	graphMemory(ctx, store, emb, "u", "image-fig1", NodeImage, "d", 2, "revenue chart")
	vec, _ := emb.Embed(ctx, "revenue")
	_, _ = store.Upsert(ctx, "u", "Query: revenue\nAnswer: up", vec, map[string]any{types.MetaType: types.TypeInteraction})
	_, _ = store.Upsert(ctx, "u", "likes revenue summaries", vec, map[string]any{types.MetaType: "preference"})

	c := NewCoordinator(store, emb, DefaultRetrievalConfig(), nil, noEscalation())
	res, err := c.Retrieve(ctx, "u", "revenue", "")
	require.NoError(t, err)

	require.Len(t, res.Units, 2)
	ids := []string{res.Units[0].ID, res.Units[1].ID}
	assert.ElementsMatch(t, []string{"chunk-d-1-0", "image-fig1"}, ids)
	assert.Len(t, res.Profile.Memories, 4)

	require.Len(t, res.Provenance, 2)
	for i, p := range res.Provenance {
		assert.Equal(t, res.Units[i].ID, p.Source)
		assert.Equal(t, res.Units[i].Type, p.Type)
		require.NotNil(t, p.PageNumber)
	}
}

func TestCoordinator_EscalationFailureIsAbsorbed(t *testing.T) {
	ctx := context.Background()
	base := newTestStore()
	emb := newTestEmbedder()
	for i := 0; i < 3; i++ {
		graphMemory(ctx, base, emb, "u", fmt.Sprintf("chunk-d-1-%d", i), NodeTextChunk, "d", 1, fmt.Sprintf("revenue fact %d", i))
	}

	obs := &recordingRetrievalObserver{}
	fs := &faultyStore{Store: base, failSearchAt: map[int]bool{2: true}}
	c := NewCoordinator(fs, emb, DefaultRetrievalConfig(), nil, WithRetrievalObserver(obs))

	res, err := c.Retrieve(ctx, "u", "why revenue", "")
	require.NoError(t, err)
	assert.True(t, res.UsedSearchAgent)
	assert.Equal(t, ReasonInterrogative, res.Decision.Reason)
	assert.Len(t, res.Units, 3)
	assert.Equal(t, []string{"interrogative:failed"}, obs.escalations)
	assert.Equal(t, []string{"success"}, obs.retrievals)
}

func TestCoordinator_KeyTermFailureIsAbsorbed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	base := newTestEmbedder()
	graphMemory(ctx, store, base, "u", "chunk-d-1-0", NodeTextChunk, "d", 1, "growth figures")

	emb := newScriptedEmbedder(map[string]error{"figures": errEmbedDown})
	c := NewCoordinator(store, emb, DefaultRetrievalConfig(), nil)
	res, err := c.Retrieve(ctx, "u", "growth figures", "")
	require.NoError(t, err)

	// 主检索只有 1 个单元，触发升级；关键词阶段失败后退化为主检索结果
	assert.True(t, res.UsedSearchAgent)
	assert.Equal(t, ReasonFewResults, res.Decision.Reason)
	require.Len(t, res.Units, 1)
	assert.Equal(t, "chunk-d-1-0", res.Units[0].ID)
}

func TestCoordinator_EscalationTimeoutIsAbsorbed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	base := newTestEmbedder()
	graphMemory(ctx, store, base, "u", "chunk-d-1-0", NodeTextChunk, "d", 1, "growth numbers")

	emb := &blockingEmbedder{next: base, block: map[string]bool{"growth": true}}
	cfg := DefaultRetrievalConfig()
	cfg.EscalationTimeout = 20 * time.Millisecond

	start := time.Now()
	res, err := NewCoordinator(store, emb, cfg, nil).Retrieve(ctx, "u", "growth numbers", "")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, res.Units, 1)
	assert.True(t, res.UsedSearchAgent)
}

func TestCoordinator_BoundsContextToTen(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	emb := newTestEmbedder()
	for i := 0; i < 15; i++ {
		graphMemory(ctx, store, emb, "u", fmt.Sprintf("chunk-d-%d-0", i+1), NodeTextChunk, "d", i+1, fmt.Sprintf("revenue detail %d", i))
	}

	res, err := NewCoordinator(store, emb, DefaultRetrievalConfig(), nil).
		Retrieve(ctx, "u", "why does the report mention revenue growth in detail", "")
	require.NoError(t, err)

	assert.True(t, res.UsedSearchAgent)
	assert.Len(t, res.Units, 10)
	assert.Len(t, res.Provenance, 10)
	seen := map[string]bool{}
	for _, u := range res.Units {
		assert.False(t, seen[u.ID], "duplicate unit %s", u.ID)
		seen[u.ID] = true
	}
}

func TestCoordinator_FileFilter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	emb := newTestEmbedder()
	graphMemory(ctx, store, emb, "u", "chunk-a-1-0", NodeTextChunk, "a", 1, "revenue in doc a")
	graphMemory(ctx, store, emb, "u", "chunk-b-1-0", NodeTextChunk, "b", 1, "revenue in doc b")

	res, err := NewCoordinator(store, emb, DefaultRetrievalConfig(), nil).Retrieve(ctx, "u", "what revenue", "a")
	require.NoError(t, err)
	require.NotEmpty(t, res.Units)
	for _, u := range res.Units {
		assert.Equal(t, "a", u.Metadata.DocumentID)
	}
}

func TestCoordinator_GraphExpansion(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	emb := newTestEmbedder()

	pages := []PageInput{{PageNumber: 1}, {PageNumber: 2}}
	chunks := []string{
		"quarterly revenue growth exceeded forecasts",
		"forecasts showed quarterly revenue growth slowing",
	}
	g := BuildGraph("d", pages, chunks, nil)
	require.Len(t, edgesOfType(g, EdgeReferences), 2)

	registry := NewGraphRegistry()
	registry.Put("d", g)

	// 只有第一页的块被写入存储，第二页的块只能通过图扩展到达
	graphMemory(ctx, store, emb, "u", "chunk-d-1-0", NodeTextChunk, "d", 1, chunks[0])

	t.Run("with registry", func(t *testing.T) {
		c := NewCoordinator(store, emb, DefaultRetrievalConfig(), nil, WithGraphRegistry(registry))
		res, err := c.Retrieve(ctx, "u", "revenue growth", "")
		require.NoError(t, err)

		require.Len(t, res.Units, 2)
		assert.Equal(t, "chunk-d-1-0", res.Units[0].ID)
		assert.Equal(t, OriginPrimary, res.Units[0].Origin)
		assert.Equal(t, "chunk-d-2-0", res.Units[1].ID)
		assert.Equal(t, OriginExpansion, res.Units[1].Origin)
		require.NotNil(t, res.Provenance[1].PageNumber)
		assert.Equal(t, 2, *res.Provenance[1].PageNumber)
	})

	t.Run("without registry", func(t *testing.T) {
		res, err := NewCoordinator(store, emb, DefaultRetrievalConfig(), nil).Retrieve(ctx, "u", "revenue growth", "")
		require.NoError(t, err)
		require.Len(t, res.Units, 1)
	})

	t.Run("depth zero disables expansion", func(t *testing.T) {
		cfg := DefaultRetrievalConfig()
		cfg.GraphExpandDepth = 0
		res, err := NewCoordinator(store, emb, cfg, nil, WithGraphRegistry(registry)).Retrieve(ctx, "u", "revenue growth", "")
		require.NoError(t, err)
		require.Len(t, res.Units, 1)
	})
}

func TestMergeUnits_FirstSeenWins(t *testing.T) {
	primary := []ContextUnit{{GraphNode: GraphNode{ID: "x", Content: "A"}, Origin: OriginPrimary}}
	supplement := []ContextUnit{
		{GraphNode: GraphNode{ID: "x", Content: "B"}, Origin: OriginAgent},
		{GraphNode: GraphNode{ID: "y", Content: "C"}, Origin: OriginAgent},
	}

	merged := MergeUnits(primary, supplement, 10)
	require.Len(t, merged, 2)
	assert.Equal(t, "A", merged[0].Content)
	assert.Equal(t, "y", merged[1].ID)

	assert.Len(t, MergeUnits(primary, supplement, 1), 1)
}

func TestBuildProvenance(t *testing.T) {
	units := []ContextUnit{
		{GraphNode: GraphNode{ID: "chunk-d-3-0", Type: NodeTextChunk, Metadata: NodeMetadata{PageNumber: intPtr(3)}}},
		{GraphNode: GraphNode{ID: "mem-1", Type: NodeTextChunk}},
	}
	prov := BuildProvenance(units)
	require.Len(t, prov, 2)
	assert.Equal(t, ProvenanceRecord{Source: "chunk-d-3-0", Type: NodeTextChunk, PageNumber: intPtr(3)}, prov[0])
	assert.Nil(t, prov[1].PageNumber)
}

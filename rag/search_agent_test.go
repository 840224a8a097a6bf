package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/docgraph/types"
)

func TestSearchAgent_FiltersInteractionsAndUntyped(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	emb := newTestEmbedder()

	graphMemory(ctx, store, emb, "u", "chunk-d-1-0", NodeTextChunk, "d", 1, "revenue grew in europe")
	vec, _ := emb.Embed(ctx, "revenue question")
	_, _ = store.Upsert(ctx, "u", "Query: revenue?\nAnswer: up", vec, map[string]any{types.MetaType: types.TypeInteraction})
	_, _ = store.Upsert(ctx, "u", "revenue untyped note", vec, nil)
	note, _ := store.Upsert(ctx, "u", "revenue note", vec, map[string]any{types.MetaType: "note"})

	agent := NewSearchAgent(store, emb, SearchAgentConfig{MaxResults: 2, KeyTermSearchLimit: 3, MaxKeyTerms: 0}, nil)
	q, _ := emb.Embed(ctx, "revenue")
	results, err := agent.Search(ctx, "u", "revenue", q, nil)
	require.NoError(t, err)

	sources := make([]string, 0, len(results))
	for _, r := range results {
		sources = append(sources, r.Source)
	}
	assert.ElementsMatch(t, []string{"chunk-d-1-0", note.ID}, sources)
	for _, r := range results {
		assert.LessOrEqual(t, r.RelevanceScore, 1.0+1e-9)
	}
}

func TestSearchAgent_KeyTermsShortCircuit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	base := newTestEmbedder()

	for _, content := range []string{"alpha report", "bravo report", "charlie report"} {
		vec, _ := base.Embed(ctx, content)
		_, err := store.Upsert(ctx, "u", content, vec, nil)
		require.NoError(t, err)
	}

	emb := newScriptedEmbedder(nil)
	agent := NewSearchAgent(store, emb, SearchAgentConfig{MaxResults: 2, KeyTermSearchLimit: 1, MaxKeyTerms: 5}, nil)
	q, _ := base.Embed(ctx, "alpha bravo charlie")

	results, err := agent.Search(ctx, "u", "alpha bravo charlie", q, nil)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "alpha report", results[0].Content)
	assert.Equal(t, "bravo report", results[1].Content)
	assert.Equal(t, []string{"alpha", "bravo"}, emb.embedded())
}

func TestSearchAgent_DedupBySource(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	emb := newTestEmbedder()

	// 同一图节点被写入两次（重新索引）
	graphMemory(ctx, store, emb, "u", "chunk-d-1-0", NodeTextChunk, "d", 1, "alpha bravo")
	graphMemory(ctx, store, emb, "u", "chunk-d-1-0", NodeTextChunk, "d", 1, "alpha bravo")

	agent := NewSearchAgent(store, emb, SearchAgentConfig{MaxResults: 5, KeyTermSearchLimit: 3, MaxKeyTerms: 5}, nil)
	results, err := agent.Search(ctx, "u", "alpha bravo", nil, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "chunk-d-1-0", results[0].Source)
}

func TestSearchAgent_Errors(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	base := newTestEmbedder()
	vec, _ := base.Embed(ctx, "growth")
	_, _ = store.Upsert(ctx, "u", "growth", vec, nil)

	t.Run("query embedding", func(t *testing.T) {
		agent := NewSearchAgent(store, newScriptedEmbedder(map[string]error{"growth figures": errEmbedDown}), DefaultSearchAgentConfig(), nil)
		_, err := agent.Search(ctx, "u", "growth figures", nil, nil)
		assert.ErrorIs(t, err, errEmbedDown)
	})

	t.Run("key term embedding", func(t *testing.T) {
		agent := NewSearchAgent(store, newScriptedEmbedder(map[string]error{"figures": errEmbedDown}), DefaultSearchAgentConfig(), nil)
		_, err := agent.Search(ctx, "u", "growth figures", vec, nil)
		assert.ErrorIs(t, err, errEmbedDown)
	})

	t.Run("store", func(t *testing.T) {
		fs := &faultyStore{Store: store, failSearchAt: map[int]bool{1: true}}
		agent := NewSearchAgent(fs, base, DefaultSearchAgentConfig(), nil)
		_, err := agent.Search(ctx, "u", "growth", vec, nil)
		assert.True(t, types.IsErrorCode(err, types.ErrStoreUnavailable))
	})
}

package rag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/docgraph/llm/embedding"
	"github.com/BaSui01/docgraph/memory"
	"github.com/BaSui01/docgraph/types"
)

// SearchResult 搜索代理的瞬时输出，不会被持久化
type SearchResult struct {
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata"`
	RelevanceScore float64        `json:"relevanceScore"`
	Source         string         `json:"source"`

	embedding []float64
}

// SearchAgentConfig 搜索代理配置
type SearchAgentConfig struct {
	MaxResults         int `json:"max_results"`
	KeyTermSearchLimit int `json:"key_term_search_limit"`
	MaxKeyTerms        int `json:"max_key_terms"`
}

// DefaultSearchAgentConfig 返回默认搜索代理配置
func DefaultSearchAgentConfig() SearchAgentConfig {
	return SearchAgentConfig{
		MaxResults:         5,
		KeyTermSearchLimit: 3,
		MaxKeyTerms:        5,
	}
}

// SearchAgent 在主检索之外执行补充检索：先复用查询向量扩大召回，
// 不足时按关键词逐个嵌入并检索，结果满额即停止。
type SearchAgent struct {
	store    memory.Store
	embedder embedding.Embedder
	config   SearchAgentConfig
	logger   *zap.Logger
}

// NewSearchAgent 创建搜索代理
func NewSearchAgent(store memory.Store, embedder embedding.Embedder, config SearchAgentConfig, logger *zap.Logger) *SearchAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxResults <= 0 {
		config.MaxResults = DefaultSearchAgentConfig().MaxResults
	}
	return &SearchAgent{
		store:    store,
		embedder: embedder,
		config:   config,
		logger:   logger.With(zap.String("component", "search_agent")),
	}
}

// Search 执行补充检索。queryEmbedding 为空时会重新嵌入查询。
// accept 为额外的过滤条件（例如限定文档），可为 nil。
// 任一步失败都返回错误，由调用方决定是否吞掉。
func (a *SearchAgent) Search(ctx context.Context, userID, query string, queryEmbedding []float64, accept func(types.Memory) bool) ([]SearchResult, error) {
	maxResults := a.config.MaxResults

	if len(queryEmbedding) == 0 {
		vec, err := a.embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		queryEmbedding = vec
	}

	candidates, err := a.store.SearchBySimilarity(ctx, userID, queryEmbedding, maxResults*2)
	if err != nil {
		return nil, fmt.Errorf("search by query: %w", err)
	}

	results := make([]SearchResult, 0, maxResults)
	seen := make(map[string]struct{})
	for _, m := range candidates {
		if len(results) >= maxResults {
			break
		}
		if !searchable(m) || (accept != nil && !accept(m)) {
			continue
		}
		r := toSearchResult(m, queryEmbedding)
		if _, dup := seen[r.Source]; dup {
			continue
		}
		seen[r.Source] = struct{}{}
		results = append(results, r)
	}

	if len(results) >= maxResults {
		return results, nil
	}

	terms := NewKeyTermIterator(query, a.config.MaxKeyTerms)
	for term, ok := terms.Next(); ok && len(results) < maxResults; term, ok = terms.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := a.embedder.Embed(ctx, term)
		if err != nil {
			return nil, fmt.Errorf("embed key term %q: %w", term, err)
		}
		found, err := a.store.SearchBySimilarity(ctx, userID, vec, a.config.KeyTermSearchLimit)
		if err != nil {
			return nil, fmt.Errorf("search key term %q: %w", term, err)
		}
		for _, m := range found {
			if len(results) >= maxResults {
				break
			}
			if accept != nil && !accept(m) {
				continue
			}
			r := toSearchResult(m, vec)
			if _, dup := seen[r.Source]; dup {
				continue
			}
			seen[r.Source] = struct{}{}
			results = append(results, r)
		}
		a.logger.Debug("key term searched",
			zap.String("term", term),
			zap.Int("found", len(found)),
			zap.Int("results", len(results)))
	}

	return results, nil
}

// searchable 图节点或非交互类内容
func searchable(m types.Memory) bool {
	if m.IsGraphDerived() {
		return true
	}
	t := types.MetaString(m.Metadata, types.MetaType)
	return t != "" && t != types.TypeInteraction
}

func toSearchResult(m types.Memory, query []float64) SearchResult {
	return SearchResult{
		Content:        m.Content,
		Metadata:       types.CloneMeta(m.Metadata),
		RelevanceScore: memory.CosineSimilarity(query, m.Embedding),
		Source:         m.UnitID(),
		embedding:      m.Embedding,
	}
}

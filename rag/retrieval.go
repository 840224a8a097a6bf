package rag

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/docgraph/llm/embedding"
	"github.com/BaSui01/docgraph/memory"
	"github.com/BaSui01/docgraph/types"
)

const tracerName = "docgraph/rag"

// UnitOrigin 标记上下文单元来自哪一轮检索
type UnitOrigin string

const (
	OriginPrimary   UnitOrigin = "primary"
	OriginAgent     UnitOrigin = "search_agent"
	OriginExpansion UnitOrigin = "graph_expansion"
)

// ContextUnit 检索得到的图节点形态单元
type ContextUnit struct {
	GraphNode
	Score  float64    `json:"score"`
	Origin UnitOrigin `json:"origin"`
}

// ProvenanceRecord 将上下文单元关联回原始文档与页码
type ProvenanceRecord struct {
	Source     string   `json:"source"`
	Type       NodeType `json:"type"`
	PageNumber *int     `json:"pageNumber,omitempty"`
}

// RetrievalResult 一次混合检索的输出
type RetrievalResult struct {
	Units           []ContextUnit      `json:"contextNodes"`
	Provenance      []ProvenanceRecord `json:"provenance"`
	UsedSearchAgent bool               `json:"usedSearchAgent"`
	Decision        Decision           `json:"decision"`
	Profile         types.UserProfile  `json:"-"`
}

// RetrievalConfig 检索协调器配置
type RetrievalConfig struct {
	PrimaryLimit      int               `json:"primary_limit"`
	MaxContextUnits   int               `json:"max_context_units"`
	SearchAgent       SearchAgentConfig `json:"search_agent"`
	GraphExpandDepth  int               `json:"graph_expand_depth"`
	EmbedTimeout      time.Duration     `json:"embed_timeout"`
	EscalationTimeout time.Duration     `json:"escalation_timeout"`
}

// DefaultRetrievalConfig 返回默认检索配置
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		PrimaryLimit:      10,
		MaxContextUnits:   10,
		SearchAgent:       DefaultSearchAgentConfig(),
		GraphExpandDepth:  1,
		EmbedTimeout:      10 * time.Second,
		EscalationTimeout: 5 * time.Second,
	}
}

// RetrievalObserver 接收检索与升级的观测数据，由 internal/metrics.Collector 实现
type RetrievalObserver interface {
	ObserveRetrieval(status string, usedSearchAgent bool, units int, d time.Duration)
	ObserveEscalation(reason, outcome string, supplemental int)
}

// CoordinatorOption 协调器选项
type CoordinatorOption func(*Coordinator)

// WithEscalationPolicy 替换默认启发式升级策略
func WithEscalationPolicy(p EscalationPolicy) CoordinatorOption {
	return func(c *Coordinator) { c.policy = p }
}

// WithGraphRegistry 启用升级阶段的图扩展
func WithGraphRegistry(r *GraphRegistry) CoordinatorOption {
	return func(c *Coordinator) { c.registry = r }
}

// WithRetrievalObserver 设置观测者
func WithRetrievalObserver(o RetrievalObserver) CoordinatorOption {
	return func(c *Coordinator) { c.observer = o }
}

// WithTracer 设置 tracer，默认使用全局 TracerProvider
func WithTracer(t trace.Tracer) CoordinatorOption {
	return func(c *Coordinator) { c.tracer = t }
}

// Coordinator 混合检索协调器：
// 嵌入查询 → 主向量检索 → 升级判定 → 搜索代理/图扩展补充 → 合并去重 → 截断 → 溯源。
type Coordinator struct {
	store    memory.Store
	embedder embedding.Embedder
	agent    *SearchAgent
	policy   EscalationPolicy
	registry *GraphRegistry
	observer RetrievalObserver
	tracer   trace.Tracer
	config   RetrievalConfig
	logger   *zap.Logger
}

// NewCoordinator 创建检索协调器
func NewCoordinator(store memory.Store, embedder embedding.Embedder, config RetrievalConfig, logger *zap.Logger, opts ...CoordinatorOption) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultRetrievalConfig()
	if config.PrimaryLimit <= 0 {
		config.PrimaryLimit = defaults.PrimaryLimit
	}
	if config.MaxContextUnits <= 0 {
		config.MaxContextUnits = defaults.MaxContextUnits
	}
	if config.SearchAgent.MaxResults <= 0 {
		config.SearchAgent.MaxResults = defaults.SearchAgent.MaxResults
	}
	if config.SearchAgent.KeyTermSearchLimit <= 0 {
		config.SearchAgent.KeyTermSearchLimit = defaults.SearchAgent.KeyTermSearchLimit
	}
	if config.SearchAgent.MaxKeyTerms <= 0 {
		config.SearchAgent.MaxKeyTerms = defaults.SearchAgent.MaxKeyTerms
	}

	c := &Coordinator{
		store:    store,
		embedder: embedder,
		agent:    NewSearchAgent(store, embedder, config.SearchAgent, logger),
		policy:   DefaultHeuristicPolicy(),
		config:   config,
		logger:   logger.With(zap.String("component", "retrieval")),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c
}

// Retrieve 执行混合检索。fileID 非空时只保留该文档的单元。
// 只有主嵌入与主检索失败是致命的；升级阶段的任何失败都被记录后忽略。
func (c *Coordinator) Retrieve(ctx context.Context, userID, query, fileID string) (*RetrievalResult, error) {
	start := time.Now()

	if strings.TrimSpace(query) == "" {
		return nil, types.NewError(types.ErrRetrievalInputInvalid, "query is required").
			WithHTTPStatus(400)
	}
	if strings.TrimSpace(userID) == "" {
		return nil, types.NewError(types.ErrRetrievalInputInvalid, "user id is required").
			WithHTTPStatus(400)
	}

	ctx, span := c.tracer.Start(ctx, "rag.retrieve",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("document.id", fileID),
		))
	defer span.End()

	result, err := c.retrieve(ctx, userID, query, fileID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.observeRetrieval("error", false, 0, start)
		c.logger.Warn("retrieval failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("retrieval.units", len(result.Units)),
		attribute.Bool("retrieval.used_search_agent", result.UsedSearchAgent),
	)
	c.observeRetrieval("success", result.UsedSearchAgent, len(result.Units), start)
	return result, nil
}

func (c *Coordinator) retrieve(ctx context.Context, userID, query, fileID string) (*RetrievalResult, error) {
	profile, err := c.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, retrievalFailed("load profile", err)
	}

	embedCtx, cancel := withOptionalTimeout(ctx, c.config.EmbedTimeout)
	queryVec, err := c.embedder.Embed(embedCtx, query)
	cancel()
	if err != nil {
		return nil, retrievalFailed("embed query", asEmbeddingFailure(err))
	}

	found, err := c.store.SearchBySimilarity(ctx, userID, queryVec, c.config.PrimaryLimit)
	if err != nil {
		return nil, retrievalFailed("primary search", err)
	}

	accept := documentFilter(fileID)
	primary := make([]ContextUnit, 0, len(found))
	for _, m := range found {
		if !m.IsGraphDerived() || !accept(m) {
			continue
		}
		primary = append(primary, unitFromMemory(m, queryVec, OriginPrimary))
	}

	decision := c.policy.Decide(query, len(primary))

	var supplement []ContextUnit
	if decision.Escalate {
		supplement = c.escalate(ctx, userID, query, fileID, queryVec, primary, decision)
	}

	units := MergeUnits(primary, supplement, c.config.MaxContextUnits)

	c.logger.Debug("retrieval completed",
		zap.String("user_id", userID),
		zap.Int("primary", len(primary)),
		zap.Int("supplemental", len(supplement)),
		zap.Int("units", len(units)),
		zap.String("escalation_reason", decision.Reason))

	return &RetrievalResult{
		Units:           units,
		Provenance:      BuildProvenance(units),
		UsedSearchAgent: decision.Escalate,
		Decision:        decision,
		Profile:         profile,
	}, nil
}

// escalate 运行搜索代理与图扩展，失败时返回空补充集
func (c *Coordinator) escalate(ctx context.Context, userID, query, fileID string, queryVec []float64, primary []ContextUnit, decision Decision) []ContextUnit {
	ctx, cancel := withOptionalTimeout(ctx, c.config.EscalationTimeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "rag.escalate",
		trace.WithAttributes(attribute.String("escalation.reason", decision.Reason)))
	defer span.End()

	results, err := c.agent.Search(ctx, userID, query, queryVec, documentFilter(fileID))
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("search agent failed, continuing with primary results",
			zap.String("user_id", userID),
			zap.String("reason", decision.Reason),
			zap.Error(err))
		c.observeEscalation(decision.Reason, "failed", 0)
		return nil
	}

	maxResults := c.config.SearchAgent.MaxResults
	supplement := make([]ContextUnit, 0, len(results))
	for _, r := range results {
		supplement = append(supplement, unitFromSearchResult(r))
	}

	// 图扩展的额度按补充结果中主检索未覆盖的单元计算
	if c.registry != nil && c.config.GraphExpandDepth > 0 {
		if novel := countNovel(primary, supplement); novel < maxResults {
			supplement = append(supplement, c.expand(primary, supplement, fileID, queryVec, maxResults-novel)...)
		}
	}

	c.observeEscalation(decision.Reason, "ok", len(supplement))
	return supplement
}

// expand 沿文档图从主检索单元出发扩展，补充尚未出现的文本块与图片节点
func (c *Coordinator) expand(primary, supplement []ContextUnit, fileID string, queryVec []float64, budget int) []ContextUnit {
	present := make(map[string]struct{}, len(primary)+len(supplement))
	seeds := make(map[string][]string)
	var docOrder []string
	for _, u := range primary {
		present[u.ID] = struct{}{}
		doc := u.Metadata.DocumentID
		if doc == "" || (fileID != "" && doc != fileID) {
			continue
		}
		if _, ok := seeds[doc]; !ok {
			docOrder = append(docOrder, doc)
		}
		seeds[doc] = append(seeds[doc], u.ID)
	}
	for _, u := range supplement {
		present[u.ID] = struct{}{}
	}

	var out []ContextUnit
	for _, doc := range docOrder {
		g, ok := c.registry.Get(doc)
		if !ok {
			continue
		}
		for _, n := range ExpandGraph(seeds[doc], g, c.config.GraphExpandDepth) {
			if len(out) >= budget {
				return out
			}
			if n.Type != NodeTextChunk && n.Type != NodeImage {
				continue
			}
			if _, dup := present[n.ID]; dup {
				continue
			}
			present[n.ID] = struct{}{}
			out = append(out, ContextUnit{
				GraphNode: n,
				Score:     memory.CosineSimilarity(queryVec, n.Embedding),
				Origin:    OriginExpansion,
			})
		}
	}
	return out
}

func countNovel(primary, supplement []ContextUnit) int {
	seen := make(map[string]struct{}, len(primary))
	for _, u := range primary {
		seen[u.ID] = struct{}{}
	}
	n := 0
	for _, u := range supplement {
		if _, dup := seen[u.ID]; !dup {
			seen[u.ID] = struct{}{}
			n++
		}
	}
	return n
}

// MergeUnits 合并主检索与补充单元，按 ID 去重（先出现者优先），截断到 limit
func MergeUnits(primary, supplement []ContextUnit, limit int) []ContextUnit {
	seen := make(map[string]struct{}, len(primary)+len(supplement))
	merged := make([]ContextUnit, 0, len(primary)+len(supplement))
	for _, list := range [][]ContextUnit{primary, supplement} {
		for _, u := range list {
			if _, dup := seen[u.ID]; dup {
				continue
			}
			seen[u.ID] = struct{}{}
			merged = append(merged, u)
		}
	}
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// BuildProvenance 为每个单元生成一条溯源记录
func BuildProvenance(units []ContextUnit) []ProvenanceRecord {
	out := make([]ProvenanceRecord, 0, len(units))
	for _, u := range units {
		rec := ProvenanceRecord{Source: u.ID, Type: u.Type}
		if p, ok := u.Metadata.Page(); ok {
			rec.PageNumber = intPtr(p)
		}
		out = append(out, rec)
	}
	return out
}

func unitFromMemory(m types.Memory, queryVec []float64, origin UnitOrigin) ContextUnit {
	return ContextUnit{
		GraphNode: GraphNode{
			ID:        m.UnitID(),
			Type:      unitType(m.Metadata),
			Content:   m.Content,
			Metadata:  MetadataFromMap(m.Metadata),
			Embedding: m.Embedding,
		},
		Score:  memory.CosineSimilarity(queryVec, m.Embedding),
		Origin: origin,
	}
}

func unitFromSearchResult(r SearchResult) ContextUnit {
	return ContextUnit{
		GraphNode: GraphNode{
			ID:        r.Source,
			Type:      unitType(r.Metadata),
			Content:   r.Content,
			Metadata:  MetadataFromMap(r.Metadata),
			Embedding: r.embedding,
		},
		Score:  r.RelevanceScore,
		Origin: OriginAgent,
	}
}

// unitType 取元数据中的节点类型，缺省为 TextChunk
func unitType(meta map[string]any) NodeType {
	if t := types.MetaString(meta, types.MetaType); t != "" {
		return NodeType(t)
	}
	return NodeTextChunk
}

func documentFilter(fileID string) func(types.Memory) bool {
	if fileID == "" {
		return func(types.Memory) bool { return true }
	}
	return func(m types.Memory) bool {
		return types.MetaString(m.Metadata, types.MetaDocumentID) == fileID
	}
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func retrievalFailed(stage string, cause error) error {
	return types.NewError(types.ErrRetrievalFailed, "retrieval failed: "+stage).
		WithCause(cause).
		WithHTTPStatus(statusFor(cause))
}

// asEmbeddingFailure 保证嵌入阶段的错误带有 EMBEDDING_FAILURE 码
func asEmbeddingFailure(err error) error {
	if types.IsErrorCode(err, types.ErrEmbeddingFailure) {
		return err
	}
	return types.NewError(types.ErrEmbeddingFailure, "embedding provider failed").
		WithCause(err).
		WithHTTPStatus(502).
		WithRetryable(types.IsRetryable(err))
}

func statusFor(cause error) int {
	if e, ok := types.AsError(cause); ok && e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return 500
}

func (c *Coordinator) observeRetrieval(status string, used bool, units int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRetrieval(status, used, units, time.Since(start))
	}
}

func (c *Coordinator) observeEscalation(reason, outcome string, n int) {
	if c.observer != nil {
		c.observer.ObserveEscalation(reason, outcome, n)
	}
}

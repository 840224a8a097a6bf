package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/docgraph/llm/embedding"
	"github.com/BaSui01/docgraph/memory"
	"github.com/BaSui01/docgraph/types"
)

// IngestConfig 入库配置
type IngestConfig struct {
	Chunk            ChunkConfig        `json:"chunk"`
	MaxChunks        int                `json:"max_chunks"`
	EmbedConcurrency int                `json:"embed_concurrency"`
	Builder          GraphBuilderConfig `json:"builder"`
}

// DefaultIngestConfig 返回默认入库配置
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		Chunk:            DefaultChunkConfig(),
		EmbedConcurrency: 8,
		Builder:          DefaultGraphBuilderConfig(),
	}
}

// IngestSummary 一次文档处理的统计
type IngestSummary struct {
	DocumentID  string `json:"documentId"`
	TotalPages  int    `json:"totalPages"`
	TotalChunks int    `json:"totalChunks"`
	TotalImages int    `json:"totalImages"`
	TotalNodes  int    `json:"totalNodes"`
	TotalEdges  int    `json:"totalEdges"`
}

// IngestObserver 接收入库观测数据
type IngestObserver interface {
	ObserveIngest(status string, nodes, edges int, d time.Duration)
}

// IngestOption 入库选项
type IngestOption func(*Ingestor)

// WithIngestRegistry 入库后把图注册到 registry
func WithIngestRegistry(r *GraphRegistry) IngestOption {
	return func(i *Ingestor) { i.registry = r }
}

// WithIngestObserver 设置观测者
func WithIngestObserver(o IngestObserver) IngestOption {
	return func(i *Ingestor) { i.observer = o }
}

// Ingestor 入库流水线：切分 → 构建图 → 并发嵌入全部节点 → 以图节点身份写入记忆存储
type Ingestor struct {
	store    memory.Store
	embedder embedding.Embedder
	builder  *GraphBuilder
	registry *GraphRegistry
	observer IngestObserver
	tracer   trace.Tracer
	config   IngestConfig
	logger   *zap.Logger
}

// NewIngestor 创建入库流水线
func NewIngestor(store memory.Store, embedder embedding.Embedder, config IngestConfig, logger *zap.Logger, opts ...IngestOption) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.EmbedConcurrency <= 0 {
		config.EmbedConcurrency = DefaultIngestConfig().EmbedConcurrency
	}
	if config.Chunk.Size <= 0 {
		config.Chunk = DefaultChunkConfig()
	}
	i := &Ingestor{
		store:    store,
		embedder: embedder,
		builder:  NewGraphBuilder(config.Builder, logger),
		tracer:   otel.Tracer(tracerName),
		config:   config,
		logger:   logger.With(zap.String("component", "ingestor")),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Process 处理一份文档分解结果。未提供 chunks 时由页面文本切分得到。
// 嵌入全部成功后才写入存储，嵌入失败时不写入任何节点。
func (i *Ingestor) Process(ctx context.Context, userID string, doc Decomposition) (*IngestSummary, error) {
	start := time.Now()

	if strings.TrimSpace(userID) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "user id is required").WithHTTPStatus(400)
	}
	if strings.TrimSpace(doc.DocumentID) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "document id is required").WithHTTPStatus(400)
	}

	ctx, span := i.tracer.Start(ctx, "rag.ingest",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("document.id", doc.DocumentID),
		))
	defer span.End()

	summary, err := i.process(ctx, userID, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		i.observe("error", 0, 0, start)
		i.logger.Error("document processing failed",
			zap.String("document_id", doc.DocumentID),
			zap.Error(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("graph.nodes", summary.TotalNodes),
		attribute.Int("graph.edges", summary.TotalEdges),
	)
	i.observe("success", summary.TotalNodes, summary.TotalEdges, start)
	i.logger.Info("document processed",
		zap.String("document_id", doc.DocumentID),
		zap.Int("pages", summary.TotalPages),
		zap.Int("chunks", summary.TotalChunks),
		zap.Int("nodes", summary.TotalNodes),
		zap.Int("edges", summary.TotalEdges),
		zap.Duration("duration", time.Since(start)))
	return summary, nil
}

func (i *Ingestor) process(ctx context.Context, userID string, doc Decomposition) (*IngestSummary, error) {
	chunks := doc.Chunks
	if len(chunks) == 0 {
		chunks = ChunkDocument(doc.Pages, i.config.Chunk)
	}
	if i.config.MaxChunks > 0 && len(chunks) > i.config.MaxChunks {
		i.logger.Warn("chunk count capped",
			zap.String("document_id", doc.DocumentID),
			zap.Int("chunks", len(chunks)),
			zap.Int("max_chunks", i.config.MaxChunks))
		chunks = chunks[:i.config.MaxChunks]
	}

	graph := i.builder.Build(doc.DocumentID, doc.Pages, chunks, doc.Images)

	if err := i.embedNodes(ctx, graph.Nodes); err != nil {
		return nil, err
	}

	for _, node := range graph.Nodes {
		meta := node.Metadata.ToMap()
		meta[types.MetaNodeType] = types.NodeTypeGraph
		meta[types.MetaNodeID] = node.ID
		meta[types.MetaType] = string(node.Type)
		if _, err := i.store.Upsert(ctx, userID, node.Content, node.Embedding, meta); err != nil {
			return nil, fmt.Errorf("store node %s: %w", node.ID, err)
		}
	}

	if i.registry != nil {
		i.registry.Put(doc.DocumentID, graph)
	}

	return &IngestSummary{
		DocumentID:  doc.DocumentID,
		TotalPages:  len(doc.Pages),
		TotalChunks: len(chunks),
		TotalImages: graph.CountByType(NodeImage),
		TotalNodes:  len(graph.Nodes),
		TotalEdges:  len(graph.Edges),
	}, nil
}

// embedNodes 以有界并发为每个节点生成嵌入，结果写回 nodes[i].Embedding
func (i *Ingestor) embedNodes(ctx context.Context, nodes []GraphNode) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(i.config.EmbedConcurrency)

	for idx := range nodes {
		eg.Go(func() error {
			vec, err := i.embedder.Embed(egCtx, nodes[idx].Content)
			if err != nil {
				return fmt.Errorf("embed node %s: %w", nodes[idx].ID, asEmbeddingFailure(err))
			}
			nodes[idx].Embedding = vec
			return nil
		})
	}
	return eg.Wait()
}

func (i *Ingestor) observe(status string, nodes, edges int, start time.Time) {
	if i.observer != nil {
		i.observer.ObserveIngest(status, nodes, edges, time.Since(start))
	}
}

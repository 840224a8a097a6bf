package rag

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// 判定图片与文本块视觉关联时比对的 OCR 前缀长度（字符）
	ocrPrefixChars = 20
	// 参与 references 计数的词元最小长度（不含）
	referenceTokenMinLen = 4
	// 共享词元数严格大于该值才建立 references 边
	referenceMinShared = 2
)

// GraphBuilderConfig 图构建配置
type GraphBuilderConfig struct {
	// ReferenceWorkers 两两比较文本块时的并发度，<=1 时串行
	ReferenceWorkers int `json:"reference_workers"`
}

// DefaultGraphBuilderConfig 返回默认图构建配置
func DefaultGraphBuilderConfig() GraphBuilderConfig {
	return GraphBuilderConfig{ReferenceWorkers: 4}
}

// GraphBuilder 从文档分解结果构建类型化知识图。
// 构建是纯函数：相同输入总是产生相同的节点、边及其顺序。
type GraphBuilder struct {
	config GraphBuilderConfig
	logger *zap.Logger
}

// NewGraphBuilder 创建图构建器
func NewGraphBuilder(config GraphBuilderConfig, logger *zap.Logger) *GraphBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphBuilder{
		config: config,
		logger: logger.With(zap.String("component", "graph_builder")),
	}
}

// BuildGraph 使用默认配置构建图
func BuildGraph(documentID string, pages []PageInput, chunks []string, images []ImageRef) Graph {
	return NewGraphBuilder(DefaultGraphBuilderConfig(), nil).Build(documentID, pages, chunks, images)
}

// Build 构建文档图：Document → Page → {TextChunk, Image}，外加 visual_of 与 references 边。
func (b *GraphBuilder) Build(documentID string, pages []PageInput, chunks []string, images []ImageRef) Graph {
	var g Graph
	docID := "doc-" + documentID

	g.Nodes = append(g.Nodes, GraphNode{
		ID:       docID,
		Type:     NodeDocument,
		Content:  "Document " + documentID,
		Metadata: NodeMetadata{DocumentID: documentID},
	})

	pageCount := len(pages)
	var chunkNodes []GraphNode

	for _, page := range pages {
		pageNo := page.PageNumber
		pageID := fmt.Sprintf("page-%s-%d", documentID, pageNo)

		g.Nodes = append(g.Nodes, GraphNode{
			ID:       pageID,
			Type:     NodePage,
			Content:  fmt.Sprintf("Page %d", pageNo),
			Metadata: NodeMetadata{DocumentID: documentID, PageNumber: intPtr(pageNo)},
		})
		g.Edges = append(g.Edges, GraphEdge{
			ID:     fmt.Sprintf("edge-doc-%s-page-%d", documentID, pageNo),
			Source: docID,
			Target: pageID,
			Type:   EdgeContains,
		})

		// 位置分配：第 idx 个块归属 idx mod P == pageNumber-1 的页
		var pageChunks []string
		for idx, chunk := range chunks {
			if idx%pageCount == pageNo-1 {
				pageChunks = append(pageChunks, chunk)
			}
		}

		for i, chunk := range pageChunks {
			node := GraphNode{
				ID:      fmt.Sprintf("chunk-%s-%d-%d", documentID, pageNo, i),
				Type:    NodeTextChunk,
				Content: chunk,
				Metadata: NodeMetadata{
					DocumentID: documentID,
					PageNumber: intPtr(pageNo),
					ChunkIndex: intPtr(i),
				},
			}
			g.Nodes = append(g.Nodes, node)
			g.Edges = append(g.Edges, GraphEdge{
				ID:     fmt.Sprintf("edge-page-%s-%d-chunk-%d", documentID, pageNo, i),
				Source: pageID,
				Target: node.ID,
				Type:   EdgeContains,
			})
			chunkNodes = append(chunkNodes, node)
		}

		for k, img := range pageImages(page, images) {
			imageID := img.ImageID
			if imageID == "" {
				imageID = fmt.Sprintf("%s-p%d-%d", documentID, pageNo, k)
			}
			node := GraphNode{
				ID:      "image-" + imageID,
				Type:    NodeImage,
				Content: img.OCRText,
				Metadata: NodeMetadata{
					DocumentID: documentID,
					PageNumber: intPtr(pageNo),
					ImageID:    imageID,
				},
			}
			g.Nodes = append(g.Nodes, node)
			g.Edges = append(g.Edges, GraphEdge{
				ID:     fmt.Sprintf("edge-page-%s-%d-image-%s", documentID, pageNo, imageID),
				Source: pageID,
				Target: node.ID,
				Type:   EdgeContains,
			})

			if img.OCRText == "" {
				continue
			}
			ocrPrefix := strings.ToLower(prefixRunes(img.OCRText, ocrPrefixChars))
			for i, chunk := range pageChunks {
				if strings.Contains(strings.ToLower(chunk), ocrPrefix) {
					g.Edges = append(g.Edges, GraphEdge{
						ID:     fmt.Sprintf("edge-image-%s-chunk-%d", imageID, i),
						Source: node.ID,
						Target: fmt.Sprintf("chunk-%s-%d-%d", documentID, pageNo, i),
						Type:   EdgeVisualOf,
					})
				}
			}
		}
	}

	g.Edges = append(g.Edges, b.referenceEdges(chunkNodes)...)

	b.logger.Debug("graph built",
		zap.String("document_id", documentID),
		zap.Int("pages", pageCount),
		zap.Int("chunks", len(chunkNodes)),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", len(g.Edges)))

	return g
}

// pageImages 合并页面自带图片与扁平列表中属于该页且未重复的图片
func pageImages(page PageInput, flat []ImageRef) []ImageRef {
	out := make([]ImageRef, 0, len(page.Images))
	seen := make(map[string]struct{}, len(page.Images))
	for _, img := range page.Images {
		out = append(out, img)
		if img.ImageID != "" {
			seen[img.ImageID] = struct{}{}
		}
	}
	for _, img := range flat {
		if img.PageNumber != page.PageNumber || img.ImageID == "" {
			continue
		}
		if _, dup := seen[img.ImageID]; dup {
			continue
		}
		seen[img.ImageID] = struct{}{}
		out = append(out, img)
	}
	return out
}

// referenceEdges 对所有有序文本块对计算共享词元，按 (i, j) 顺序输出。
// 每一行 i 由一个 worker 负责，结果按行拼接以保持确定性。
func (b *GraphBuilder) referenceEdges(chunks []GraphNode) []GraphEdge {
	if len(chunks) < 2 {
		return nil
	}

	tokens := make([]map[string]struct{}, len(chunks))
	for i, c := range chunks {
		tokens[i] = referenceTokens(c.Content)
	}

	rows := make([][]GraphEdge, len(chunks))
	scanRow := func(i int) {
		for j := range chunks {
			if i == j {
				continue
			}
			shared := sharedCount(tokens[i], tokens[j])
			if shared > referenceMinShared {
				rows[i] = append(rows[i], GraphEdge{
					ID:     fmt.Sprintf("edge-ref-%s-%s", chunks[i].ID, chunks[j].ID),
					Source: chunks[i].ID,
					Target: chunks[j].ID,
					Type:   EdgeReferences,
					Weight: float64(shared),
				})
			}
		}
	}

	workers := b.config.ReferenceWorkers
	if workers <= 1 {
		for i := range chunks {
			scanRow(i)
		}
	} else {
		eg, _ := errgroup.WithContext(context.Background())
		eg.SetLimit(workers)
		for i := range chunks {
			eg.Go(func() error {
				scanRow(i)
				return nil
			})
		}
		_ = eg.Wait()
	}

	var edges []GraphEdge
	for _, row := range rows {
		edges = append(edges, row...)
	}
	return edges
}

// referenceTokens 返回长度大于 4 的去重小写词元
func referenceTokens(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		if utf8.RuneCountInString(tok) > referenceTokenMinLen {
			out[tok] = struct{}{}
		}
	}
	return out
}

func sharedCount(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			n++
		}
	}
	return n
}

func prefixRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

package rag

import (
	"github.com/BaSui01/docgraph/types"
)

// NodeType 图节点类型
type NodeType string

const (
	NodeDocument  NodeType = "Document"
	NodePage      NodeType = "Page"
	NodeSection   NodeType = "Section"
	NodeTextChunk NodeType = "TextChunk"
	NodeImage     NodeType = "Image"
	NodeEntity    NodeType = "Entity"
)

// EdgeType 图边类型
type EdgeType string

const (
	EdgeContains   EdgeType = "contains"
	EdgeMentions   EdgeType = "mentions"
	EdgeVisualOf   EdgeType = "visual_of"
	EdgeReferences EdgeType = "references"
)

// NodeMetadata 是节点的结构化元数据，开放的附加信息放在 Extra。
type NodeMetadata struct {
	DocumentID string         `json:"documentId,omitempty"`
	PageNumber *int           `json:"pageNumber,omitempty"`
	ChunkIndex *int           `json:"chunkIndex,omitempty"`
	ImageID    string         `json:"imageId,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Page 返回页码，未设置时 ok 为 false
func (m NodeMetadata) Page() (int, bool) {
	if m.PageNumber == nil {
		return 0, false
	}
	return *m.PageNumber, true
}

// ToMap 展平为记忆存储使用的键值元数据
func (m NodeMetadata) ToMap() map[string]any {
	out := types.CloneMeta(m.Extra)
	if m.DocumentID != "" {
		out[types.MetaDocumentID] = m.DocumentID
	}
	if m.PageNumber != nil {
		out[types.MetaPageNumber] = *m.PageNumber
	}
	if m.ChunkIndex != nil {
		out[types.MetaChunkIndex] = *m.ChunkIndex
	}
	if m.ImageID != "" {
		out[types.MetaImageID] = m.ImageID
	}
	return out
}

// MetadataFromMap 从记忆元数据还原结构化字段，其余键保留在 Extra
func MetadataFromMap(meta map[string]any) NodeMetadata {
	out := NodeMetadata{
		DocumentID: types.MetaString(meta, types.MetaDocumentID),
		ImageID:    types.MetaString(meta, types.MetaImageID),
	}
	if n, ok := types.MetaInt(meta, types.MetaPageNumber); ok {
		out.PageNumber = intPtr(n)
	}
	if n, ok := types.MetaInt(meta, types.MetaChunkIndex); ok {
		out.ChunkIndex = intPtr(n)
	}
	for k, v := range meta {
		switch k {
		case types.MetaDocumentID, types.MetaImageID, types.MetaPageNumber, types.MetaChunkIndex:
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]any)
		}
		out.Extra[k] = v
	}
	return out
}

func intPtr(n int) *int { return &n }

// GraphNode 知识图中的节点
type GraphNode struct {
	ID        string       `json:"id"`
	Type      NodeType     `json:"type"`
	Content   string       `json:"content"`
	Metadata  NodeMetadata `json:"metadata"`
	Embedding []float64    `json:"embedding,omitempty"`
}

// GraphEdge 有向边。Weight 仅对 references 边有意义（共享词元数）。
type GraphEdge struct {
	ID     string   `json:"id"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Type   EdgeType `json:"type"`
	Weight float64  `json:"weight,omitempty"`
}

// Graph 一次文档处理产生的节点与边
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Node 按 ID 查找节点
func (g Graph) Node(id string) (GraphNode, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return GraphNode{}, false
}

// CountByType 统计各类型节点数量
func (g Graph) CountByType(t NodeType) int {
	n := 0
	for _, node := range g.Nodes {
		if node.Type == t {
			n++
		}
	}
	return n
}

// ImageRef 页面上的图片，OCRText 可能为空
type ImageRef struct {
	ImageID    string `json:"imageId"`
	PageNumber int    `json:"pageNumber,omitempty"`
	OCRText    string `json:"ocrText,omitempty"`
}

// PageInput 文档分解得到的单页
type PageInput struct {
	PageNumber int        `json:"pageNumber"`
	Text       string     `json:"text"`
	Images     []ImageRef `json:"images"`
}

// Decomposition 文档分解结果，是入库流程的输入
type Decomposition struct {
	DocumentID string      `json:"documentId"`
	Pages      []PageInput `json:"pages"`
	Chunks     []string    `json:"chunks,omitempty"`
	Images     []ImageRef  `json:"images,omitempty"`
}

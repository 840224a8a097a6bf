package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/BaSui01/docgraph/rag"
	"github.com/BaSui01/docgraph/types"
	"go.uber.org/zap"
)

// DefaultUserID 请求未携带用户时使用的分区
const DefaultUserID = "default-user"

// maxExpandDepth 限制 /expand 的遍历深度
const maxExpandDepth = 8

// DocumentProcessor 文档入库
type DocumentProcessor interface {
	Process(ctx context.Context, userID string, doc rag.Decomposition) (*rag.IngestSummary, error)
}

// GraphSource 按文档 ID 读取已构建的图
type GraphSource interface {
	Get(documentID string) (rag.Graph, bool)
}

// DocumentHandler 处理文档入库与图查询
type DocumentHandler struct {
	processor DocumentProcessor
	graphs    GraphSource
	logger    *zap.Logger
}

// NewDocumentHandler 创建文档处理器
func NewDocumentHandler(processor DocumentProcessor, graphs GraphSource, logger *zap.Logger) *DocumentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentHandler{
		processor: processor,
		graphs:    graphs,
		logger:    logger.With(zap.String("handler", "documents")),
	}
}

// ProcessRequest /api/process 请求体：已分解的文档
type ProcessRequest struct {
	UserID string `json:"userId,omitempty"`
	rag.Decomposition
}

// ProcessResponse /api/process 响应数据
type ProcessResponse struct {
	Summary *rag.IngestSummary `json:"summary"`
}

// HandleProcess 处理 POST /api/process
func (h *DocumentHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var req ProcessRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.DocumentID == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "documentId is required", h.logger)
		return
	}

	userID, err := resolveUserID(r, req.UserID)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	if userID == "" {
		userID = DefaultUserID
	}

	summary, err := h.processor.Process(r.Context(), userID, req.Decomposition)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	h.logger.Info("document processed",
		zap.String("document_id", summary.DocumentID),
		zap.Int("nodes", summary.TotalNodes),
		zap.Int("edges", summary.TotalEdges),
	)
	WriteSuccess(w, r, ProcessResponse{Summary: summary})
}

// HandleGetGraph 处理 GET /api/graph/{documentId}
func (h *DocumentHandler) HandleGetGraph(w http.ResponseWriter, r *http.Request) {
	graph, ok := h.lookup(w, r)
	if !ok {
		return
	}
	WriteSuccess(w, r, graph)
}

// ExpandResponse /expand 响应数据
type ExpandResponse struct {
	DocumentID string          `json:"documentId"`
	Depth      int             `json:"depth"`
	Nodes      []rag.GraphNode `json:"nodes"`
}

// HandleExpand 处理 GET /api/graph/{documentId}/expand?seed=...&depth=...
func (h *DocumentHandler) HandleExpand(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	seeds := q["seed"]
	if len(seeds) == 0 {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "at least one seed is required", h.logger)
		return
	}

	depth := 1
	if raw := q.Get("depth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxExpandDepth {
			WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest,
				"depth must be an integer between 0 and "+strconv.Itoa(maxExpandDepth), h.logger)
			return
		}
		depth = n
	}

	graph, ok := h.lookup(w, r)
	if !ok {
		return
	}

	nodes := rag.ExpandGraph(seeds, graph, depth)
	if nodes == nil {
		nodes = []rag.GraphNode{}
	}
	WriteSuccess(w, r, ExpandResponse{
		DocumentID: r.PathValue("documentId"),
		Depth:      depth,
		Nodes:      nodes,
	})
}

func (h *DocumentHandler) lookup(w http.ResponseWriter, r *http.Request) (rag.Graph, bool) {
	documentID := r.PathValue("documentId")
	if documentID == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "documentId is required", h.logger)
		return rag.Graph{}, false
	}
	if h.graphs == nil {
		WriteErrorMessage(w, r, http.StatusNotFound, types.ErrInvalidRequest, "graph registry is not enabled", h.logger)
		return rag.Graph{}, false
	}
	graph, ok := h.graphs.Get(documentID)
	if !ok {
		WriteErrorMessage(w, r, http.StatusNotFound, types.ErrInvalidRequest, "graph not found for document "+documentID, h.logger)
		return rag.Graph{}, false
	}
	return graph, true
}

package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/BaSui01/docgraph/memory"
	"github.com/BaSui01/docgraph/types"
	"go.uber.org/zap"
)

// MemoryHandler 暴露记忆存储的写入与画像读取
type MemoryHandler struct {
	store  memory.Store
	logger *zap.Logger
}

// NewMemoryHandler 创建记忆处理器
func NewMemoryHandler(store memory.Store, logger *zap.Logger) *MemoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryHandler{
		store:  store,
		logger: logger.With(zap.String("handler", "memories")),
	}
}

// UpsertMemoryRequest /api/memories 请求体。Embedding 可省略，省略时记忆不参与相似度检索。
type UpsertMemoryRequest struct {
	UserID    string         `json:"userId"`
	Content   string         `json:"content"`
	Embedding []float64      `json:"embedding,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// HandleUpsert 处理 POST /api/memories
func (h *MemoryHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var req UpsertMemoryRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	userID, err := resolveUserID(r, req.UserID)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	if userID == "" || strings.TrimSpace(req.Content) == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "userId and content are required", h.logger)
		return
	}
	if req.Metadata == nil {
		req.Metadata = map[string]any{}
	}

	m, err := h.store.Upsert(r.Context(), userID, req.Content, req.Embedding, req.Metadata)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, map[string]any{"memory": m})
}

// HandleProfile 处理 GET /api/profile?userId=...
func (h *MemoryHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := resolveUserID(r, r.URL.Query().Get("userId"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	if userID == "" {
		userID = DefaultUserID
	}

	profile, err := h.store.GetProfile(r.Context(), userID)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, map[string]any{"profile": profile})
}

// DocumentSummary /api/graph/{documentId}/summary 响应数据：
// 用户记忆中属于该文档的条目，按 type 计数
type DocumentSummary struct {
	DocumentID    string         `json:"documentId"`
	UserID        string         `json:"userId"`
	TotalMemories int            `json:"totalMemories"`
	Pages         int            `json:"pages"`
	ByType        map[string]int `json:"byType"`
	Summary       string         `json:"summary"`
}

// HandleDocumentSummary 处理 GET /api/graph/{documentId}/summary?userId=...
func (h *MemoryHandler) HandleDocumentSummary(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("documentId")
	if documentID == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "documentId is required", h.logger)
		return
	}
	userID, err := resolveUserID(r, r.URL.Query().Get("userId"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	if userID == "" {
		userID = DefaultUserID
	}

	profile, err := h.store.GetProfile(r.Context(), userID)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, summarizeDocument(documentID, userID, profile.Memories))
}

func summarizeDocument(documentID, userID string, memories []types.Memory) DocumentSummary {
	out := DocumentSummary{
		DocumentID: documentID,
		UserID:     userID,
		ByType:     map[string]int{},
	}
	pages := map[int]struct{}{}
	for _, m := range memories {
		if types.MetaString(m.Metadata, types.MetaDocumentID) != documentID {
			continue
		}
		out.TotalMemories++
		if t := types.MetaString(m.Metadata, types.MetaType); t != "" {
			out.ByType[t]++
		}
		if p, ok := types.MetaInt(m.Metadata, types.MetaPageNumber); ok {
			pages[p] = struct{}{}
		}
	}
	out.Pages = len(pages)
	out.Summary = fmt.Sprintf("Document contains %d memories across %d pages.", out.TotalMemories, out.Pages)
	return out
}

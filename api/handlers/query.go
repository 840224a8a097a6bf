package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/BaSui01/docgraph/rag"
	"github.com/BaSui01/docgraph/types"
	"go.uber.org/zap"
)

// Answerer 回答用户查询
type Answerer interface {
	Answer(ctx context.Context, userID, query, fileID string) (*rag.Answer, error)
}

// Retriever 只做检索，不生成答案
type Retriever interface {
	Retrieve(ctx context.Context, userID, query, fileID string) (*rag.RetrievalResult, error)
}

// QueryHandler 处理问答与检索请求
type QueryHandler struct {
	answerer  Answerer
	retriever Retriever
	logger    *zap.Logger
}

// NewQueryHandler 创建查询处理器
func NewQueryHandler(answerer Answerer, retriever Retriever, logger *zap.Logger) *QueryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryHandler{
		answerer:  answerer,
		retriever: retriever,
		logger:    logger.With(zap.String("handler", "query")),
	}
}

// QueryRequest /api/query 与 /api/retrieve 请求体
type QueryRequest struct {
	Query  string `json:"query"`
	UserID string `json:"userId,omitempty"`
	FileID string `json:"fileId,omitempty"`
}

func (h *QueryHandler) decode(w http.ResponseWriter, r *http.Request) (QueryRequest, string, bool) {
	if !ValidateContentType(w, r, h.logger) {
		return QueryRequest{}, "", false
	}
	var req QueryRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return QueryRequest{}, "", false
	}
	if strings.TrimSpace(req.Query) == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrRetrievalInputInvalid, "query is required", h.logger)
		return QueryRequest{}, "", false
	}
	userID, err := resolveUserID(r, req.UserID)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return QueryRequest{}, "", false
	}
	if userID == "" {
		userID = DefaultUserID
	}
	return req, userID, true
}

// HandleQuery 处理 POST /api/query：检索 + 生成答案
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	req, userID, ok := h.decode(w, r)
	if !ok {
		return
	}

	answer, err := h.answerer.Answer(r.Context(), userID, req.Query, req.FileID)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, answer)
}

// HandleRetrieve 处理 POST /api/retrieve：只返回上下文单元与出处
func (h *QueryHandler) HandleRetrieve(w http.ResponseWriter, r *http.Request) {
	if h.retriever == nil {
		WriteErrorMessage(w, r, http.StatusNotFound, types.ErrInvalidRequest, "retrieve endpoint is not enabled", h.logger)
		return
	}
	req, userID, ok := h.decode(w, r)
	if !ok {
		return
	}

	result, err := h.retriever.Retrieve(r.Context(), userID, req.Query, req.FileID)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, result)
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BaSui01/docgraph/rag"
	"github.com/BaSui01/docgraph/testutil/fixtures"
	"github.com/BaSui01/docgraph/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProcessor struct {
	gotUser string
	gotDoc  rag.Decomposition
	err     error
}

func (f *fakeProcessor) Process(_ context.Context, userID string, doc rag.Decomposition) (*rag.IngestSummary, error) {
	f.gotUser = userID
	f.gotDoc = doc
	if f.err != nil {
		return nil, f.err
	}
	return &rag.IngestSummary{
		DocumentID:  doc.DocumentID,
		TotalPages:  len(doc.Pages),
		TotalChunks: len(doc.Chunks),
		TotalNodes:  1 + len(doc.Pages) + len(doc.Chunks),
		TotalEdges:  len(doc.Pages) + len(doc.Chunks),
	}, nil
}

func newDocumentMux(h *DocumentHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/process", h.HandleProcess)
	mux.HandleFunc("GET /api/graph/{documentId}", h.HandleGetGraph)
	mux.HandleFunc("GET /api/graph/{documentId}/expand", h.HandleExpand)
	return mux
}

func jsonRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestDocumentHandler_Process(t *testing.T) {
	proc := &fakeProcessor{}
	mux := newDocumentMux(NewDocumentHandler(proc, nil, zap.NewNop()))

	body := `{"userId":"u1","documentId":"report","pages":[{"pageNumber":1,"text":"hello","images":[]}],"chunks":["hello"]}`
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/process", body))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", proc.gotUser)
	assert.Equal(t, "report", proc.gotDoc.DocumentID)
	require.Len(t, proc.gotDoc.Pages, 1)

	var resp struct {
		Success bool            `json:"success"`
		Data    ProcessResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Data.Summary.TotalNodes)
}

func TestDocumentHandler_Process_DefaultUser(t *testing.T) {
	proc := &fakeProcessor{}
	mux := newDocumentMux(NewDocumentHandler(proc, nil, nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/process", `{"documentId":"d","pages":[]}`))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, DefaultUserID, proc.gotUser)
}

func TestDocumentHandler_Process_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		procErr    error
		wantStatus int
		wantCode   string
	}{
		{"missing document id", `{"pages":[]}`, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown field", `{"documentId":"d","pdf":"x"}`, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"store down", `{"documentId":"d","pages":[]}`, types.NewError(types.ErrStoreUnavailable, "upsert failed"), http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{"embedding down", `{"documentId":"d","pages":[]}`, types.NewError(types.ErrEmbeddingFailure, "embed failed"), http.StatusBadGateway, "EMBEDDING_FAILURE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newDocumentMux(NewDocumentHandler(&fakeProcessor{err: tt.procErr}, nil, zap.NewNop()))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/process", tt.body))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeResponse(t, w).Error.Code)
		})
	}
}

func TestDocumentHandler_Process_RequiresJSON(t *testing.T) {
	mux := newDocumentMux(NewDocumentHandler(&fakeProcessor{}, nil, nil))
	r := httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func registryWithReport() *rag.GraphRegistry {
	reg := rag.NewGraphRegistry()
	reg.Put("report", fixtures.Graph(fixtures.TwoPageReport()))
	return reg
}

func TestDocumentHandler_GetGraph(t *testing.T) {
	mux := newDocumentMux(NewDocumentHandler(&fakeProcessor{}, registryWithReport(), nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/graph/report", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data rag.Graph `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Data.Nodes, 5) // doc + 2 pages + 2 chunks
	assert.Equal(t, "doc-report", resp.Data.Nodes[0].ID)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/graph/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_GetGraph_NoRegistry(t *testing.T) {
	mux := newDocumentMux(NewDocumentHandler(&fakeProcessor{}, nil, nil))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/graph/report", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_Expand(t *testing.T) {
	mux := newDocumentMux(NewDocumentHandler(&fakeProcessor{}, registryWithReport(), nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/graph/report/expand?seed=doc-report&depth=1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data ExpandResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "report", resp.Data.DocumentID)
	assert.Equal(t, 1, resp.Data.Depth)
	ids := make([]string, 0, len(resp.Data.Nodes))
	for _, n := range resp.Data.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"doc-report", "page-report-1", "page-report-2"}, ids)
}

func TestDocumentHandler_Expand_DepthZeroReturnsSeeds(t *testing.T) {
	mux := newDocumentMux(NewDocumentHandler(&fakeProcessor{}, registryWithReport(), nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/graph/report/expand?seed=page-report-2&depth=0", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data ExpandResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Data.Nodes, 1)
	assert.Equal(t, "page-report-2", resp.Data.Nodes[0].ID)
}

func TestDocumentHandler_Expand_BadInput(t *testing.T) {
	mux := newDocumentMux(NewDocumentHandler(&fakeProcessor{}, registryWithReport(), nil))

	for _, target := range []string{
		"/api/graph/report/expand",
		"/api/graph/report/expand?seed=doc-report&depth=-1",
		"/api/graph/report/expand?seed=doc-report&depth=abc",
		"/api/graph/report/expand?seed=doc-report&depth=99",
	} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

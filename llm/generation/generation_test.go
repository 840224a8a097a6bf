package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/docgraph/types"
)

func intPtr(n int) *int { return &n }

// --- ChatGenerator ---

func TestChatGenerator_Generate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(chatResponse{
			Model:   got.Model,
			Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: "Revenue grew 12%."}}},
		})
	}))
	defer srv.Close()

	g := NewChatGenerator(ChatConfig{BaseURL: srv.URL, APIKey: "secret", Model: "kimi", Temperature: 0.7, MaxTokens: 2000}, nil)
	answer, err := g.Generate(context.Background(), Request{Query: "revenue?", Prompt: "User Query: revenue?"})
	require.NoError(t, err)

	assert.Equal(t, "Revenue grew 12%.", answer)
	assert.Equal(t, "kimi", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, DefaultSystemPrompt, got.Messages[0].Content)
	assert.Equal(t, "User Query: revenue?", got.Messages[1].Content)
	assert.Equal(t, 2000, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
}

func TestChatGenerator_EmptyChoiceYieldsPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	answer, err := NewChatGenerator(ChatConfig{BaseURL: srv.URL}, nil).Generate(context.Background(), Request{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, NoResponse, answer)
}

func TestChatGenerator_HTTPErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		cause     types.ErrorCode
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, types.ErrUnauthorized, false},
		{"rate limited", http.StatusTooManyRequests, `slow down`, types.ErrRateLimited, true},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"bad","type":"invalid"}}`, types.ErrInvalidRequest, false},
		{"upstream", http.StatusServiceUnavailable, ``, types.ErrUpstreamError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewChatGenerator(ChatConfig{BaseURL: srv.URL}, nil).Generate(context.Background(), Request{Query: "q"})
			require.Error(t, err)
			assert.Equal(t, types.ErrGenerationFailure, types.GetErrorCode(err))
			assert.True(t, types.IsErrorCode(err, tt.cause))
			assert.Equal(t, tt.retryable, types.IsRetryable(err))
		})
	}
}

func TestReadErrorMessage(t *testing.T) {
	assert.Equal(t, "bad (type: invalid)", readErrorMessage([]byte(`{"error":{"message":"bad","type":"invalid"}}`)))
	assert.Equal(t, "plain", readErrorMessage([]byte(" plain \n")))
}

// --- ExtractiveGenerator ---

func TestExtractiveGenerator(t *testing.T) {
	g := NewExtractiveGenerator()
	answer, err := g.Generate(context.Background(), Request{
		Query: "revenue",
		Passages: []Passage{
			{Source: "chunk-d-1-0", Type: "TextChunk", Content: "Revenue grew", PageNumber: intPtr(1)},
			{Source: "image-x", Type: "Image", Content: "  "},
			{Source: "chunk-d-2-0", Type: "TextChunk", Content: strings.Repeat("x", 400)},
		},
	})
	require.NoError(t, err)

	lines := strings.Split(answer, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "1. Revenue grew [chunk-d-1-0, page 1]", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "2. "+strings.Repeat("x", 300)+"... [chunk-d-2-0"))
}

func TestExtractiveGenerator_NoContext(t *testing.T) {
	answer, err := NewExtractiveGenerator().Generate(context.Background(), Request{Query: "q"})
	require.NoError(t, err)
	assert.Contains(t, answer, "not available")
}

type recordingObserver struct {
	provider, status string
}

func (r *recordingObserver) ObserveGeneration(provider, status string, _ time.Duration) {
	r.provider, r.status = provider, status
}

func TestInstrument(t *testing.T) {
	g := NewExtractiveGenerator()
	assert.Same(t, g, Instrument(g, nil))

	obs := &recordingObserver{}
	_, err := Instrument(g, obs).Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "extractive", obs.provider)
	assert.Equal(t, "ok", obs.status)
}

package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/BaSui01/docgraph/types"
)

// OpenAIProvider 调用 OpenAI 兼容的 /v1/embeddings 接口.
type OpenAIProvider struct {
	*BaseProvider
	cfg OpenAIConfig
}

// NewOpenAIProvider 创建 OpenAI 嵌入提供者.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	def := DefaultOpenAIConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = def.Dimensions
	}
	if cfg.MaxBatch == 0 {
		cfg.MaxBatch = def.MaxBatch
	}

	return &OpenAIProvider{
		BaseProvider: NewBaseProvider(BaseConfig{
			Name:         "openai-embedding",
			BaseURL:      cfg.BaseURL,
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			Dimensions:   cfg.Dimensions,
			MaxBatch:     cfg.MaxBatch,
			Timeout:      cfg.Timeout,
			RateLimitRPS: cfg.RateLimitRPS,
		}),
		cfg: cfg,
	}
}

// Embed 嵌入单条文本
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch 按 MaxBatch 分批请求，结果顺序与输入一致
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += p.maxBatch {
		end := start + p.maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := p.embedOnce(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (p *OpenAIProvider) embedOnce(ctx context.Context, texts []string) ([][]float64, error) {
	body := EmbeddingRequest{
		Input:      texts,
		Model:      ChooseModel("", p.cfg.Model, "text-embedding-3-small"),
		Dimensions: p.cfg.Dimensions,
	}

	respBody, err := p.DoRequest(ctx, http.MethodPost, "/v1/embeddings", body, nil)
	if err != nil {
		return nil, embeddingFailure(p.Name(), err)
	}

	var resp EmbeddingResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, embeddingFailure(p.Name(), fmt.Errorf("decode response: %w", err))
	}
	if len(resp.Data) != len(texts) {
		return nil, embeddingFailure(p.Name(),
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	sort.SliceStable(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	vecs := make([][]float64, len(resp.Data))
	for i, d := range resp.Data {
		if p.cfg.Dimensions > 0 && len(d.Embedding) != p.cfg.Dimensions {
			return nil, embeddingFailure(p.Name(),
				fmt.Errorf("embedding %d has %d dimensions, want %d", i, len(d.Embedding), p.cfg.Dimensions))
		}
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

func embeddingFailure(provider string, cause error) error {
	e := types.NewError(types.ErrEmbeddingFailure, "embedding call failed").
		WithCause(cause).
		WithProvider(provider).
		WithHTTPStatus(http.StatusBadGateway)
	if types.IsRetryable(cause) {
		e.WithRetryable(true)
	}
	return e
}

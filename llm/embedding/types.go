// Package embedding 提供文本嵌入接口及其实现。
package embedding

import (
	"context"
	"time"
)

// Embedder 将文本映射为固定维度的向量。
// 同一会话内对相同输入必须返回相同向量。
type Embedder interface {
	// Embed 为单条文本生成嵌入。
	Embed(ctx context.Context, text string) ([]float64, error)

	// Dimensions 返回向量维度。
	Dimensions() int

	// Name 返回提供者名称，用于日志与指标。
	Name() string
}

// BatchEmbedder 由支持一次请求嵌入多条文本的提供者实现。
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// EmbeddingRequest 表示 OpenAI 兼容接口的嵌入请求.
type EmbeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// EmbeddingResponse 表示 OpenAI 兼容接口的嵌入响应.
type EmbeddingResponse struct {
	Object string          `json:"object"`
	Data   []EmbeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  EmbeddingUsage  `json:"usage"`
}

// EmbeddingData 表示单个嵌入结果.
type EmbeddingData struct {
	Object    string    `json:"object,omitempty"`
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingUsage 表示嵌入请求的 Token 用量.
type EmbeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Observer 接收每次嵌入调用的耗时与结果，由 internal/metrics.Collector 实现。
type Observer interface {
	ObserveEmbedding(provider, status string, d time.Duration)
}

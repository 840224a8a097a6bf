package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/docgraph/types"
)

// ChatConfig OpenAI 兼容聊天接口配置
type ChatConfig struct {
	ProviderName string        `json:"provider_name"`
	BaseURL      string        `json:"base_url"`
	APIKey       string        `json:"api_key"`
	Model        string        `json:"model"`
	Temperature  float64       `json:"temperature"`
	MaxTokens    int           `json:"max_tokens"`
	Timeout      time.Duration `json:"timeout"`
	EndpointPath string        `json:"endpoint_path"`
}

// DefaultChatConfig 返回默认聊天配置
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		ProviderName: "openai",
		BaseURL:      "https://api.groq.com/openai",
		Model:        "moonshotai/kimi-k2-instruct",
		Temperature:  0.7,
		MaxTokens:    2000,
		Timeout:      2 * time.Minute,
		EndpointPath: "/v1/chat/completions",
	}
}

// ChatGenerator 调用 OpenAI 兼容 /v1/chat/completions 生成答案
type ChatGenerator struct {
	cfg    ChatConfig
	client *http.Client
	logger *zap.Logger
}

// NewChatGenerator 创建聊天生成器
func NewChatGenerator(cfg ChatConfig, logger *zap.Logger) *ChatGenerator {
	def := DefaultChatConfig()
	if cfg.ProviderName == "" {
		cfg.ProviderName = def.ProviderName
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = def.EndpointPath
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatGenerator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "chat_generator")),
	}
}

// Name 返回提供者名称
func (g *ChatGenerator) Name() string { return g.cfg.ProviderName }

// Generate 发送系统提示与用户提示，返回首个候选的内容
func (g *ChatGenerator) Generate(ctx context.Context, req Request) (string, error) {
	system := req.System
	if system == "" {
		system = DefaultSystemPrompt
	}
	prompt := req.Prompt
	if prompt == "" {
		prompt = req.Query
	}

	body := chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimRight(g.cfg.BaseURL, "/") + g.cfg.EndpointPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", g.failure(types.NewError(types.ErrUpstreamError, "chat completion request failed").
			WithCause(err).
			WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(true).
			WithProvider(g.Name()))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", g.failure(mapHTTPError(resp.StatusCode, readErrorMessage(respBody), g.Name()))
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", g.failure(types.NewError(types.ErrUpstreamError, "invalid chat completion response").
			WithCause(err).
			WithProvider(g.Name()))
	}

	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		g.logger.Warn("empty completion", zap.String("model", out.Model))
		return NoResponse, nil
	}
	return out.Choices[0].Message.Content, nil
}

// failure 把上游错误包装为 GENERATION_FAILURE，保留原始错误与可重试标记
func (g *ChatGenerator) failure(cause *types.Error) error {
	return types.NewError(types.ErrGenerationFailure, "answer generation failed").
		WithCause(cause).
		WithHTTPStatus(http.StatusBadGateway).
		WithRetryable(cause.Retryable).
		WithProvider(g.Name())
}

func mapHTTPError(status int, msg, provider string) *types.Error {
	code := types.ErrUpstreamError
	retryable := status >= 500

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = types.ErrUnauthorized
	case http.StatusTooManyRequests:
		code = types.ErrRateLimited
		retryable = true
	case http.StatusBadRequest:
		code = types.ErrInvalidRequest
	}

	return types.NewError(code, msg).
		WithHTTPStatus(status).
		WithRetryable(retryable).
		WithProvider(provider)
}

// readErrorMessage 优先解析 JSON 错误体，失败则回退到原始文本
func readErrorMessage(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error.Message != "" {
		if resp.Error.Type != "" {
			return fmt.Sprintf("%s (type: %s)", resp.Error.Message, resp.Error.Type)
		}
		return resp.Error.Message
	}
	return strings.TrimSpace(string(body))
}

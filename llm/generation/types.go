package generation

import (
	"context"
	"time"
)

// DefaultSystemPrompt 默认系统提示词
const DefaultSystemPrompt = "You are a helpful assistant that answers questions based on the provided context from PDF documents. Always cite your sources using the provenance information provided."

// NoResponse 生成结果为空时返回的占位答案
const NoResponse = "No response generated"

// Passage 交给生成器的一段上下文
type Passage struct {
	Source     string `json:"source"`
	Type       string `json:"type"`
	Content    string `json:"content"`
	PageNumber *int   `json:"pageNumber,omitempty"`
}

// Request 生成请求。Prompt 为已组装好的文本提示，Passages 与 ProfileMemories
// 供不走提示词的实现（如抽取式生成）直接使用。
type Request struct {
	Query           string    `json:"query"`
	System          string    `json:"system,omitempty"`
	Prompt          string    `json:"prompt"`
	ProfileMemories []string  `json:"profileMemories,omitempty"`
	Passages        []Passage `json:"passages,omitempty"`
}

// Generator 根据查询与检索上下文生成答案
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// Observer 接收每次生成调用的耗时与结果
type Observer interface {
	ObserveGeneration(provider, status string, d time.Duration)
}

// chatMessage OpenAI 兼容消息
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest OpenAI 兼容的聊天完成请求
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	FinishReason string      `json:"finish_reason"`
	Message      chatMessage `json:"message"`
}

// chatResponse OpenAI 兼容的聊天完成响应
type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

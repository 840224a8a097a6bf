// =============================================================================
// 🎭 Mock 答案生成器
// =============================================================================
// 实现 generation.Generator，支持 Builder 模式配置答案与错误，
// 并记录每次收到的请求
//
// 使用方法:
//
//	gen := mocks.NewMockGenerator().WithAnswer("ok")
//	svc := rag.NewQueryService(coord, gen, store, limits, nil)
//	req := gen.LastRequest()
// =============================================================================
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/docgraph/llm/generation"
)

// MockGenerator 可配置的 generation.Generator
type MockGenerator struct {
	mu       sync.Mutex
	name     string
	answer   string
	err      error
	fn       func(generation.Request) (string, error)
	requests []generation.Request
}

// NewMockGenerator 创建 Mock 生成器，默认返回空答案
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{name: "mock"}
}

// WithName 设置提供者名称
func (m *MockGenerator) WithName(name string) *MockGenerator {
	m.name = name
	return m
}

// WithAnswer 设置固定答案
func (m *MockGenerator) WithAnswer(answer string) *MockGenerator {
	m.answer = answer
	return m
}

// WithError 设置固定错误
func (m *MockGenerator) WithError(err error) *MockGenerator {
	m.err = err
	return m
}

// WithFunc 按请求动态生成答案，优先于 WithAnswer/WithError
func (m *MockGenerator) WithFunc(fn func(generation.Request) (string, error)) *MockGenerator {
	m.fn = fn
	return m
}

// Name 实现 generation.Generator
func (m *MockGenerator) Name() string { return m.name }

// Generate 实现 generation.Generator
func (m *MockGenerator) Generate(ctx context.Context, req generation.Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	fn, answer, err := m.fn, m.answer, m.err
	m.mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if fn != nil {
		return fn(req)
	}
	return answer, err
}

// Calls 返回调用次数
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest 返回最近一次请求，未调用时返回零值
func (m *MockGenerator) LastRequest() generation.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return generation.Request{}
	}
	return m.requests[len(m.requests)-1]
}

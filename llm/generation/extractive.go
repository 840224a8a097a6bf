package generation

import (
	"context"
	"fmt"
	"strings"
)

// ExtractiveGenerator 离线生成器：不调用模型，直接引用排名靠前的上下文片段
type ExtractiveGenerator struct {
	// MaxPassages 引用的片段数
	MaxPassages int
	// MaxChars 每个片段保留的字符数
	MaxChars int
}

// NewExtractiveGenerator 创建抽取式生成器
func NewExtractiveGenerator() *ExtractiveGenerator {
	return &ExtractiveGenerator{MaxPassages: 3, MaxChars: 300}
}

// Name 返回提供者名称
func (g *ExtractiveGenerator) Name() string { return "extractive" }

// Generate 按顺序拼接前几个非空片段并标注来源
func (g *ExtractiveGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	n := 0
	for _, p := range req.Passages {
		if n >= g.MaxPassages {
			break
		}
		content := strings.TrimSpace(p.Content)
		if content == "" {
			continue
		}
		n++
		if n == 1 {
			b.WriteString("Based on the retrieved context:\n")
		}
		fmt.Fprintf(&b, "%d. %s [%s", n, truncateRunes(content, g.MaxChars), p.Source)
		if p.PageNumber != nil {
			fmt.Fprintf(&b, ", page %d", *p.PageNumber)
		}
		b.WriteString("]\n")
	}

	if n == 0 {
		return "The information is not available in the provided context.", nil
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

package rag

import (
	"fmt"
	"strings"

	"github.com/BaSui01/docgraph/llm/generation"
	"github.com/BaSui01/docgraph/types"
)

// PromptLimits 提示词组装时的上限
type PromptLimits struct {
	MaxUnits           int `json:"max_units"`
	MaxProfileMemories int `json:"max_profile_memories"`
	MaxUnitChars       int `json:"max_unit_chars"`
}

// DefaultPromptLimits 返回默认上限：10 个单元、5 条画像记忆、每单元 500 字符
func DefaultPromptLimits() PromptLimits {
	return PromptLimits{MaxUnits: 10, MaxProfileMemories: 5, MaxUnitChars: 500}
}

// BuildPrompt 组装文本提示：查询、用户画像、文档上下文、来源列表与结尾指令。
// 超过 MaxUnitChars 的单元内容被截断并追加 "..."。
func BuildPrompt(query string, profile []types.Memory, units []ContextUnit, provenance []ProvenanceRecord, limits PromptLimits) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User Query: %s\n\n", query)

	if len(profile) > 0 {
		b.WriteString("User Profile Context:\n")
		for i, m := range capSlice(profile, limits.MaxProfileMemories) {
			fmt.Fprintf(&b, "%d. %s\n", i+1, m.Content)
		}
		b.WriteString("\n")
	}

	units = capSlice(units, limits.MaxUnits)
	if len(units) > 0 {
		b.WriteString("Relevant Document Context:\n")
		for _, u := range units {
			fmt.Fprintf(&b, "[%s] %s\n", u.Type, truncateContent(u.Content, limits.MaxUnitChars))
			if p, ok := u.Metadata.Page(); ok && p != 0 {
				fmt.Fprintf(&b, "  (Page %d)\n", p)
			}
			b.WriteString("\n")
		}
	}

	if len(provenance) > 0 {
		b.WriteString("Sources:\n")
		for i, rec := range provenance {
			fmt.Fprintf(&b, "%d. %s", i+1, rec.Type)
			if rec.PageNumber != nil && *rec.PageNumber != 0 {
				fmt.Fprintf(&b, " (Page %d)", *rec.PageNumber)
			}
			fmt.Fprintf(&b, " - %s\n", rec.Source)
		}
	}

	b.WriteString("\nPlease answer the user's query based on the context provided above. If the information is not available in the context, say so clearly.")
	return b.String()
}

// BuildGenerationRequest 按上限裁剪画像与单元并生成请求
func BuildGenerationRequest(query string, profile []types.Memory, units []ContextUnit, provenance []ProvenanceRecord, limits PromptLimits) generation.Request {
	profile = capSlice(profile, limits.MaxProfileMemories)
	units = capSlice(units, limits.MaxUnits)
	provenance = capSlice(provenance, limits.MaxUnits)

	memories := make([]string, 0, len(profile))
	for _, m := range profile {
		memories = append(memories, m.Content)
	}

	passages := make([]generation.Passage, 0, len(units))
	for _, u := range units {
		passages = append(passages, generation.Passage{
			Source:     u.ID,
			Type:       string(u.Type),
			Content:    u.Content,
			PageNumber: u.Metadata.PageNumber,
		})
	}

	return generation.Request{
		Query:           query,
		System:          generation.DefaultSystemPrompt,
		Prompt:          BuildPrompt(query, profile, units, provenance, limits),
		ProfileMemories: memories,
		Passages:        passages,
	}
}

// ProfileContext 过滤出非图节点记忆作为画像上下文
func ProfileContext(profile types.UserProfile, limit int) []types.Memory {
	var out []types.Memory
	for _, m := range profile.Memories {
		if limit > 0 && len(out) >= limit {
			break
		}
		if m.IsGraphDerived() {
			continue
		}
		out = append(out, m)
	}
	return out
}

func truncateContent(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func capSlice[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

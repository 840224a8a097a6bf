package rag

import (
	"strings"
)

// Decision 升级判定结果
type Decision struct {
	Escalate bool   `json:"escalate"`
	Reason   string `json:"reason"`
}

// 判定原因
const (
	ReasonInterrogative = "interrogative"
	ReasonLongQuery     = "long_query"
	ReasonFewResults    = "few_primary_results"
	ReasonNone          = "none"
)

// EscalationPolicy 决定主检索之后是否运行搜索代理补充检索。
// 判定为否不是错误。
type EscalationPolicy interface {
	Decide(query string, primaryCount int) Decision
}

// HeuristicPolicy 基于疑问词、查询长度与主检索结果数的启发式策略
type HeuristicPolicy struct {
	// QuestionWords 大小写不敏感的子串匹配
	QuestionWords []string
	// MaxTokens 词元数超过该值即升级
	MaxTokens int
	// MinPrimary 主检索结果少于该值即升级
	MinPrimary int
}

// DefaultHeuristicPolicy 返回默认启发式策略
func DefaultHeuristicPolicy() HeuristicPolicy {
	return HeuristicPolicy{
		QuestionWords: []string{"what", "who", "where", "when", "why", "how", "which"},
		MaxTokens:     5,
		MinPrimary:    3,
	}
}

// Decide 实现 EscalationPolicy
func (p HeuristicPolicy) Decide(query string, primaryCount int) Decision {
	lower := strings.ToLower(query)
	for _, w := range p.QuestionWords {
		if strings.Contains(lower, w) {
			return Decision{Escalate: true, Reason: ReasonInterrogative}
		}
	}
	if len(strings.Fields(query)) > p.MaxTokens {
		return Decision{Escalate: true, Reason: ReasonLongQuery}
	}
	if primaryCount < p.MinPrimary {
		return Decision{Escalate: true, Reason: ReasonFewResults}
	}
	return Decision{Escalate: false, Reason: ReasonNone}
}

// PolicyFunc 将普通函数适配为 EscalationPolicy
type PolicyFunc func(query string, primaryCount int) Decision

// Decide 实现 EscalationPolicy
func (f PolicyFunc) Decide(query string, primaryCount int) Decision {
	return f(query, primaryCount)
}

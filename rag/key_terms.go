package rag

import (
	"strings"
	"unicode/utf8"
)

var stopWords = func() map[string]struct{} {
	words := []string{
		"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by",
		"from", "as", "is", "was", "are", "were", "be", "been", "being", "have", "has", "had",
		"do", "does", "did", "will", "would", "should", "could", "may", "might", "must", "can",
		"this", "that", "these", "those", "what", "which", "who", "whom", "whose", "where",
		"when", "why", "how", "about", "into", "through", "during", "before", "after", "above",
		"below", "up", "down", "out", "off", "over", "under", "again", "further", "then", "once",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// KeyTermIterator 按查询顺序惰性产出关键词，最多 limit 个。
// 调用方在结果足够时停止拉取，后续词元不会被处理。
type KeyTermIterator struct {
	tokens  []string
	pos     int
	emitted int
	limit   int
}

// NewKeyTermIterator 创建关键词迭代器
func NewKeyTermIterator(query string, limit int) *KeyTermIterator {
	return &KeyTermIterator{
		tokens: strings.Fields(strings.ToLower(query)),
		limit:  limit,
	}
}

// Next 返回下一个关键词；耗尽时 ok 为 false
func (it *KeyTermIterator) Next() (term string, ok bool) {
	for it.emitted < it.limit && it.pos < len(it.tokens) {
		tok := it.tokens[it.pos]
		it.pos++
		if utf8.RuneCountInString(tok) <= 3 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		it.emitted++
		return tok, true
	}
	return "", false
}

// ExtractKeyTerms 一次性取出全部关键词
func ExtractKeyTerms(query string, limit int) []string {
	it := NewKeyTermIterator(query, limit)
	var out []string
	for term, ok := it.Next(); ok; term, ok = it.Next() {
		out = append(out, term)
	}
	return out
}

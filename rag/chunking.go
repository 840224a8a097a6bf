package rag

import "strings"

// ChunkConfig 字符窗口分块配置
type ChunkConfig struct {
	Size    int `json:"size"`
	Overlap int `json:"overlap"`
}

// DefaultChunkConfig 返回默认分块配置：1000 字符窗口，200 字符重叠
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{Size: 1000, Overlap: 200}
}

// ChunkText 以固定字符窗口切分文本，相邻窗口重叠 overlap 个字符。
// 每块去除首尾空白，空块被丢弃。窗口到达文本末尾即结束。
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkConfig().Size
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
		start = end - overlap
	}
	return chunks
}

// ChunkDocument 将各页文本以空行连接成全文后切分
func ChunkDocument(pages []PageInput, cfg ChunkConfig) []string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p.Text)
		b.WriteString("\n\n")
	}
	return ChunkText(strings.TrimSpace(b.String()), cfg.Size, cfg.Overlap)
}

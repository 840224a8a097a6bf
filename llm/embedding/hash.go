package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashEmbedder 是确定性的离线嵌入器。
// 每个小写词元经 FNV-64a 取种子，用 LCG 展开为伪随机方向向量并累加，最后归一化。
// 共享词元越多的文本余弦相似度越高，适合测试与无外部依赖的部署。
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder 创建哈希嵌入器，dimensions <= 0 时取 384
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Name 返回提供者名称
func (h *HashEmbedder) Name() string { return "hash" }

// Dimensions 返回向量维度
func (h *HashEmbedder) Dimensions() int { return h.dimensions }

// Embed 生成确定性嵌入。没有词元的文本返回零向量。
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, h.dimensions)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?\"'()[]{}")
		if token == "" {
			continue
		}
		addTokenDirection(vec, token)
	}

	return normalize(vec), nil
}

// EmbedBatch 逐条嵌入
func (h *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := h.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func addTokenDirection(vec []float64, token string) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(token))
	seed := f.Sum64()

	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] += float64(int64(seed)) / float64(math.MaxInt64)
	}
}

func normalize(vec []float64) []float64 {
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

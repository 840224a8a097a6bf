package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/docgraph/types"
)

// Store 是按用户分区的记忆存储。
//
// 所有实现必须满足相同契约：Upsert 总是追加新条目（不做去重），
// GetProfile 对未知用户返回空列表而不是错误，
// SearchBySimilarity 只考虑带嵌入的记忆，按余弦相似度降序返回至多 limit 条，
// 分数相同时保持插入顺序。
type Store interface {
	// Upsert 分配新 ID、打上时间戳并追加到用户的记忆日志。
	Upsert(ctx context.Context, userID, content string, embedding []float64, metadata map[string]any) (types.Memory, error)

	// GetProfile 返回用户全部记忆组成的画像视图。
	GetProfile(ctx context.Context, userID string) (types.UserProfile, error)

	// SearchBySimilarity 返回与 query 最相似的至多 limit 条记忆。
	SearchBySimilarity(ctx context.Context, userID string, query []float64, limit int) ([]types.Memory, error)
}

// Pinger 由带外部依赖的存储实现，用于健康检查。
type Pinger interface {
	Ping(ctx context.Context) error
}

// CosineSimilarity 计算 dot(a,b) / (|a|*|b|)。
// 长度不同、为空或任一向量范数为零时返回 0。
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

type scored struct {
	memory types.Memory
	score  float64
}

// rankBySimilarity 对按插入顺序排列的 memories 打分并取前 limit 条。
// 使用稳定排序，分数相同的条目保持插入顺序。
func rankBySimilarity(memories []types.Memory, query []float64, limit int) []types.Memory {
	if limit <= 0 {
		return []types.Memory{}
	}

	candidates := make([]scored, 0, len(memories))
	for _, m := range memories {
		if len(m.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, scored{memory: m, score: CosineSimilarity(query, m.Embedding)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}

	out := make([]types.Memory, limit)
	for i := 0; i < limit; i++ {
		out[i] = candidates[i].memory
	}
	return out
}

// newMemory 构造一条新记忆，复制调用方传入的切片和 map。
func newMemory(userID, content string, embedding []float64, metadata map[string]any, now time.Time) types.Memory {
	var emb []float64
	if len(embedding) > 0 {
		emb = append([]float64(nil), embedding...)
	}
	return types.Memory{
		ID:        "mem-" + uuid.NewString(),
		UserID:    userID,
		Content:   content,
		Embedding: emb,
		Metadata:  types.CloneMeta(metadata),
		Timestamp: now,
	}
}

// buildProfile 将记忆列表物化为画像视图。
func buildProfile(userID string, memories []types.Memory, now time.Time) types.UserProfile {
	lastUpdated := now
	if n := len(memories); n > 0 {
		lastUpdated = memories[n-1].Timestamp
	}
	if memories == nil {
		memories = []types.Memory{}
	}
	return types.UserProfile{
		UserID:      userID,
		Memories:    memories,
		Preferences: map[string]any{},
		LastUpdated: lastUpdated,
	}
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return types.NewError(types.ErrInvalidRequest, "user id is required").WithHTTPStatus(400)
	}
	return nil
}

func storeUnavailable(op string, err error) error {
	return types.NewError(types.ErrStoreUnavailable, op).
		WithCause(err).
		WithHTTPStatus(503).
		WithRetryable(true)
}

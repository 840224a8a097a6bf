package memory

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/docgraph/types"
)

// ListClient 是 RedisStore 依赖的追加列表能力，由 internal/cache.Manager 实现。
type ListClient interface {
	AppendJSON(ctx context.Context, key string, value any) error
	ListAll(ctx context.Context, key string) ([]string, error)
	Ping(ctx context.Context) error
}

// RedisStore 将每个用户的记忆保存为一个 Redis 列表。
// RPUSH 是原子的，同一用户的并发写入不会丢失；检索在客户端做全量余弦打分。
type RedisStore struct {
	client ListClient
	prefix string
	now    func() time.Time
	logger *zap.Logger
}

// NewRedisStore 创建 Redis 记忆存储
func NewRedisStore(client ListClient, keyPrefix string, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if keyPrefix == "" {
		keyPrefix = "docgraph:mem"
	}
	return &RedisStore{
		client: client,
		prefix: keyPrefix,
		now:    time.Now,
		logger: logger.With(zap.String("component", "memory_store_redis")),
	}
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + ":" + userID
}

// Upsert 追加一条新记忆
func (s *RedisStore) Upsert(ctx context.Context, userID, content string, embedding []float64, metadata map[string]any) (types.Memory, error) {
	if err := validateUserID(userID); err != nil {
		return types.Memory{}, err
	}

	m := newMemory(userID, content, embedding, metadata, s.now())
	if err := s.client.AppendJSON(ctx, s.key(userID), m); err != nil {
		return types.Memory{}, storeUnavailable("append memory", err)
	}
	return m, nil
}

// load 按插入顺序读取用户的全部记忆，跳过无法解析的条目
func (s *RedisStore) load(ctx context.Context, userID string) ([]types.Memory, error) {
	raw, err := s.client.ListAll(ctx, s.key(userID))
	if err != nil {
		return nil, storeUnavailable("load memories", err)
	}

	out := make([]types.Memory, 0, len(raw))
	for i, item := range raw {
		var m types.Memory
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			s.logger.Warn("skipping undecodable memory",
				zap.String("user_id", userID),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// GetProfile 返回用户画像
func (s *RedisStore) GetProfile(ctx context.Context, userID string) (types.UserProfile, error) {
	mems, err := s.load(ctx, userID)
	if err != nil {
		return types.UserProfile{}, err
	}
	return buildProfile(userID, mems, s.now()), nil
}

// SearchBySimilarity 余弦相似度检索
func (s *RedisStore) SearchBySimilarity(ctx context.Context, userID string, query []float64, limit int) ([]types.Memory, error) {
	mems, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rankBySimilarity(mems, query, limit), nil
}

// Ping 检查 Redis 连接
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

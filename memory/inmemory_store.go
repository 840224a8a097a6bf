package memory

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/docgraph/types"
)

// InMemoryStoreConfig 内存存储配置
type InMemoryStoreConfig struct {
	// Shards 用户分片数，<= 0 时取 32
	Shards int

	// Now 用于测试，默认 time.Now
	Now func() time.Time
}

type userLog struct {
	mu       sync.RWMutex
	memories []types.Memory
}

type shard struct {
	mu    sync.RWMutex
	users map[string]*userLog
}

// InMemoryStore 是进程内的记忆存储。
// 用户按哈希分到不同分片，不同用户的写入互不竞争；同一用户的写入由该用户日志的锁串行化。
type InMemoryStore struct {
	shards []*shard
	now    func() time.Time
	logger *zap.Logger
}

// NewInMemoryStore 创建内存存储
func NewInMemoryStore(config InMemoryStoreConfig, logger *zap.Logger) *InMemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := config.Shards
	if n <= 0 {
		n = 32
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{users: make(map[string]*userLog)}
	}

	return &InMemoryStore{
		shards: shards,
		now:    now,
		logger: logger.With(zap.String("component", "memory_store_inmemory")),
	}
}

func (s *InMemoryStore) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// lookup 返回用户日志，create 为 true 时不存在则创建
func (s *InMemoryStore) lookup(userID string, create bool) *userLog {
	sh := s.shardFor(userID)

	sh.mu.RLock()
	log, ok := sh.users[userID]
	sh.mu.RUnlock()
	if ok || !create {
		return log
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if log, ok = sh.users[userID]; !ok {
		log = &userLog{}
		sh.users[userID] = log
	}
	return log
}

// snapshot 返回用户当前记忆的只读视图。
// 记忆追加后不再修改，因此共享底层元素是安全的。
func (s *InMemoryStore) snapshot(userID string) []types.Memory {
	log := s.lookup(userID, false)
	if log == nil {
		return nil
	}
	log.mu.RLock()
	defer log.mu.RUnlock()
	return log.memories[:len(log.memories):len(log.memories)]
}

// Upsert 追加一条新记忆
func (s *InMemoryStore) Upsert(ctx context.Context, userID, content string, embedding []float64, metadata map[string]any) (types.Memory, error) {
	if err := ctx.Err(); err != nil {
		return types.Memory{}, err
	}
	if err := validateUserID(userID); err != nil {
		return types.Memory{}, err
	}

	m := newMemory(userID, content, embedding, metadata, s.now())

	log := s.lookup(userID, true)
	log.mu.Lock()
	log.memories = append(log.memories, m)
	log.mu.Unlock()

	return m, nil
}

// GetProfile 返回用户画像，未知用户返回空画像
func (s *InMemoryStore) GetProfile(ctx context.Context, userID string) (types.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return types.UserProfile{}, err
	}
	mems := s.snapshot(userID)
	out := make([]types.Memory, len(mems))
	copy(out, mems)
	return buildProfile(userID, out, s.now()), nil
}

// SearchBySimilarity 余弦相似度检索
func (s *InMemoryStore) SearchBySimilarity(ctx context.Context, userID string, query []float64, limit int) ([]types.Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rankBySimilarity(s.snapshot(userID), query, limit), nil
}

// Len 返回用户的记忆条数
func (s *InMemoryStore) Len(userID string) int {
	return len(s.snapshot(userID))
}

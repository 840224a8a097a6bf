package memory

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/docgraph/internal/database"
	"github.com/BaSui01/docgraph/types"
)

// memoryRecord 是 memories 表的行结构。
// Seq 自增主键记录插入顺序，用作相似度相同时的次序。
type memoryRecord struct {
	Seq          uint64         `gorm:"primaryKey;autoIncrement"`
	ID           string         `gorm:"size:64;uniqueIndex;not null"`
	UserID       string         `gorm:"size:255;index;not null"`
	Content      string         `gorm:"type:text"`
	Embedding    []float64      `gorm:"serializer:json"`
	HasEmbedding bool           `gorm:"index"`
	Metadata     map[string]any `gorm:"serializer:json"`
	CreatedAt    time.Time
}

// TableName 指定表名
func (memoryRecord) TableName() string {
	return "memories"
}

func (r memoryRecord) toMemory() types.Memory {
	meta := r.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return types.Memory{
		ID:        r.ID,
		UserID:    r.UserID,
		Content:   r.Content,
		Embedding: r.Embedding,
		Metadata:  meta,
		Timestamp: r.CreatedAt,
	}
}

// SQLStore 基于 GORM 的记忆存储，支持 sqlite 与 postgres。
type SQLStore struct {
	pool       *database.PoolManager
	maxRetries int
	now        func() time.Time
	logger     *zap.Logger
}

// NewSQLStore 创建 SQL 记忆存储
func NewSQLStore(pool *database.PoolManager, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{
		pool:       pool,
		maxRetries: 3,
		now:        time.Now,
		logger:     logger.With(zap.String("component", "memory_store_sql")),
	}
}

// AutoMigrate 创建或更新 memories 表
func (s *SQLStore) AutoMigrate(ctx context.Context) error {
	if err := s.pool.DB().WithContext(ctx).AutoMigrate(&memoryRecord{}); err != nil {
		return storeUnavailable("migrate memories table", err)
	}
	return nil
}

// Upsert 插入一条新记忆
func (s *SQLStore) Upsert(ctx context.Context, userID, content string, embedding []float64, metadata map[string]any) (types.Memory, error) {
	if err := validateUserID(userID); err != nil {
		return types.Memory{}, err
	}

	m := newMemory(userID, content, embedding, metadata, s.now())
	rec := memoryRecord{
		ID:           m.ID,
		UserID:       m.UserID,
		Content:      m.Content,
		Embedding:    m.Embedding,
		HasEmbedding: len(m.Embedding) > 0,
		Metadata:     m.Metadata,
		CreatedAt:    m.Timestamp,
	}

	err := s.pool.WithTransactionRetry(ctx, s.maxRetries, func(tx *gorm.DB) error {
		return tx.Create(&rec).Error
	})
	if err != nil {
		s.logger.Error("insert memory failed", zap.String("user_id", userID), zap.Error(err))
		return types.Memory{}, storeUnavailable("insert memory", err)
	}
	return m, nil
}

// GetProfile 返回用户画像
func (s *SQLStore) GetProfile(ctx context.Context, userID string) (types.UserProfile, error) {
	var recs []memoryRecord
	err := s.pool.DB().WithContext(ctx).
		Where("user_id = ?", userID).
		Order("seq asc").
		Find(&recs).Error
	if err != nil {
		return types.UserProfile{}, storeUnavailable("load profile", err)
	}

	mems := make([]types.Memory, len(recs))
	for i, r := range recs {
		mems[i] = r.toMemory()
	}
	return buildProfile(userID, mems, s.now()), nil
}

// SearchBySimilarity 读取用户带嵌入的记忆并在进程内打分
func (s *SQLStore) SearchBySimilarity(ctx context.Context, userID string, query []float64, limit int) ([]types.Memory, error) {
	if limit <= 0 {
		return []types.Memory{}, nil
	}

	var recs []memoryRecord
	err := s.pool.DB().WithContext(ctx).
		Where("user_id = ? AND has_embedding = ?", userID, true).
		Order("seq asc").
		Find(&recs).Error
	if err != nil {
		return nil, storeUnavailable("search memories", err)
	}

	mems := make([]types.Memory, len(recs))
	for i, r := range recs {
		mems[i] = r.toMemory()
	}
	return rankBySimilarity(mems, query, limit), nil
}

// Ping 检查数据库连接
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

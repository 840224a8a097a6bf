package rag

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/docgraph/llm/generation"
	"github.com/BaSui01/docgraph/memory"
	"github.com/BaSui01/docgraph/types"
)

// Answer 一次问答的结果
type Answer struct {
	Answer          string             `json:"answer"`
	Provenance      []ProvenanceRecord `json:"provenance"`
	ContextNodes    int                `json:"contextNodes"`
	UsedSearchAgent bool               `json:"usedSearchAgent"`
	Units           []ContextUnit      `json:"-"`
}

// QueryService 组合检索与生成：检索 → 组装上下文 → 生成答案 → 回写交互记忆
type QueryService struct {
	coordinator *Coordinator
	generator   generation.Generator
	store       memory.Store
	limits      PromptLimits
	now         func() time.Time
	logger      *zap.Logger
}

// NewQueryService 创建问答服务
func NewQueryService(coordinator *Coordinator, generator generation.Generator, store memory.Store, limits PromptLimits, logger *zap.Logger) *QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultPromptLimits()
	if limits.MaxUnits <= 0 {
		limits.MaxUnits = def.MaxUnits
	}
	if limits.MaxProfileMemories <= 0 {
		limits.MaxProfileMemories = def.MaxProfileMemories
	}
	if limits.MaxUnitChars <= 0 {
		limits.MaxUnitChars = def.MaxUnitChars
	}
	return &QueryService{
		coordinator: coordinator,
		generator:   generator,
		store:       store,
		limits:      limits,
		now:         time.Now,
		logger:      logger.With(zap.String("component", "query_service")),
	}
}

// Answer 回答查询。交互记忆写入失败只记录日志，不影响返回。
func (s *QueryService) Answer(ctx context.Context, userID, query, fileID string) (*Answer, error) {
	res, err := s.coordinator.Retrieve(ctx, userID, query, fileID)
	if err != nil {
		return nil, err
	}

	profile := ProfileContext(res.Profile, s.limits.MaxProfileMemories)
	req := BuildGenerationRequest(query, profile, res.Units, res.Provenance, s.limits)

	text, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if text == "" {
		text = generation.NoResponse
	}

	content := fmt.Sprintf("Query: %s\nAnswer: %s", query, text)
	meta := map[string]any{
		types.MetaType:      types.TypeInteraction,
		types.MetaTimestamp: s.now().UnixMilli(),
	}
	if _, err := s.store.Upsert(ctx, userID, content, nil, meta); err != nil {
		s.logger.Warn("failed to store interaction",
			zap.String("user_id", userID),
			zap.Error(err))
	}

	units := capSlice(res.Units, s.limits.MaxUnits)
	return &Answer{
		Answer:          text,
		Provenance:      capSlice(res.Provenance, s.limits.MaxUnits),
		ContextNodes:    len(units),
		UsedSearchAgent: res.UsedSearchAgent,
		Units:           units,
	}, nil
}

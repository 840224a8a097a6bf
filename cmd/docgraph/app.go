package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/docgraph/api/handlers"
	"github.com/BaSui01/docgraph/config"
	"github.com/BaSui01/docgraph/internal/cache"
	"github.com/BaSui01/docgraph/internal/database"
	"github.com/BaSui01/docgraph/internal/metrics"
	"github.com/BaSui01/docgraph/llm/embedding"
	"github.com/BaSui01/docgraph/llm/generation"
	"github.com/BaSui01/docgraph/memory"
	"github.com/BaSui01/docgraph/rag"
)

// =============================================================================
// 🧩 组件装配
// =============================================================================

// App 持有按配置装配好的核心组件
type App struct {
	Store       memory.Store
	Embedder    embedding.Embedder
	Generator   generation.Generator
	Registry    *rag.GraphRegistry
	Coordinator *rag.Coordinator
	Ingestor    *rag.Ingestor
	Queries     *rag.QueryService

	// 依赖检查（Redis / SQL），注册到 /ready
	checks []handlers.HealthCheck
	// 关闭顺序与打开顺序相反
	closers []func(context.Context) error
	logger  *zap.Logger
}

// NewApp 按配置装配记忆存储、嵌入、生成与检索组件。
// collector 为 nil 时不上报指标；tracer 为 nil 时使用全局 tracer。
func NewApp(cfg *config.Config, collector *metrics.Collector, tracer trace.Tracer, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{logger: logger.With(zap.String("component", "app"))}

	var redisClient *cache.Manager
	if cfg.Memory.Backend == "redis" {
		rc, err := openRedis(cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		redisClient = rc
		app.closers = append(app.closers, func(context.Context) error { return rc.Close() })
		app.checks = append(app.checks, handlers.NewPingCheck("redis", rc.Ping))
	}

	store, err := app.openStore(cfg, redisClient, collector, logger)
	if err != nil {
		_ = app.Close(context.Background())
		return nil, err
	}
	app.Store = memory.Instrument(store, cfg.Memory.Backend, observerOrNil[memory.Observer](collector))

	embedder, err := app.openEmbedder(cfg.Embedding, redisClient, collector, logger)
	if err != nil {
		_ = app.Close(context.Background())
		return nil, err
	}
	app.Embedder = embedder

	app.Generator = generation.Instrument(newGenerator(cfg.Generation, logger), observerOrNil[generation.Observer](collector))
	app.Registry = rag.NewGraphRegistry()

	coordOpts := []rag.CoordinatorOption{rag.WithGraphRegistry(app.Registry)}
	if collector != nil {
		coordOpts = append(coordOpts, rag.WithRetrievalObserver(collector))
	}
	if tracer != nil {
		coordOpts = append(coordOpts, rag.WithTracer(tracer))
	}
	app.Coordinator = rag.NewCoordinator(app.Store, app.Embedder, retrievalConfig(cfg.Retrieval), logger, coordOpts...)

	ingestOpts := []rag.IngestOption{rag.WithIngestRegistry(app.Registry)}
	if collector != nil {
		ingestOpts = append(ingestOpts, rag.WithIngestObserver(collector))
	}
	app.Ingestor = rag.NewIngestor(app.Store, app.Embedder, ingestConfig(cfg.Ingest), logger, ingestOpts...)

	app.Queries = rag.NewQueryService(app.Coordinator, app.Generator, app.Store, rag.PromptLimits{
		MaxUnits:           cfg.Retrieval.MaxContextUnits,
		MaxProfileMemories: cfg.Retrieval.MaxProfileMemories,
		MaxUnitChars:       cfg.Retrieval.PromptUnitChars,
	}, logger)

	app.logger.Info("components wired",
		zap.String("memory_backend", cfg.Memory.Backend),
		zap.String("embedding_provider", app.Embedder.Name()),
		zap.String("generation_provider", app.Generator.Name()),
		zap.Int("embedding_dimensions", app.Embedder.Dimensions()),
	)
	return app, nil
}

// HealthChecks 返回后端依赖检查
func (a *App) HealthChecks() []handlers.HealthCheck {
	return a.checks
}

// Close 逆序释放资源
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStore(cfg *config.Config, redisClient *cache.Manager, collector *metrics.Collector, logger *zap.Logger) (memory.Store, error) {
	switch cfg.Memory.Backend {
	case "inmemory":
		return memory.NewInMemoryStore(memory.InMemoryStoreConfig{Shards: cfg.Memory.Shards}, logger), nil

	case "redis":
		return memory.NewRedisStore(redisClient, cfg.Memory.KeyPrefix, logger), nil

	case "sql":
		db := cfg.Database
		pool, err := database.Open(db.Driver, db.DSN(), database.PoolConfig{
			MaxOpenConns:        db.MaxOpenConns,
			MaxIdleConns:        db.MaxIdleConns,
			ConnMaxLifetime:     db.ConnMaxLifetime,
			ConnMaxIdleTime:     time.Minute,
			HealthCheckInterval: 30 * time.Second,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("open memory database: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return pool.Close() })
		// 就绪检查顺带上报连接池状态
		a.checks = append(a.checks, handlers.NewPingCheck("database", func(ctx context.Context) error {
			if collector != nil {
				stats := pool.Stats()
				collector.RecordDBConnections(db.Driver, stats.OpenConnections, stats.Idle)
			}
			return pool.Ping(ctx)
		}))

		store := memory.NewSQLStore(pool, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := store.AutoMigrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate memory table: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported memory backend %q", cfg.Memory.Backend)
	}
}

func (a *App) openEmbedder(cfg config.EmbeddingConfig, redisClient *cache.Manager, collector *metrics.Collector, logger *zap.Logger) (embedding.Embedder, error) {
	var base embedding.Embedder
	switch cfg.Provider {
	case "hash":
		base = embedding.NewHashEmbedder(cfg.Dimensions)
	case "openai":
		base = embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Model:        cfg.Model,
			Dimensions:   cfg.Dimensions,
			Timeout:      cfg.Timeout,
			RateLimitRPS: cfg.RateLimitRPS,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
	}
	base = embedding.Instrument(base, observerOrNil[embedding.Observer](collector))

	if cfg.CacheEntries <= 0 {
		return base, nil
	}

	cacheCfg := embedding.DefaultCacheConfig()
	cacheCfg.MaxEntries = cfg.CacheEntries
	cacheCfg.KeyPrefix = fmt.Sprintf("%s:%d", cacheCfg.KeyPrefix, cfg.Dimensions)

	var remote embedding.RemoteCache
	if redisClient != nil {
		remote = redisClient
	}
	cached, err := embedding.NewCachedEmbedder(base, cacheCfg, remote, logger)
	if err != nil {
		return nil, err
	}
	if collector != nil {
		cached.SetObserver(collector)
	}
	a.closers = append(a.closers, func(context.Context) error { cached.Close(); return nil })
	return cached, nil
}

func newGenerator(cfg config.GenerationConfig, logger *zap.Logger) generation.Generator {
	if cfg.Provider != "openai" {
		return generation.NewExtractiveGenerator()
	}
	return generation.NewChatGenerator(generation.ChatConfig{
		ProviderName: "openai",
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		Timeout:      cfg.Timeout,
	}, logger)
}

func openRedis(cfg config.RedisConfig, logger *zap.Logger) (*cache.Manager, error) {
	cc := cache.DefaultConfig()
	cc.Addr = cfg.Addr
	cc.Password = cfg.Password
	cc.DB = cfg.DB
	if cfg.PoolSize > 0 {
		cc.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		cc.MinIdleConns = cfg.MinIdleConns
	}
	m, err := cache.NewManager(cc, logger)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return m, nil
}

func retrievalConfig(c config.RetrievalConfig) rag.RetrievalConfig {
	return rag.RetrievalConfig{
		PrimaryLimit:    c.PrimaryLimit,
		MaxContextUnits: c.MaxContextUnits,
		SearchAgent: rag.SearchAgentConfig{
			MaxResults:         c.SearchAgentMaxResults,
			KeyTermSearchLimit: c.KeyTermSearchLimit,
			MaxKeyTerms:        c.MaxKeyTerms,
		},
		GraphExpandDepth:  c.GraphExpandDepth,
		EmbedTimeout:      c.EmbedTimeout,
		EscalationTimeout: c.EscalationTimeout,
	}
}

func ingestConfig(c config.IngestConfig) rag.IngestConfig {
	return rag.IngestConfig{
		Chunk:            rag.ChunkConfig{Size: c.ChunkSize, Overlap: c.ChunkOverlap},
		MaxChunks:        c.MaxChunks,
		EmbedConcurrency: c.EmbedConcurrency,
		Builder:          rag.GraphBuilderConfig{ReferenceWorkers: c.ReferenceWorkers},
	}
}

// observerOrNil 避免把 nil *metrics.Collector 装进非 nil 接口
func observerOrNil[T any](c *metrics.Collector) T {
	var zero T
	if c == nil {
		return zero
	}
	if obs, ok := any(c).(T); ok {
		return obs
	}
	return zero
}

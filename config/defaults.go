// =============================================================================
// 📦 docgraph 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:     DefaultServerConfig(),
		Retrieval:  DefaultRetrievalConfig(),
		Ingest:     DefaultIngestConfig(),
		Embedding:  DefaultEmbeddingConfig(),
		Generation: DefaultGenerationConfig(),
		Memory:     DefaultMemoryConfig(),
		Redis:      DefaultRedisConfig(),
		Database:   DefaultDatabaseConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    2 * time.Minute,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		MaxBodyBytes:    32 << 20, // 32 MB，整份文档分解结果
		RateLimitRPS:    0,
		RateLimitBurst:  20,
	}
}

// DefaultRetrievalConfig 返回默认检索配置
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		PrimaryLimit:          10,
		MaxContextUnits:       10,
		SearchAgentMaxResults: 5,
		KeyTermSearchLimit:    3,
		MaxKeyTerms:           5,
		GraphExpandDepth:      1,
		EmbedTimeout:          10 * time.Second,
		EscalationTimeout:     5 * time.Second,
		MaxProfileMemories:    5,
		PromptUnitChars:       500,
	}
}

// DefaultIngestConfig 返回默认入库配置
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		ChunkSize:        1000,
		ChunkOverlap:     200,
		MaxChunks:        0,
		EmbedConcurrency: 8,
		ReferenceWorkers: 4,
	}
}

// DefaultEmbeddingConfig 返回默认嵌入配置
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Provider:     "hash",
		Dimensions:   384,
		BaseURL:      "https://api.openai.com",
		Model:        "text-embedding-3-small",
		Timeout:      30 * time.Second,
		RateLimitRPS: 0,
		CacheEntries: 10000,
	}
}

// DefaultGenerationConfig 返回默认生成配置
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Provider:    "extractive",
		BaseURL:     "https://api.groq.com/openai",
		Model:       "moonshotai/kimi-k2-instruct",
		Temperature: 0.7,
		MaxTokens:   2000,
		Timeout:     2 * time.Minute,
	}
}

// DefaultMemoryConfig 返回默认记忆存储配置
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Backend:   "inmemory",
		KeyPrefix: "docgraph:mem",
		Shards:    32,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "docgraph",
		Password:        "",
		Name:            "docgraph.db",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "docgraph",
		SampleRate:   0.1,
	}
}

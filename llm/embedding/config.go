package embedding

import "time"

// OpenAIConfig 配置 OpenAI 兼容的嵌入提供者.
type OpenAIConfig struct {
	APIKey     string        `json:"api_key" yaml:"api_key"`
	BaseURL    string        `json:"base_url" yaml:"base_url"`
	Model      string        `json:"model,omitempty" yaml:"model,omitempty"`
	Dimensions int           `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// RateLimitRPS 每秒请求上限，<= 0 表示不限
	RateLimitRPS float64 `json:"rate_limit_rps,omitempty" yaml:"rate_limit_rps,omitempty"`
	// MaxBatch 单次请求最多携带的文本数
	MaxBatch int `json:"max_batch,omitempty" yaml:"max_batch,omitempty"`
}

// DefaultOpenAIConfig 返回默认 OpenAI 嵌入配置.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseURL:    "https://api.openai.com",
		Model:      "text-embedding-3-small",
		Dimensions: 384,
		Timeout:    30 * time.Second,
		MaxBatch:   256,
	}
}

// CacheConfig 配置嵌入缓存.
type CacheConfig struct {
	// MaxEntries 进程内缓存的最大条目数
	MaxEntries int64 `json:"max_entries" yaml:"max_entries"`
	// RemoteTTL 远端缓存条目的过期时间，0 使用远端默认值
	RemoteTTL time.Duration `json:"remote_ttl" yaml:"remote_ttl"`
	// KeyPrefix 远端缓存键前缀
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// DefaultCacheConfig 返回默认缓存配置.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxEntries: 10000,
		RemoteTTL:  24 * time.Hour,
		KeyPrefix:  "docgraph:emb",
	}
}

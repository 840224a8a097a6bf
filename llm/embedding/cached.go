package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// RemoteCache 是跨进程的二级缓存，由 internal/cache.Manager 实现。
type RemoteCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CacheObserver 接收缓存命中情况，cacheType 为 embedding_local 或 embedding_remote
type CacheObserver interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

// CachedEmbedder 为任意 Embedder 增加两级缓存与并发合并：
// 进程内 ristretto 缓存，可选的远端缓存，相同文本的并发请求只调用一次上游。
type CachedEmbedder struct {
	next   Embedder
	local  *ristretto.Cache
	remote RemoteCache
	cfg    CacheConfig
	group  singleflight.Group
	obs    CacheObserver
	logger *zap.Logger
}

// NewCachedEmbedder 创建带缓存的嵌入器，remote 可以为 nil
func NewCachedEmbedder(next Embedder, cfg CacheConfig, remote RemoteCache, logger *zap.Logger) (*CachedEmbedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultCacheConfig().MaxEntries
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultCacheConfig().KeyPrefix
	}

	local, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxEntries * 10,
		MaxCost:     cfg.MaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	return &CachedEmbedder{
		next:   next,
		local:  local,
		remote: remote,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "embedding_cache")),
	}, nil
}

// SetObserver 设置缓存观测者
func (c *CachedEmbedder) SetObserver(obs CacheObserver) {
	c.obs = obs
}

func (c *CachedEmbedder) record(cacheType string, hit bool) {
	if c.obs == nil {
		return
	}
	if hit {
		c.obs.RecordCacheHit(cacheType)
	} else {
		c.obs.RecordCacheMiss(cacheType)
	}
}

// Name 返回上游提供者名称
func (c *CachedEmbedder) Name() string { return c.next.Name() }

// Dimensions 返回上游维度
func (c *CachedEmbedder) Dimensions() int { return c.next.Dimensions() }

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.cfg.KeyPrefix + ":" + c.next.Name() + ":" + hex.EncodeToString(sum[:])
}

// Embed 依次查询进程内缓存、远端缓存与上游
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := c.key(text)

	if v, ok := c.local.Get(key); ok {
		c.record("embedding_local", true)
		return cloneVector(v.([]float64)), nil
	}
	c.record("embedding_local", false)

	v, err, _ := c.group.Do(key, func() (any, error) {
		if c.remote != nil {
			var cached []float64
			if err := c.remote.GetJSON(ctx, key, &cached); err == nil && len(cached) > 0 {
				c.record("embedding_remote", true)
				c.storeLocal(key, cached)
				return cached, nil
			}
			c.record("embedding_remote", false)
		}

		vec, err := c.next.Embed(ctx, text)
		if err != nil {
			return nil, err
		}

		c.storeLocal(key, vec)
		if c.remote != nil {
			if err := c.remote.SetJSON(ctx, key, vec, c.cfg.RemoteTTL); err != nil {
				c.logger.Warn("remote embedding cache write failed", zap.Error(err))
			}
		}
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneVector(v.([]float64)), nil
}

func (c *CachedEmbedder) storeLocal(key string, vec []float64) {
	c.local.Set(key, cloneVector(vec), 1)
	c.local.Wait()
}

// Close 释放进程内缓存
func (c *CachedEmbedder) Close() {
	c.local.Close()
}

func cloneVector(v []float64) []float64 {
	return append([]float64(nil), v...)
}

/*
包 embedding 提供文本嵌入接口与实现。

# 核心类型

  - Embedder：Embed(ctx, text) 与 Dimensions()，检索与入库只依赖它。
  - HashEmbedder：确定性离线实现，默认 384 维。
  - OpenAIProvider：OpenAI 兼容 /v1/embeddings 客户端，支持分批与限流。
  - CachedEmbedder：ristretto 进程内缓存 + 可选 Redis 远端缓存 + singleflight 合并。

所有远程调用失败都包装为 types.ErrEmbeddingFailure，原始错误保留在 Cause 中。

# 使用方式

	base := embedding.NewOpenAIProvider(embedding.OpenAIConfig{APIKey: key})
	cached, err := embedding.NewCachedEmbedder(base, embedding.DefaultCacheConfig(), nil, logger)
	vec, err := cached.Embed(ctx, "revenue growth")
*/
package embedding

/*
包 generation 提供答案生成接口与实现。

  - ChatGenerator：OpenAI 兼容 /v1/chat/completions 客户端（Groq、Moonshot 等）。
  - ExtractiveGenerator：离线实现，直接引用排名靠前的上下文片段，适合测试与无密钥部署。

上游失败统一包装为 types.ErrGenerationFailure，原始错误保留在 Cause 中。
*/
package generation

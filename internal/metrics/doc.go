// 版权所有 2024 docgraph Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集，覆盖 HTTP、混合检索、
文档入库、嵌入与生成调用、记忆存储、缓存与数据库连接。

# 概述

Collector 通过 promauto 注册到默认 Registry，按 namespace 隔离。
它同时实现各业务包声明的观测接口，由 cmd/docgraph 注入：

  - rag.RetrievalObserver：ObserveRetrieval / ObserveEscalation
  - rag.IngestObserver：ObserveIngest
  - embedding.Observer / embedding.CacheObserver：ObserveEmbedding、RecordCacheHit/Miss
  - generation.Observer：ObserveGeneration
  - memory.Observer：ObserveStoreOperation
*/
package metrics

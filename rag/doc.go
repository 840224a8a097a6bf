// Copyright 2025-2026 docgraph Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package rag 实现基于知识图的混合检索引擎：把文档分解结果构建为
Document → Page → {TextChunk, Image} 的类型化图，嵌入并写入记忆存储，
查询时以向量检索为主，按启发式策略升级到搜索代理与图扩展补充检索，
合并去重后输出带溯源信息的上下文，交给答案生成器。

# 核心接口/类型

  - GraphBuilder / BuildGraph — 构建图：contains、visual_of、references 三类边
  - ExpandGraph — 有界广度优先遍历（边视为无向，按发现顺序返回）
  - GraphRegistry — 进程级文档图注册表
  - EscalationPolicy / HeuristicPolicy — 升级判定，返回 Decision{Escalate, Reason}
  - KeyTermIterator — 按需产出关键词的有界迭代器
  - SearchAgent — 补充检索（扩大召回 + 关键词检索，满额即停）
  - Coordinator — 混合检索协调器，输出 RetrievalResult
  - Ingestor — 入库流水线（切分、建图、并发嵌入、写入）
  - QueryService — 检索 + 生成 + 交互记忆回写

# 错误语义

主嵌入与主检索失败返回 types.ErrRetrievalFailed（Cause 保留
ErrEmbeddingFailure / ErrStoreUnavailable）；空查询返回
types.ErrRetrievalInputInvalid；升级阶段的失败只记录日志，结果退化为主检索结果。
*/
package rag

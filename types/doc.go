// Copyright (c) docgraph Authors.
// Licensed under the MIT License.

/*
Package types 提供 docgraph 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 memory、rag、llm、api
等上层模块提供统一的类型契约。

# 核心类型

  - Memory / UserProfile — 用户维度的记忆条目与按需物化的画像视图
  - Error / ErrorCode    — 结构化错误体系（EMBEDDING_FAILURE、STORE_UNAVAILABLE 等）
  - Meta* 常量           — 记忆元数据的约定键（nodeType、nodeId、documentId、pageNumber）

# 主要能力

  - 错误工具链：AsError / IsErrorCode / IsRetryable / GetErrorCode
  - Context 传播：WithRequestID / WithUserID / WithDocumentID
  - 元数据读取：MetaString / MetaInt（兼容 JSON 往返后的 float64）
*/
package types

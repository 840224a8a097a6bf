// Copyright (c) docgraph Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 docgraph HTTP API 的请求处理器。

# 核心类型

  - DocumentHandler — POST /api/process 文档入库；GET /api/graph/{documentId} 与 /expand 图查询
  - QueryHandler    — POST /api/query 问答；POST /api/retrieve 仅检索
  - MemoryHandler   — POST /api/memories 写入记忆；GET /api/profile 用户画像
  - HealthHandler   — /health、/ready、/version
  - Response / ErrorInfo — 统一 JSON 响应（success + data + error + timestamp）

错误统一经 WriteError 输出：包装链上的 *types.Error 决定 code 与 HTTP 状态，
其余错误按 INTERNAL_ERROR 处理。未携带用户时使用 DefaultUserID 分区。
*/
package handlers

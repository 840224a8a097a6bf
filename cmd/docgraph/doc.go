// Copyright (c) docgraph Authors.
// Licensed under the MIT License.

/*
Package main 提供 docgraph 服务端程序入口。

# 概述

cmd/docgraph 按配置装配记忆存储、嵌入、生成与检索组件，并通过单一
HTTP 端口对外提供文档入库、图查询、混合检索、问答与用户记忆接口。

# 核心类型

  - App        — 组件装配结果，持有存储、嵌入器、生成器、图注册表与检索协调器
  - Server     — HTTP 服务，负责路由、中间件链与优雅关闭
  - Middleware — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve、version、health
  - 记忆后端：inmemory、redis、sql（postgres / sqlite）
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、
    RequestLogger、Metrics、CORS、MaxBody、JWTAuth、APIKeyAuth、RateLimiter
  - JWT 中的 user_id（缺省 sub）作为记忆分区
  - 优雅关闭：信号监听 → 关闭 HTTP → 释放组件 → flush 遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main

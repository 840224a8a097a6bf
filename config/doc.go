// Package config 提供 docgraph 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（前缀 DOCGRAPH）的顺序叠加，
// 覆盖 HTTP 服务、混合检索、文档入库、嵌入与生成提供者、
// 记忆存储后端（inmemory / redis / sql）、日志与遥测。
package config

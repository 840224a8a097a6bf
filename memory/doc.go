// Package memory 提供按用户分区的记忆存储及余弦相似度检索。
//
// 三种后端实现同一个 Store 契约：
//   - InMemoryStore：分片的进程内日志，默认后端；
//   - RedisStore：每个用户一个 Redis 列表（经 internal/cache.Manager）；
//   - SQLStore：GORM memories 表，支持 sqlite 与 postgres。
//
// 后端只负责保存与暴力打分，不做向量索引。
package memory

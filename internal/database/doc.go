/*
包 database 提供基于 GORM 的数据库连接管理，供 SQL 记忆存储使用。

Open 按驱动名（postgres / sqlite）构造 dialector 并建立连接；
PoolManager 负责连接池参数、后台健康检查、事务执行与
死锁 / 序列化失败 / 连接中断场景下的指数退避重试。
*/
package database

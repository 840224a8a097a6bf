/*
包 cache 提供基于 Redis 的存取能力，供嵌入缓存与 Redis 记忆存储共用。

# 核心类型

  - Manager：持有 go-redis 客户端，提供 Get/Set/GetJSON/SetJSON/Delete
    键值操作，以及 AppendJSON/ListAll/ListLen 追加列表操作。
  - Config：地址、密码、连接池大小、默认 TTL 与健康检查间隔。

# 错误语义

键不存在时返回 ErrCacheMiss，可用 IsCacheMiss 判断；
Close 之后的任何调用返回 ErrClosed。
*/
package cache

// 版权所有 2024 docgraph Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 docgraph HTTP API 的服务器生命周期。

Manager 封装 net/http.Server：Start 非阻塞启动，Shutdown 在超时内
排空请求并逆序执行 OnShutdown 注册的清理钩子（关闭记忆存储、
刷新遥测），WaitForShutdown 监听 SIGINT/SIGTERM 或 ctx 结束。
ConfigFrom 由 config.ServerConfig 构造监听参数。
*/
package server

// Package memory 实现进程内传输
//
// 监听器注册在共享的 Hub 中，拨号得到一对同步管道（net.Pipe）。
// 用于端到端测试和同进程嵌入多个节点。
//
// 地址格式：/memory/<port>，监听 /memory/0 时分配新端口。
package memory

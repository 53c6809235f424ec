// Package handler 提供 ConnectionHandler 的通用辅助
//
//   - action.go    - HandlerAction 构造函数
//   - composite.go - 多个 Handler 组合为一个（按 Key 路由命令与事件）
//   - dummy.go     - 不做任何事的 Handler
//   - substream.go - 在子流上以轮询方式收发消息
//
// 组合 Handler 与 pkg/behaviour.Compose 配套使用：Behaviour 发出的命令被
// 包装为 Tagged{Key, Value}，Composite 按 Key 交给对应的子 Handler；
// 子 Handler 的事件同样被包装后上送，由组合 Behaviour 路由回去。
package handler

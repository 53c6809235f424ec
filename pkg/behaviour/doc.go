// Package behaviour 提供 NetworkBehaviour 的静态组合
//
// Compose 把多个独立的 Behaviour 组合为一个逻辑 Behaviour：
//
//   - 每个 Swarm 事件广播给所有子 Behaviour，各自决定是否相关
//   - 子 Behaviour 发往 Handler 的命令被标记为 handler.Tagged{Key}，
//     由 handler.Composite 交给对应的子 Handler
//   - 子 Handler 的事件带着同一个 Key 上送，路由回对应的子 Behaviour
//   - 子 Behaviour 轮转轮询，从上次有进展者之后开始，保证公平
//
// 组合在构建时确定，运行时不能增删。
package behaviour

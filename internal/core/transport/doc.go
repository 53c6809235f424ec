// Package transport 组装传输层
//
// 根据配置创建 TCP、QUIC、WebSocket 与进程内传输，按固定顺序
// 以 "transports" 名字提供给 fx 容器。连接池按这个顺序选择第一个
// CanDial 的传输拨号。
//
// 支持的地址：
//
//   - QUIC: /ip4/.../udp/.../quic-v1（自带加密与多路复用）
//   - TCP: /ip4/.../tcp/...
//   - WebSocket: /ip4/.../tcp/.../ws
//   - Memory: /memory/<port>
package transport

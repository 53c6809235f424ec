// Package websocket 实现 WebSocket 传输
//
// 每条 WebSocket 连接被包装为字节流（二进制消息），再经过升级器完成
// 安全握手和多路复用，与 TCP 传输一致。
//
// 地址格式：/ip4/127.0.0.1/tcp/4001/ws
package websocket

// Package yamux 提供基于 hashicorp/yamux 的流多路复用
//
// 会话建立在安全连接之上，子流在 yamux 会话内打开和接受。
// yamux 没有真正的半关闭与 RST：CloseWrite 发送 FIN，
// Reset 发送 FIN 后立即使本地读写失败。
package yamux

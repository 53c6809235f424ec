// Package upgrader 实现连接升级器
//
// 升级器把传输层的原始连接变成安全、多路复用的连接：
//
//  1. 协商安全协议（multistream-select）
//  2. 安全握手（Noise / Plaintext）
//  3. 协商多路复用器（multistream-select）
//  4. 建立多路复用会话（yamux）
//
// 自带加密与多路复用的连接（QUIC）跳过以上步骤，只做身份校验。
//
// 升级在边缘 goroutine 中执行，结果由连接池推进到状态机。
// 失败时原始连接总是被关闭，错误可用 DialErrorKind / ListenErrorKind 分类。
package upgrader

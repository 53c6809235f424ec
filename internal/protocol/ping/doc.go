// Package ping 实现连接存活检测协议
//
// 协议标识: /p2pcore/ping/1.0.0
//
// 每条连接上的 Handler 按 Interval 在同一个出站子流上发送 32 字节随机数，
// 对端原样返回；往返时间或失败以 Event 报告。启用时 Handler 保持连接。
// 对端不支持该协议时只报告一次，之后不再尝试。
package ping

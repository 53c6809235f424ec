// Package tcp 实现 TCP 传输
//
// TCP 连接需要经过升级器完成安全握手和多路复用。
//
// 地址格式：/ip4/127.0.0.1/tcp/4001、/ip6/::1/tcp/4001、/dns4/example.com/tcp/4001
package tcp

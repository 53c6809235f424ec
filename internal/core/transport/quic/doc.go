// Package quic 实现 QUIC 传输
//
// QUIC 自带 TLS 1.3 加密和流多路复用，本传输产生的连接直接实现
// UpgradedConn，升级器只做身份校验。
//
// 证书由节点的 Ed25519 身份私钥自签名，PeerID 从证书公钥派生，
// 因此身份不可伪造；对端证书只校验自签名与有效期，不校验 CA。
//
// 地址格式：/ip4/127.0.0.1/udp/4001/quic-v1
package quic

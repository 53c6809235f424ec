// Package plaintext 实现明文身份交换
//
// 双方交换各自的公钥与 PeerID 后直接使用原始连接，不提供加密。
// 仅用于测试和受信网络。
//
// 交换消息以 varint 长度前缀分帧，内容为 protobuf 消息：
//
//	message Exchange {
//	  bytes id = 1;
//	  bytes pubkey = 2;
//	}
package plaintext

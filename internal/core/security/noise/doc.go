// Package noise 实现 Noise 协议安全传输
//
// 使用 Noise_XX_25519_ChaChaPoly_SHA256 模式：
//   - XX: 三轮握手，双方相互认证
//   - 25519: Curve25519 用于 DH 密钥交换
//   - ChaChaPoly: ChaCha20-Poly1305 用于对称加密
//   - SHA256: 用于 HKDF 密钥派生
//
// # 握手流程
//
//	-> e                              (发起者发送临时公钥)
//	<- e, ee, s, es, payload          (响应者发送临时公钥、静态公钥、payload)
//	-> s, se, payload                 (发起者发送静态公钥、payload)
//
// payload 包含 Ed25519 身份公钥和对 Noise 静态公钥的签名，
// 将 Curve25519 静态密钥绑定到节点身份。静态密钥由身份私钥转换而来。
//
// # 分帧
//
// 握手消息与传输消息都以 2 字节大端长度前缀分帧，
// 单帧密文不超过 65535 字节，较大的写入会被拆分。
package noise

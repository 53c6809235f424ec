// Package identity 管理本地节点身份
//
// 身份由一个 Ed25519 密钥对组成，PeerID 由公钥派生。
// 私钥可以持久化为 PEM 文件，启动时加载，不存在时按配置自动生成。
package identity

package upgrader

import (
	"time"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
)

// Config 升级器配置
type Config struct {
	// SecurityTransports 安全传输列表（按优先级排序）
	SecurityTransports []pkgif.SecureTransport

	// StreamMuxers 流多路复用器列表（按优先级排序）
	StreamMuxers []pkgif.StreamMuxer

	// HandshakeTimeout 整个升级过程的超时，0 表示仅受调用方 ctx 约束
	HandshakeTimeout time.Duration
}

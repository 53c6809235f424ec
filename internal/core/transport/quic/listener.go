package quic

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/quic-go/quic-go"
	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var _ pkgif.Listener = (*Listener)(nil)

// Listener QUIC 监听器
//
// 每个监听器独占一个 UDP socket。
type Listener struct {
	ql        *quic.Listener
	qt        *quic.Transport
	uc        *net.UDPConn
	addr      types.Multiaddr
	localPeer types.PeerID
	transport *Transport
	closed    atomic.Bool
}

// Accept 接受下一个完成握手的连接
func (l *Listener) Accept() (pkgif.RawConn, error) {
	for {
		qc, err := l.ql.Accept(context.Background())
		if err != nil {
			if l.closed.Load() {
				return nil, ErrListenerClosed
			}
			return nil, fmt.Errorf("接受连接失败: %w", err)
		}
		c, err := newConn(qc, l.localPeer)
		if err != nil {
			// 单个连接的身份错误不影响监听器
			logger.Debug("丢弃身份无效的 QUIC 连接", "error", err)
			continue
		}
		return c, nil
	}
}

// Multiaddr 返回实际监听地址
func (l *Listener) Multiaddr() types.Multiaddr {
	return l.addr
}

// Close 关闭监听器及其 socket
func (l *Listener) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	l.transport.removeListener(l)
	return multierr.Combine(l.ql.Close(), l.qt.Close(), l.uc.Close())
}

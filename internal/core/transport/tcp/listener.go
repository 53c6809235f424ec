package tcp

import (
	"errors"
	"net"
	"sync/atomic"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var _ pkgif.Listener = (*Listener)(nil)

// Listener TCP 监听器
type Listener struct {
	ln        net.Listener
	addr      types.Multiaddr
	transport *Transport
	closed    atomic.Bool
}

// Accept 接受新连接
func (l *Listener) Accept() (pkgif.RawConn, error) {
	for {
		c, err := l.ln.Accept()
		if err != nil {
			if l.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil, net.ErrClosed
			}
			return nil, err
		}
		conn, err := newConn(c, nil)
		if err != nil {
			logger.Debug("无法转换入站地址", "remote", c.RemoteAddr(), "error", err)
			_ = c.Close()
			continue
		}
		return conn, nil
	}
}

// Multiaddr 实际监听地址
func (l *Listener) Multiaddr() types.Multiaddr {
	return l.addr
}

// Close 关闭监听器
func (l *Listener) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	l.transport.removeListener(l)
	return l.ln.Close()
}

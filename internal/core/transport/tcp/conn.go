package tcp

import (
	"net"

	manet "github.com/multiformats/go-multiaddr/net"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var _ pkgif.RawConn = (*Conn)(nil)

// Conn TCP 原始连接
type Conn struct {
	net.Conn
	laddr types.Multiaddr
	raddr types.Multiaddr
}

func newConn(c net.Conn, raddr types.Multiaddr) (*Conn, error) {
	laddr, err := manet.FromNetAddr(c.LocalAddr())
	if err != nil {
		return nil, err
	}
	if raddr == nil {
		raddr, err = manet.FromNetAddr(c.RemoteAddr())
		if err != nil {
			return nil, err
		}
	}
	return &Conn{Conn: c, laddr: laddr, raddr: raddr}, nil
}

// LocalMultiaddr 本地地址
func (c *Conn) LocalMultiaddr() types.Multiaddr {
	return c.laddr
}

// RemoteMultiaddr 远端地址
func (c *Conn) RemoteMultiaddr() types.Multiaddr {
	return c.raddr
}

package websocket

import (
	"fmt"
	"net"

	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"

	"github.com/dep2p/go-p2pcore/pkg/types"
)

var wsComponent = ma.StringCast("/ws")

// isWSAddr 检查地址形如 /{ip4,ip6,dns,dns4,dns6}/.../tcp/.../ws
func isWSAddr(addr types.Multiaddr) bool {
	if addr == nil {
		return false
	}
	protos := addr.Protocols()
	if len(protos) != 3 || protos[1].Code != ma.P_TCP || protos[2].Code != ma.P_WS {
		return false
	}
	switch protos[0].Code {
	case ma.P_IP4, ma.P_IP6, ma.P_DNS, ma.P_DNS4, ma.P_DNS6:
		return true
	}
	return false
}

// dialArgs 返回 TCP 网络类型与 host:port
func dialArgs(addr types.Multiaddr) (string, string, error) {
	if !isWSAddr(addr) {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedAddr, types.AddrString(addr))
	}
	return manet.DialArgs(addr.Decapsulate(wsComponent))
}

// toMultiaddr 将 TCP 地址转为 WebSocket multiaddr
func toMultiaddr(na net.Addr) (types.Multiaddr, error) {
	m, err := manet.FromNetAddr(na)
	if err != nil {
		return nil, err
	}
	return m.Encapsulate(wsComponent), nil
}

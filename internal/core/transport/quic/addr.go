package quic

import (
	"fmt"
	"net"

	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"

	"github.com/dep2p/go-p2pcore/pkg/types"
)

var quicV1 = ma.StringCast("/quic-v1")

// isQUICAddr 检查地址形如 /ip{4,6}/.../udp/.../quic-v1
func isQUICAddr(addr types.Multiaddr) bool {
	if addr == nil {
		return false
	}
	protos := addr.Protocols()
	if len(protos) != 3 {
		return false
	}
	if protos[0].Code != ma.P_IP4 && protos[0].Code != ma.P_IP6 {
		return false
	}
	return protos[1].Code == ma.P_UDP && protos[2].Code == ma.P_QUIC_V1
}

// toUDPAddr 将 QUIC multiaddr 转为 UDP 地址
func toUDPAddr(addr types.Multiaddr) (*net.UDPAddr, error) {
	if !isQUICAddr(addr) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddr, types.AddrString(addr))
	}
	na, err := manet.ToNetAddr(addr.Decapsulate(quicV1))
	if err != nil {
		return nil, err
	}
	udp, ok := na.(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddr, addr)
	}
	return udp, nil
}

// toMultiaddr 将 UDP 地址转为 QUIC multiaddr
func toMultiaddr(na net.Addr) (types.Multiaddr, error) {
	m, err := manet.FromNetAddr(na)
	if err != nil {
		return nil, err
	}
	return m.Encapsulate(quicV1), nil
}

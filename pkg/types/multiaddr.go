package types

import (
	"strings"

	ma "github.com/multiformats/go-multiaddr"
)

// ============================================================================
//                              Multiaddr - 统一地址类型
// ============================================================================

// Multiaddr 自描述的网络地址
//
// 核心只关心相等性，具体语义由 Transport 解释。
//
// 格式示例：
//   - /ip4/127.0.0.1/tcp/4001
//   - /ip4/127.0.0.1/udp/4001/quic-v1
//   - /ip4/127.0.0.1/tcp/4001/ws
//   - /memory/42
type Multiaddr = ma.Multiaddr

// ParseMultiaddr 解析 multiaddr 字符串
//
// 格式错误返回 *AddressError，不会触达网络。
func ParseMultiaddr(s string) (Multiaddr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &AddressError{Addr: s, Err: ErrEmptyMultiaddr}
	}
	addr, err := ma.NewMultiaddr(s)
	if err != nil {
		return nil, &AddressError{Addr: s, Err: err}
	}
	return addr, nil
}

// MustParseMultiaddr 解析 multiaddr，失败时 panic
//
// 仅用于常量地址和测试。
func MustParseMultiaddr(s string) Multiaddr {
	addr, err := ParseMultiaddr(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// ParseMultiaddrs 批量解析 multiaddr
func ParseMultiaddrs(ss []string) ([]Multiaddr, error) {
	out := make([]Multiaddr, 0, len(ss))
	for _, s := range ss {
		addr, err := ParseMultiaddr(s)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// AddrString 返回地址字符串，nil 地址返回空串
func AddrString(addr Multiaddr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}

// HasProtocol 检查地址是否包含指定协议
func HasProtocol(addr Multiaddr, code int) bool {
	if addr == nil {
		return false
	}
	for _, p := range addr.Protocols() {
		if p.Code == code {
			return true
		}
	}
	return false
}

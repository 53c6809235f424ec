package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dep2p/go-p2pcore/pkg/types"
)

// ============================================================================
//                              命令行节点参数
// ============================================================================

// errPeerArg 节点参数格式错误
var errPeerArg = errors.New("invalid peer argument")

// p2pSuffix 地址中节点 ID 的分隔
const p2pSuffix = "/p2p/"

// peerArg 命令行给出的待拨号节点
type peerArg struct {
	peer  types.PeerID
	addrs []types.Multiaddr
}

// parsePeerArg 解析单个节点参数
//
// 支持两种格式：
//   - <peer-id>@<multiaddr>
//   - <multiaddr>/p2p/<peer-id>
//
// 节点 ID 以 base58 摘要形式出现，不属于 multiaddr 协议表，
// 因此在解析地址之前先把它剥离出来。
func parsePeerArg(s string) (peerArg, error) {
	s = strings.TrimSpace(s)

	var idStr, addrStr string
	if at := strings.IndexByte(s, '@'); at >= 0 {
		idStr, addrStr = s[:at], s[at+1:]
	} else if i := strings.LastIndex(s, p2pSuffix); i >= 0 {
		addrStr, idStr = s[:i], s[i+len(p2pSuffix):]
	} else {
		return peerArg{}, fmt.Errorf("%w %q: expected peer-id@multiaddr or multiaddr/p2p/peer-id", errPeerArg, s)
	}

	peer, err := types.ParsePeerID(idStr)
	if err != nil {
		return peerArg{}, fmt.Errorf("%w %q: %w", errPeerArg, s, err)
	}
	addr, err := types.ParseMultiaddr(addrStr)
	if err != nil {
		return peerArg{}, fmt.Errorf("%w %q: %w", errPeerArg, s, err)
	}
	return peerArg{peer: peer, addrs: []types.Multiaddr{addr}}, nil
}

// parsePeerArgs 解析全部节点参数，同一节点的地址合并
func parsePeerArgs(args []string) ([]peerArg, error) {
	var out []peerArg
	index := make(map[types.PeerID]int)
	for _, a := range args {
		p, err := parsePeerArg(a)
		if err != nil {
			return nil, err
		}
		if i, ok := index[p.peer]; ok {
			out[i].addrs = append(out[i].addrs, p.addrs...)
			continue
		}
		index[p.peer] = len(out)
		out = append(out, p)
	}
	return out, nil
}

// joinAddrs 用于日志输出
func joinAddrs(addrs []types.Multiaddr) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, types.AddrString(a))
	}
	return strings.Join(parts, ",")
}

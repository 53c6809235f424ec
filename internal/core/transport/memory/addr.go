package memory

import (
	"encoding/binary"
	"fmt"
	"strconv"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/dep2p/go-p2pcore/pkg/types"
)

// protocolCode /memory 协议码
const protocolCode = 0x0309

func init() {
	if ma.ProtocolWithName("memory").Code != 0 {
		return
	}
	// 旧版本 multiaddr 表中没有 /memory，按同一编码注册
	_ = ma.AddProtocol(ma.Protocol{
		Name:       "memory",
		Code:       protocolCode,
		VCode:      ma.CodeToVarint(protocolCode),
		Size:       64,
		Transcoder: ma.NewTranscoderFromFunctions(portToBytes, bytesToPort, nil),
	})
}

func portToBytes(s string) ([]byte, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, err
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:], nil
}

func bytesToPort(b []byte) (string, error) {
	if len(b) != 8 {
		return "", fmt.Errorf("invalid memory port length %d", len(b))
	}
	return strconv.FormatUint(binary.BigEndian.Uint64(b), 10), nil
}

// NewAddr 构造 /memory/<port>
func NewAddr(port uint64) types.Multiaddr {
	return types.MustParseMultiaddr("/memory/" + strconv.FormatUint(port, 10))
}

// parsePort 提取 /memory/<port> 的端口
func parsePort(addr types.Multiaddr) (uint64, error) {
	if addr == nil {
		return 0, ErrUnsupportedAddr
	}
	protos := addr.Protocols()
	if len(protos) != 1 || protos[0].Name != "memory" {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedAddr, addr)
	}
	v, err := addr.ValueForProtocol(protos[0].Code)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(v, 10, 64)
}

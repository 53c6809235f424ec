package ping

import (
	"bytes"
	"crypto/rand"
	"errors"
	"io"
	"time"

	"github.com/benbjohnson/clock"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// Protocol ping 协议 ID
const Protocol types.ProtocolID = "/p2pcore/ping/1.0.0"

// Size 每次 ping 的负载长度
const Size = 32

// roundTrip 发送一次 ping 并等待回应
func roundTrip(s pkgif.MuxedStream, clk clock.Clock) (time.Duration, error) {
	out := make([]byte, Size)
	if _, err := rand.Read(out); err != nil {
		return 0, err
	}

	start := clk.Now()
	if _, err := s.Write(out); err != nil {
		return 0, err
	}
	in := make([]byte, Size)
	if _, err := io.ReadFull(s, in); err != nil {
		return 0, err
	}
	if !bytes.Equal(out, in) {
		return 0, ErrMismatch
	}
	return clk.Since(start), nil
}

// echo 回应入站 ping 直到对端关闭
func echo(s pkgif.MuxedStream) (struct{}, error) {
	buf := make([]byte, Size)
	for {
		if _, err := io.ReadFull(s, buf); err != nil {
			if errors.Is(err, io.EOF) {
				return struct{}{}, nil
			}
			return struct{}{}, err
		}
		if _, err := s.Write(buf); err != nil {
			return struct{}{}, err
		}
	}
}

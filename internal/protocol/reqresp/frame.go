package reqresp

import (
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-p2pcore/pkg/lib/codec"
)

// RequestID 请求标识，由发起方分配并随响应返回
type RequestID uint64

const (
	fieldID      protowire.Number = 1
	fieldPayload protowire.Number = 2
)

// frame 线上的一条请求或响应
type frame struct {
	ID      RequestID
	Payload []byte
}

func (f frame) marshal() []byte {
	b := make([]byte, 0, 2+protowire.SizeVarint(uint64(f.ID))+protowire.SizeBytes(len(f.Payload)))
	b = protowire.AppendTag(b, fieldID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(f.ID))
	b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
	b = protowire.AppendBytes(b, f.Payload)
	return b
}

// unmarshalFrame 解析帧，忽略未知字段
func unmarshalFrame(b []byte) (frame, error) {
	var f frame
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return frame{}, fmt.Errorf("%w: %w", ErrMalformedFrame, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return frame{}, fmt.Errorf("%w: %w", ErrMalformedFrame, protowire.ParseError(n))
			}
			f.ID = RequestID(v)
			b = b[n:]
		case num == fieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return frame{}, fmt.Errorf("%w: %w", ErrMalformedFrame, protowire.ParseError(n))
			}
			f.Payload = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return frame{}, fmt.Errorf("%w: %w", ErrMalformedFrame, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return f, nil
}

// frameCodec 子流上的帧编解码
type frameCodec struct {
	maxSize int
}

func (c frameCodec) ReadMessage(r io.Reader) (any, error) {
	b, err := codec.ReadFrame(r, c.maxSize)
	if err != nil {
		return nil, err
	}
	return unmarshalFrame(b)
}

func (c frameCodec) WriteMessage(w io.Writer, msg any) error {
	f, ok := msg.(frame)
	if !ok {
		return fmt.Errorf("%w: %T", ErrMalformedFrame, msg)
	}
	b := f.marshal()
	if len(b) > c.maxSize {
		return fmt.Errorf("%w: %d > %d", codec.ErrFrameTooLarge, len(b), c.maxSize)
	}
	return codec.WriteFrame(w, b)
}

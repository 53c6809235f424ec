// Package codec 提供 varint 长度前缀的帧编解码
//
// 帧格式: uvarint(len) || payload
//
// 用于 plaintext 握手与请求/响应协议等需要在字节流上分帧的场景。
package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/multiformats/go-varint"
)

// DefaultMaxFrameSize 默认最大帧长度
const DefaultMaxFrameSize = 4 << 20

var (
	// ErrFrameTooLarge 帧长度超过上限
	ErrFrameTooLarge = errors.New("codec: frame too large")

	// ErrUnexpectedType 消息类型不是 []byte
	ErrUnexpectedType = errors.New("codec: message must be []byte")
)

// WriteFrame 写入一个长度前缀帧
func WriteFrame(w io.Writer, payload []byte) error {
	buf := make([]byte, 0, varint.UvarintSize(uint64(len(payload)))+len(payload))
	buf = append(buf, varint.ToUvarint(uint64(len(payload)))...)
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}

// ReadFrame 读取一个长度前缀帧
//
// 长度超过 maxSize 时返回 ErrFrameTooLarge。
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = &byteReader{r: r}
	}
	n, err := varint.ReadUvarint(br)
	if err != nil {
		return nil, err
	}
	if n > uint64(maxSize) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, maxSize)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// NewReader 返回带缓冲的读取器，可重复用于 ReadFrame
func NewReader(r io.Reader) *bufio.Reader {
	return bufio.NewReader(r)
}

type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(b.r, b.buf[:]); err != nil {
		return 0, err
	}
	return b.buf[0], nil
}

// ============================================================================
//                              LengthPrefixed
// ============================================================================

// LengthPrefixed 以 []byte 为消息的长度前缀编解码器
type LengthPrefixed struct {
	MaxFrameSize int
}

// NewLengthPrefixed 创建编解码器，maxSize<=0 时使用默认上限
func NewLengthPrefixed(maxSize int) *LengthPrefixed {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	return &LengthPrefixed{MaxFrameSize: maxSize}
}

// ReadMessage 读取一条消息
func (c *LengthPrefixed) ReadMessage(r io.Reader) (any, error) {
	return ReadFrame(r, c.MaxFrameSize)
}

// WriteMessage 写入一条消息
func (c *LengthPrefixed) WriteMessage(w io.Writer, msg any) error {
	b, ok := msg.([]byte)
	if !ok {
		return ErrUnexpectedType
	}
	if len(b) > c.MaxFrameSize {
		return ErrFrameTooLarge
	}
	return WriteFrame(w, b)
}

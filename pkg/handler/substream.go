package handler

import (
	"bufio"

	"github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// Substream 在子流上以轮询方式收发消息
//
// 每个方向同一时刻最多一个操作在边缘 goroutine 中执行。
// 超时由 Handler 自己负责：到期后调用 Reset，阻塞中的读写随即返回错误。
type Substream struct {
	stream   interfaces.MuxedStream
	protocol types.ProtocolID
	codec    interfaces.Codec
	reader   *bufio.Reader

	read  *poll.Task[any]
	write *poll.Task[struct{}]
}

// NewSubstream 包装已协商的子流
func NewSubstream(stream interfaces.MuxedStream, protocol types.ProtocolID, codec interfaces.Codec) *Substream {
	return &Substream{
		stream:   stream,
		protocol: protocol,
		codec:    codec,
		reader:   bufio.NewReader(stream),
	}
}

// Protocol 子流协议
func (s *Substream) Protocol() types.ProtocolID {
	return s.protocol
}

// Stream 底层子流
func (s *Substream) Stream() interfaces.MuxedStream {
	return s.stream
}

// PollRead 读取下一条消息
//
// 没有读操作在进行时自动启动一个。
func (s *Substream) PollRead(cx *poll.Context) (any, bool, error) {
	if s.read == nil {
		s.read = poll.Go(func() (any, error) {
			return s.codec.ReadMessage(s.reader)
		})
	}
	msg, ready, err := s.read.Poll(cx)
	if ready {
		s.read = nil
	}
	return msg, ready, err
}

// Send 启动写入，已有写操作未完成时返回 ErrSubstreamBusy
func (s *Substream) Send(msg any) error {
	if s.write != nil {
		return ErrSubstreamBusy
	}
	s.write = poll.Go(func() (struct{}, error) {
		return struct{}{}, s.codec.WriteMessage(s.stream, msg)
	})
	return nil
}

// SendAndCloseWrite 写入后半关闭写端
func (s *Substream) SendAndCloseWrite(msg any) error {
	if s.write != nil {
		return ErrSubstreamBusy
	}
	s.write = poll.Go(func() (struct{}, error) {
		if err := s.codec.WriteMessage(s.stream, msg); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, s.stream.CloseWrite()
	})
	return nil
}

// PollFlush 等待写操作完成，没有写操作时立即就绪
func (s *Substream) PollFlush(cx *poll.Context) (bool, error) {
	if s.write == nil {
		return true, nil
	}
	_, ready, err := s.write.Poll(cx)
	if ready {
		s.write = nil
	}
	return ready, err
}

// Busy 是否有读写操作在进行
func (s *Substream) Busy() bool {
	return s.read != nil || s.write != nil
}

// Close 正常关闭子流
func (s *Substream) Close() error {
	return s.stream.Close()
}

// Reset 异常关闭子流
func (s *Substream) Reset() error {
	return s.stream.Reset()
}

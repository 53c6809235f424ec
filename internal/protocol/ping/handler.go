package ping

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-p2pcore/internal/core/negotiate"
	"github.com/dep2p/go-p2pcore/pkg/handler"
	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// maxInbound 每条连接同时回应的入站子流上限
const maxInbound = 2

// Result 一次 ping 的结果，由 Handler 产生
type Result struct {
	RTT time.Duration
	Err error
}

// Handler 单条连接上的 ping 状态机
type Handler struct {
	cfg   Config
	clock clock.Clock

	// next 下一次 ping 的时间，nil 表示立即
	next *poll.Delay

	stream  pkgif.MuxedStream
	opening bool
	task    *poll.Task[time.Duration]
	timeout *poll.Delay

	inbound []*inboundEcho

	// report 待报告的结果（来自 OnConnectionEvent）
	report      *Result
	unsupported bool
	failures    int
}

type inboundEcho struct {
	stream pkgif.MuxedStream
	task   *poll.Task[struct{}]
}

var _ pkgif.ConnectionHandler = (*Handler)(nil)

func newHandler(cfg Config, clk clock.Clock) *Handler {
	return &Handler{cfg: cfg, clock: clk}
}

// ListenProtocols 实现 ConnectionHandler
func (h *Handler) ListenProtocols() []types.ProtocolID {
	return []types.ProtocolID{Protocol}
}

// OnCommand ping 没有命令
func (h *Handler) OnCommand(any) {}

// OnConnectionEvent 实现 ConnectionHandler
func (h *Handler) OnConnectionEvent(ev pkgif.ConnectionEvent) {
	switch e := ev.(type) {
	case pkgif.FullyNegotiatedOutbound:
		h.opening = false
		h.stream = e.Stream

	case pkgif.DialUpgradeError:
		h.opening = false
		if errors.Is(e.Err, negotiate.ErrNegotiationFailed) && !errors.Is(e.Err, context.DeadlineExceeded) {
			h.unsupported = true
			h.report = &Result{Err: ErrUnsupported}
			return
		}
		h.failures++
		h.report = &Result{Err: e.Err}
		h.next = poll.NewDelay(h.clock.Now(), h.cfg.Interval)

	case pkgif.FullyNegotiatedInbound:
		if len(h.inbound) >= maxInbound {
			_ = e.Stream.Reset()
			return
		}
		s := e.Stream
		h.inbound = append(h.inbound, &inboundEcho{
			stream: s,
			task:   poll.Go(func() (struct{}, error) { return echo(s) }),
		})
	}
}

// Poll 实现 ConnectionHandler
func (h *Handler) Poll(cx *poll.Context) pkgif.HandlerAction {
	if h.report != nil {
		r := *h.report
		h.report = nil
		return handler.Notify(r)
	}

	h.pollInbound(cx)

	if h.task != nil {
		rtt, ready, err := h.task.Poll(cx)
		switch {
		case ready:
			h.finishPing(cx)
			if err != nil {
				h.failures++
				h.closeStream()
				return handler.Notify(Result{Err: err})
			}
			h.failures = 0
			return handler.Notify(Result{RTT: rtt})
		case h.timeout.Poll(cx):
			h.finishPing(cx)
			h.failures++
			h.closeStream()
			return handler.Notify(Result{Err: types.ErrProtocolTimeout})
		default:
			return handler.Pending()
		}
	}

	if h.unsupported || h.opening {
		return handler.Pending()
	}
	if h.next != nil && !h.next.Poll(cx) {
		return handler.Pending()
	}

	if h.stream == nil {
		h.opening = true
		return handler.OpenStream(nil, Protocol)
	}

	s, clk := h.stream, cx.Clock()
	h.task = poll.Go(func() (time.Duration, error) { return roundTrip(s, clk) })
	h.timeout = poll.NewDelay(cx.Now(), h.cfg.Timeout)
	_, _, _ = h.task.Poll(cx)
	h.timeout.Poll(cx)
	return handler.Pending()
}

func (h *Handler) pollInbound(cx *poll.Context) {
	kept := h.inbound[:0]
	for _, in := range h.inbound {
		if _, ready, err := in.task.Poll(cx); ready {
			if err != nil {
				logger.Debug("入站 ping 结束", "error", err)
			}
			_ = in.stream.Close()
			continue
		}
		kept = append(kept, in)
	}
	h.inbound = kept
}

// finishPing 结束当前 ping 并安排下一次
func (h *Handler) finishPing(cx *poll.Context) {
	h.task = nil
	h.timeout.Stop()
	h.timeout = nil
	h.next = poll.NewDelay(cx.Now(), h.cfg.Interval)
}

func (h *Handler) closeStream() {
	if h.stream != nil {
		_ = h.stream.Reset()
		h.stream = nil
	}
}

// KeepAlive 支持时保持连接
func (h *Handler) KeepAlive() bool {
	return !h.unsupported
}

// PollClose 关闭所有子流
func (h *Handler) PollClose(*poll.Context) (any, bool) {
	h.closeStream()
	for _, in := range h.inbound {
		_ = in.stream.Reset()
	}
	h.inbound = nil
	if h.timeout != nil {
		h.timeout.Stop()
	}
	if h.next != nil {
		h.next.Stop()
	}
	return nil, true
}

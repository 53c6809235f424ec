package reqresp

import (
	"context"
	"errors"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-p2pcore/internal/core/negotiate"
	"github.com/dep2p/go-p2pcore/pkg/handler"
	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// ============================================================================
//                              命令与事件
// ============================================================================

// sendRequest Behaviour -> Handler: 发出请求
type sendRequest struct {
	ID      RequestID
	Payload []byte
}

// sendResponse Behaviour -> Handler: 回应入站请求
type sendResponse struct {
	Key     uint64
	Payload []byte
}

// Handler -> Behaviour 事件
type (
	response struct {
		ID      RequestID
		Payload []byte
	}
	outboundFailure struct {
		ID  RequestID
		Err error
	}
	request struct {
		Key      uint64
		ID       RequestID
		Protocol types.ProtocolID
		Payload  []byte
	}
	responseSent struct {
		ID RequestID
	}
	inboundFailure struct {
		ID  RequestID
		Err error
	}
)

// ============================================================================
//                              Handler
// ============================================================================

type outbound struct {
	id      RequestID
	payload []byte
	timeout *poll.Delay

	opening bool
	sub     *handler.Substream
	sent    bool
}

type inboundState int

const (
	inboundReading inboundState = iota
	inboundWaiting
	inboundWriting
)

type inbound struct {
	key     uint64
	id      RequestID
	sub     *handler.Substream
	timeout *poll.Delay
	state   inboundState
}

// Handler 单条连接上的请求/响应状态机
type Handler struct {
	cfg   Config
	clock clock.Clock
	codec frameCodec

	// outbound 按提交顺序排列
	outbound []*outbound
	inbound  []*inbound
	nextKey  uint64

	events  []any
	closing bool
}

var _ pkgif.ConnectionHandler = (*Handler)(nil)

func newHandler(cfg Config, clk clock.Clock) *Handler {
	return &Handler{cfg: cfg, clock: clk, codec: frameCodec{maxSize: cfg.MaxMessageSize}}
}

// ListenProtocols 实现 ConnectionHandler
func (h *Handler) ListenProtocols() []types.ProtocolID {
	return h.cfg.Protocols
}

// OnCommand 实现 ConnectionHandler
func (h *Handler) OnCommand(cmd any) {
	switch c := cmd.(type) {
	case sendRequest:
		h.outbound = append(h.outbound, &outbound{
			id:      c.ID,
			payload: c.Payload,
			timeout: poll.NewDelay(h.clock.Now(), h.cfg.RequestTimeout),
		})

	case sendResponse:
		for _, in := range h.inbound {
			if in.key != c.Key || in.state != inboundWaiting {
				continue
			}
			if err := in.sub.SendAndCloseWrite(frame{ID: in.id, Payload: c.Payload}); err != nil {
				logger.Debug("写入响应失败", "request", in.id, "error", err)
				return
			}
			in.state = inboundWriting
			return
		}
		// 请求已超时或连接正在关闭
		logger.Debug("响应对应的请求不存在", "key", c.Key)
	}
}

// OnConnectionEvent 实现 ConnectionHandler
func (h *Handler) OnConnectionEvent(ev pkgif.ConnectionEvent) {
	switch e := ev.(type) {
	case pkgif.FullyNegotiatedOutbound:
		id, _ := e.Info.(RequestID)
		o := h.findOutbound(id)
		if o == nil {
			_ = e.Stream.Reset()
			return
		}
		o.opening = false
		o.sub = handler.NewSubstream(e.Stream, e.Protocol, h.codec)
		if err := o.sub.SendAndCloseWrite(frame{ID: o.id, Payload: o.payload}); err != nil {
			h.failOutbound(o, err)
		}

	case pkgif.DialUpgradeError:
		id, _ := e.Info.(RequestID)
		o := h.findOutbound(id)
		if o == nil {
			return
		}
		h.failOutbound(o, classifyUpgradeError(e.Err))

	case pkgif.FullyNegotiatedInbound:
		if h.closing || h.active() >= h.cfg.MaxConcurrentStreams {
			_ = e.Stream.Reset()
			h.events = append(h.events, inboundFailure{Err: ErrTooManyStreams})
			return
		}
		h.nextKey++
		h.inbound = append(h.inbound, &inbound{
			key:     h.nextKey,
			sub:     handler.NewSubstream(e.Stream, e.Protocol, h.codec),
			timeout: poll.NewDelay(h.clock.Now(), h.cfg.RequestTimeout),
		})

	case pkgif.ListenUpgradeError:
		logger.Debug("入站子流协商失败", "error", e.Err)
	}
}

func classifyUpgradeError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return types.ErrProtocolTimeout
	case errors.Is(err, negotiate.ErrNegotiationFailed):
		return ErrUnsupported
	default:
		return err
	}
}

// Poll 实现 ConnectionHandler
//
// 每次最多报告一个事件或请求打开一个子流。
func (h *Handler) Poll(cx *poll.Context) pkgif.HandlerAction {
	if ev, ok := h.popEvent(); ok {
		return handler.Notify(ev)
	}

	h.pollOutbound(cx)
	h.pollInbound(cx)

	if ev, ok := h.popEvent(); ok {
		return handler.Notify(ev)
	}

	if h.active() < h.cfg.MaxConcurrentStreams {
		for _, o := range h.outbound {
			if !o.opening && o.sub == nil {
				o.opening = true
				return handler.OpenStream(o.id, h.cfg.Protocols...)
			}
		}
	}
	return handler.Pending()
}

func (h *Handler) pollOutbound(cx *poll.Context) {
	kept := h.outbound[:0]
	for _, o := range h.outbound {
		if !h.progressOutbound(cx, o) {
			kept = append(kept, o)
		}
	}
	clear(h.outbound[len(kept):])
	h.outbound = kept
}

// progressOutbound 推进一个出站请求，结束时返回 true
func (h *Handler) progressOutbound(cx *poll.Context, o *outbound) bool {
	if o.timeout.Poll(cx) {
		h.finishOutbound(o, outboundFailure{ID: o.id, Err: types.ErrProtocolTimeout})
		return true
	}
	if o.sub == nil {
		return false
	}

	if !o.sent {
		ready, err := o.sub.PollFlush(cx)
		if !ready {
			return false
		}
		if err != nil {
			h.finishOutbound(o, outboundFailure{ID: o.id, Err: err})
			return true
		}
		o.sent = true
	}

	msg, ready, err := o.sub.PollRead(cx)
	if !ready {
		return false
	}
	if err != nil {
		h.finishOutbound(o, outboundFailure{ID: o.id, Err: err})
		return true
	}
	f := msg.(frame)
	if f.ID != o.id {
		h.finishOutbound(o, outboundFailure{ID: o.id, Err: ErrIDMismatch})
		return true
	}
	o.timeout.Stop()
	_ = o.sub.Close()
	h.events = append(h.events, response{ID: o.id, Payload: f.Payload})
	return true
}

// finishOutbound 以失败结束出站请求
func (h *Handler) finishOutbound(o *outbound, ev outboundFailure) {
	o.timeout.Stop()
	if o.sub != nil {
		_ = o.sub.Reset()
	}
	h.events = append(h.events, ev)
}

// failOutbound 在 pollOutbound 之外结束并移除出站请求
func (h *Handler) failOutbound(o *outbound, err error) {
	h.finishOutbound(o, outboundFailure{ID: o.id, Err: err})
	for i, x := range h.outbound {
		if x == o {
			h.outbound = append(h.outbound[:i], h.outbound[i+1:]...)
			return
		}
	}
}

func (h *Handler) pollInbound(cx *poll.Context) {
	kept := h.inbound[:0]
	for _, in := range h.inbound {
		if !h.progressInbound(cx, in) {
			kept = append(kept, in)
		}
	}
	clear(h.inbound[len(kept):])
	h.inbound = kept
}

// progressInbound 推进一个入站请求，结束时返回 true
func (h *Handler) progressInbound(cx *poll.Context, in *inbound) bool {
	if in.timeout.Poll(cx) {
		_ = in.sub.Reset()
		h.events = append(h.events, inboundFailure{ID: in.id, Err: types.ErrProtocolTimeout})
		return true
	}

	switch in.state {
	case inboundReading:
		msg, ready, err := in.sub.PollRead(cx)
		if !ready {
			return false
		}
		if err != nil {
			in.timeout.Stop()
			_ = in.sub.Reset()
			h.events = append(h.events, inboundFailure{Err: err})
			return true
		}
		f := msg.(frame)
		in.id = f.ID
		in.state = inboundWaiting
		h.events = append(h.events, request{Key: in.key, ID: f.ID, Protocol: in.sub.Protocol(), Payload: f.Payload})
		return false

	case inboundWriting:
		ready, err := in.sub.PollFlush(cx)
		if !ready {
			return false
		}
		in.timeout.Stop()
		if err != nil {
			_ = in.sub.Reset()
			h.events = append(h.events, inboundFailure{ID: in.id, Err: err})
			return true
		}
		_ = in.sub.Close()
		h.events = append(h.events, responseSent{ID: in.id})
		return true
	}
	return false
}

func (h *Handler) findOutbound(id RequestID) *outbound {
	for _, o := range h.outbound {
		if o.id == id {
			return o
		}
	}
	return nil
}

// active 正在使用或正在打开的子流数
func (h *Handler) active() int {
	n := len(h.inbound)
	for _, o := range h.outbound {
		if o.opening || o.sub != nil {
			n++
		}
	}
	return n
}

func (h *Handler) popEvent() (any, bool) {
	if len(h.events) == 0 {
		return nil, false
	}
	ev := h.events[0]
	h.events[0] = nil
	h.events = h.events[1:]
	return ev, true
}

// KeepAlive 有未完成的请求时保持连接
func (h *Handler) KeepAlive() bool {
	return len(h.outbound) > 0 || len(h.inbound) > 0 || len(h.events) > 0
}

// PollClose 把所有未完成的请求转为失败事件逐个交出
func (h *Handler) PollClose(*poll.Context) (any, bool) {
	if !h.closing {
		h.closing = true
		for _, o := range h.outbound {
			h.finishOutbound(o, outboundFailure{ID: o.id, Err: types.ErrConnectionClosed})
		}
		h.outbound = nil
		for _, in := range h.inbound {
			in.timeout.Stop()
			_ = in.sub.Reset()
			if in.state != inboundReading {
				h.events = append(h.events, inboundFailure{ID: in.id, Err: types.ErrConnectionClosed})
			}
		}
		h.inbound = nil
	}

	ev, ok := h.popEvent()
	if !ok {
		return nil, true
	}
	return ev, len(h.events) == 0
}

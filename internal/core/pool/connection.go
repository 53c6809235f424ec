package pool

import (
	"context"
	"time"

	"github.com/dep2p/go-p2pcore/internal/core/negotiate"
	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/lib/queue"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// handlerStepBudget 每个周期内单个 Handler 最多被连续 Poll 的次数
const handlerStepBudget = 8

// ConnState 已建立连接的状态
type ConnState int

const (
	// ConnIdle 没有在途子流，Handler 不要求保持
	ConnIdle ConnState = iota
	// ConnActive 有在途子流或 Handler 要求保持
	ConnActive
	// ConnClosing 正在排空
	ConnClosing
)

// String 返回状态名
func (s ConnState) String() string {
	switch s {
	case ConnActive:
		return "active"
	case ConnClosing:
		return "closing"
	default:
		return "idle"
	}
}

// negotiated 子流协商结果
type negotiated struct {
	protocol types.ProtocolID
	stream   pkgif.MuxedStream
}

type outboundUpgrade struct {
	info any
	task *poll.Task[negotiated]
}

// connection 已建立的连接
type connection struct {
	info    types.ConnectionInfo
	conn    pkgif.UpgradedConn
	handler pkgif.ConnectionHandler
	waker   poll.Waker

	// ctx 在开始关闭时取消，中止在途的子流协商
	ctx    context.Context
	cancel context.CancelFunc

	commands *queue.Bounded[any]

	accept    *poll.Task[pkgif.MuxedStream]
	inbound   []*poll.Task[negotiated]
	outbound  []*outboundUpgrade
	requested *pkgif.HandlerAction

	idle *poll.Delay

	closing     bool
	drained     bool
	closeReason types.CloseReason
	closeErr    error
	drain       *poll.Delay
}

func newConnection(p *Pool, info types.ConnectionInfo, conn pkgif.UpgradedConn, h pkgif.ConnectionHandler) *connection {
	ctx, cancel := context.WithCancel(p.ctx)
	id := info.ID
	return &connection{
		info:     info,
		conn:     conn,
		handler:  h,
		waker:    poll.WakerFunc(func() { p.markReady(id) }),
		ctx:      ctx,
		cancel:   cancel,
		commands: queue.NewBounded[any](p.cfg.CommandQueueSize),
	}
}

// busy 是否有在途的子流或待处理的命令
func (c *connection) busy() bool {
	return len(c.inbound) > 0 || len(c.outbound) > 0 || c.requested != nil || !c.commands.Empty()
}

func (c *connection) state() ConnState {
	switch {
	case c.closing:
		return ConnClosing
	case c.busy() || c.handler.KeepAlive():
		return ConnActive
	default:
		return ConnIdle
	}
}

// beginClose 进入关闭状态
//
// 丢弃排队命令，中止在途协商；排空由 pollClosing 完成。
func (c *connection) beginClose(reason types.CloseReason, err error) {
	if c.closing {
		return
	}
	c.closing = true
	c.closeReason = reason
	c.closeErr = err
	c.commands.Clear()
	c.requested = nil
	c.cancel()
	if c.idle != nil {
		c.idle.Stop()
		c.idle = nil
	}
	c.waker.Wake()
	logger.Debug("连接开始关闭", "conn", c.info.ID, "reason", reason, "error", err)
}

// ============================================================================
//                              子流协商（边缘 goroutine）
// ============================================================================

func (c *connection) startOutbound(cx *poll.Context, protocols []types.ProtocolID, info any, timeout time.Duration) {
	ctx, conn := c.ctx, c.conn
	task := poll.Go(func() (negotiated, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		s, err := conn.OpenStream(ctx)
		if err != nil {
			return negotiated{}, err
		}
		proto, err := negotiate.Select(ctx, s, protocols)
		if err != nil {
			_ = s.Reset()
			return negotiated{}, err
		}
		return negotiated{protocol: proto, stream: s}, nil
	})
	// 立即登记唤醒，完成时连接会被标记就绪
	_, _, _ = task.Poll(cx)
	c.outbound = append(c.outbound, &outboundUpgrade{info: info, task: task})
}

func (c *connection) startInbound(cx *poll.Context, s pkgif.MuxedStream, protocols []types.ProtocolID, timeout time.Duration) {
	ctx := c.ctx
	task := poll.Go(func() (negotiated, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		proto, err := negotiate.Listen(ctx, s, protocols)
		if err != nil {
			_ = s.Reset()
			return negotiated{}, err
		}
		return negotiated{protocol: proto, stream: s}, nil
	})
	_, _, _ = task.Poll(cx)
	c.inbound = append(c.inbound, task)
}

// ============================================================================
//                              轮询
// ============================================================================

// pollClosing 排空关闭中的连接，完成后移除并产生 ConnectionClosed
func (p *Pool) pollClosing(cx *poll.Context, c *connection) bool {
	if p.events.Full() {
		p.stall(c.info.ID)
		return false
	}

	if !c.drained {
		if c.drain == nil {
			c.drain = poll.NewDelay(cx.Now(), p.cfg.GracefulCloseTimeout)
		}
		ev, done := c.handler.PollClose(cx)
		if ev != nil {
			p.events.TryPush(types.HandlerEvent{Peer: c.info.Peer, ID: c.info.ID, Event: ev})
			c.drained = done
			c.waker.Wake()
			return true
		}
		if !done && !c.drain.Poll(cx) {
			return false
		}
		c.drained = true
	}

	c.drain.Stop()
	_ = c.conn.Close()
	p.removeConn(c)

	logger.Debug("连接已关闭", "conn", c.info.ID, "peer", c.info.Peer.ShortString(), "reason", c.closeReason)
	p.events.TryPush(types.ConnectionClosed{
		Info:      c.info,
		Reason:    c.closeReason,
		Err:       c.closeErr,
		Remaining: len(p.byPeer[c.info.Peer]),
	})
	return true
}

// pollOutbound 把完成的出站子流协商交给 Handler
func (p *Pool) pollOutbound(cx *poll.Context, c *connection) bool {
	progress := false
	kept := c.outbound[:0]
	for _, o := range c.outbound {
		n, ready, err := o.task.Poll(cx)
		if !ready {
			kept = append(kept, o)
			continue
		}
		progress = true
		if err != nil {
			c.handler.OnConnectionEvent(pkgif.DialUpgradeError{Info: o.info, Err: err})
			continue
		}
		c.handler.OnConnectionEvent(pkgif.FullyNegotiatedOutbound{Protocol: n.protocol, Stream: n.stream, Info: o.info})
	}
	clear(c.outbound[len(kept):])
	c.outbound = kept
	return progress
}

// pollHandler 投递排队命令并轮询 Handler
func (p *Pool) pollHandler(cx *poll.Context, c *connection) bool {
	progress := false

	for {
		cmd, ok := c.commands.Pop()
		if !ok {
			break
		}
		c.handler.OnCommand(cmd)
		progress = true
	}

	exhausted := true
	for step := 0; step < handlerStepBudget; step++ {
		if c.requested != nil {
			if len(c.outbound) >= p.cfg.MaxNegotiatingOutboundStreams {
				// 等待协商槽位，完成的协商会唤醒连接
				exhausted = false
				break
			}
			c.startOutbound(cx, c.requested.Protocols, c.requested.Info, p.cfg.SubstreamUpgradeTimeout)
			c.requested = nil
			progress = true
		}

		// Handler 可能产生事件，队列必须有空间
		if p.events.Full() {
			p.stall(c.info.ID)
			exhausted = false
			break
		}

		a := c.handler.Poll(cx)
		if a.Kind == pkgif.ActionPending {
			exhausted = false
			break
		}
		progress = true

		if a.Kind == pkgif.ActionOpenStream {
			c.requested = &a
			continue
		}
		if a.Kind == pkgif.ActionNotify {
			p.events.TryPush(types.HandlerEvent{Peer: c.info.Peer, ID: c.info.ID, Event: a.Event})
			// 每周期最多一个事件，Handler 可能还有更多
			c.waker.Wake()
		} else {
			c.beginClose(types.CloseReasonHandler, &types.HandlerError{Err: a.Err})
		}
		exhausted = false
		break
	}
	if exhausted {
		c.waker.Wake()
	}

	if c.closing {
		return progress
	}
	if p.pollIdle(cx, c) {
		progress = true
	}
	return progress
}

// pollIdle 空闲超时检查
func (p *Pool) pollIdle(cx *poll.Context, c *connection) bool {
	if c.busy() || c.handler.KeepAlive() {
		if c.idle != nil {
			c.idle.Stop()
			c.idle = nil
		}
		return false
	}
	if c.idle == nil {
		c.idle = poll.NewDelay(cx.Now(), p.cfg.IdleConnectionTimeout)
	}
	if !c.idle.Poll(cx) {
		return false
	}
	c.beginClose(types.CloseReasonKeepAliveTimeout, nil)
	return true
}

// pollInbound 处理完成的入站子流协商并接受新子流
func (p *Pool) pollInbound(cx *poll.Context, c *connection) bool {
	progress := false

	kept := c.inbound[:0]
	for _, t := range c.inbound {
		n, ready, err := t.Poll(cx)
		if !ready {
			kept = append(kept, t)
			continue
		}
		progress = true
		if err != nil {
			c.handler.OnConnectionEvent(pkgif.ListenUpgradeError{Err: err})
			continue
		}
		c.handler.OnConnectionEvent(pkgif.FullyNegotiatedInbound{Protocol: n.protocol, Stream: n.stream})
	}
	clear(c.inbound[len(kept):])
	c.inbound = kept

	for len(c.inbound) < p.cfg.MaxNegotiatingInboundStreams {
		if c.accept == nil {
			conn := c.conn
			c.accept = poll.Go(conn.AcceptStream)
		}
		s, ready, err := c.accept.Poll(cx)
		if !ready {
			break
		}
		c.accept = nil
		progress = true
		if err != nil {
			// 对端关闭或 I/O 失败
			c.beginClose(types.CloseReasonIO, err)
			return true
		}
		protos := c.handler.ListenProtocols()
		if len(protos) == 0 {
			_ = s.Reset()
			continue
		}
		c.startInbound(cx, s, protos, p.cfg.SubstreamUpgradeTimeout)
	}

	if progress {
		// 交给 Handler 的子流需要在下个周期被处理
		c.waker.Wake()
	}
	return progress
}

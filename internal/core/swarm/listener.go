package swarm

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/time/rate"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// listener 一个活跃的监听器
type listener struct {
	id     types.ListenerID
	inner  pkgif.Listener
	addrs  []types.Multiaddr
	cancel context.CancelFunc

	// removed 由 RemoveListener 设置，之后的 Accept 错误不再视为故障
	removed atomic.Bool
}

// listenerItem 监听 goroutine 交给轮询线程的结果
type listenerItem struct {
	listener types.ListenerID

	// conn 已接受的原始连接
	conn pkgif.RawConn

	// addr 新的监听地址
	addr types.Multiaddr

	// closed 监听器已结束，err 非 nil 表示异常结束
	closed bool
	err    error
}

// ============================================================================
//                              嵌入方 API
// ============================================================================

// ListenOn 在地址上开始监听
//
// 监听地址通过 NewListenAddr 事件报告。
func (s *Swarm) ListenOn(addr types.Multiaddr) (types.ListenerID, error) {
	if s.closed {
		return 0, ErrSwarmClosed
	}

	var tr pkgif.Transport
	for _, t := range s.transports {
		if t.CanDial(addr) {
			tr = t
			break
		}
	}
	if tr == nil {
		return 0, &types.AddressError{Addr: types.AddrString(addr), Err: ErrNoTransport}
	}

	inner, err := tr.Listen(addr)
	if err != nil {
		return 0, fmt.Errorf("listen %s: %w", types.AddrString(addr), err)
	}

	s.nextListener++
	ctx, cancel := context.WithCancel(s.ctx)
	l := &listener{id: s.nextListener, inner: inner, cancel: cancel}
	s.listeners[l.id] = l

	s.group.Go(func() error {
		s.acceptLoop(ctx, l)
		return nil
	})

	logger.Info("开始监听", "listener", l.id, "addr", types.AddrString(inner.Multiaddr()))
	return l.id, nil
}

// RemoveListener 关闭监听器
//
// 关闭完成后产生 ListenerClosed 事件。
func (s *Swarm) RemoveListener(id types.ListenerID) bool {
	l, ok := s.listeners[id]
	if !ok || l.removed.Load() {
		return false
	}
	l.removed.Store(true)
	l.cancel()
	if err := l.inner.Close(); err != nil {
		logger.Debug("关闭监听器出错", "listener", id, "error", err)
	}
	return true
}

// ListenAddrs 返回所有活跃监听器的地址
func (s *Swarm) ListenAddrs() []types.Multiaddr {
	var out []types.Multiaddr
	for _, l := range s.sortedListeners() {
		if l.removed.Load() {
			continue
		}
		out = append(out, l.addrs...)
	}
	return out
}

// ============================================================================
//                              监听 goroutine
// ============================================================================

// acceptLoop 接受连接并送往轮询线程
//
// 每个监听器一个 goroutine；接受速率受令牌桶限制，入站队列满时阻塞。
func (s *Swarm) acceptLoop(ctx context.Context, l *listener) {
	limiter := rate.NewLimiter(rate.Limit(s.cfg.AcceptRate), s.cfg.AcceptBurst)

	if !s.deliver(ctx, listenerItem{listener: l.id, addr: l.inner.Multiaddr()}) {
		s.finishListener(l, nil)
		return
	}

	for {
		if err := limiter.Wait(ctx); err != nil {
			s.finishListener(l, nil)
			return
		}

		raw, err := l.inner.Accept()
		if err != nil {
			if l.removed.Load() || ctx.Err() != nil {
				err = nil
			}
			s.finishListener(l, err)
			return
		}

		if !s.deliver(ctx, listenerItem{listener: l.id, conn: raw}) {
			_ = raw.Close()
			s.finishListener(l, nil)
			return
		}
	}
}

// finishListener 关闭监听器并报告结束
func (s *Swarm) finishListener(l *listener, err error) {
	_ = l.inner.Close()
	if err != nil {
		logger.Warn("监听器异常结束", "listener", l.id, "error", err)
	}
	// 监听器已被移除时仍需报告，使用 Swarm 级别的 ctx
	s.deliver(s.ctx, listenerItem{listener: l.id, closed: true, err: err})
}

// deliver 把结果放入入站队列并唤醒轮询线程
func (s *Swarm) deliver(ctx context.Context, it listenerItem) bool {
	select {
	case s.inbound <- it:
		s.waker.Wake()
		return true
	case <-ctx.Done():
		return false
	}
}

// ============================================================================
//                              轮询线程
// ============================================================================

// pollListeners 处理监听器送来的结果
//
// 每个结果最多产生一个事件，因此只在事件队列有空间时取出。
func (s *Swarm) pollListeners() bool {
	progress := false
	for !s.out.Full() {
		select {
		case it := <-s.inbound:
			progress = true
			s.handleListenerItem(it)
		default:
			return progress
		}
	}
	return progress
}

func (s *Swarm) handleListenerItem(it listenerItem) {
	l := s.listeners[it.listener]

	switch {
	case it.closed:
		var addrs []types.Multiaddr
		if l != nil {
			addrs = l.addrs
			delete(s.listeners, it.listener)
		}
		s.emit(types.ListenerClosed{ListenerID: it.listener, Addrs: addrs, Err: it.err})

	case it.addr != nil:
		if l != nil {
			l.addrs = append(l.addrs, it.addr)
		}
		s.emit(types.NewListenAddr{ListenerID: it.listener, Addr: it.addr})

	case it.conn != nil:
		s.accept(it.listener, it.conn)
	}
}

// accept 把入站连接交给入站过滤与连接池
func (s *Swarm) accept(lid types.ListenerID, raw pkgif.RawConn) {
	local, remote := raw.LocalMultiaddr(), raw.RemoteMultiaddr()
	id := s.pool.ReserveID()

	if s.filter != nil {
		if err := s.filter.HandlePendingInbound(id, local, remote); err != nil {
			_ = raw.Close()
			logger.Debug("入站连接被拒绝", "conn", id, "remote", types.AddrString(remote), "error", err)
			s.emit(types.IncomingConnectionError{
				ID:         id,
				ListenerID: lid,
				LocalAddr:  local,
				RemoteAddr: remote,
				Err:        types.NewListenError(types.ListenErrorDenied, err),
			})
			return
		}
	}

	if _, err := s.pool.Accept(poolInbound(id, lid, raw)); err != nil {
		le := asListenError(err)
		if le.Kind == types.ListenErrorLimitExceeded {
			s.incomingRejected.Add(1)
		}
		s.emit(types.IncomingConnectionError{
			ID:         id,
			ListenerID: lid,
			LocalAddr:  local,
			RemoteAddr: remote,
			Err:        le,
		})
		return
	}

	s.emit(types.IncomingConnection{ID: id, ListenerID: lid, LocalAddr: local, RemoteAddr: remote})
}

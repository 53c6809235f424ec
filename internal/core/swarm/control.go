package swarm

import (
	"context"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// controlCmd 在轮询线程中执行的命令
type controlCmd func(s *Swarm)

// Control 跨 goroutine 的 Swarm 控制句柄
//
// 命令进入容量为 ControlQueueSize 的队列，在下一个周期的第 1 步执行。
// 队列已满时阻塞直到 ctx 结束。
type Control struct {
	s *Swarm
}

// Control 返回控制句柄
func (s *Swarm) Control() *Control {
	return &Control{s: s}
}

type result[T any] struct {
	v   T
	err error
}

// call 提交命令并等待结果
func call[T any](ctx context.Context, c *Control, fn func(s *Swarm) (T, error)) (T, error) {
	var zero T
	reply := make(chan result[T], 1)
	cmd := func(s *Swarm) {
		v, err := fn(s)
		reply <- result[T]{v: v, err: err}
	}

	select {
	case c.s.control <- cmd:
		c.s.waker.Wake()
	case <-c.s.done:
		return zero, ErrSwarmClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case r := <-reply:
		return r.v, r.err
	case <-c.s.done:
		return zero, ErrSwarmClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Dial 发起出站连接
func (c *Control) Dial(ctx context.Context, opts pkgif.DialOpts) (types.ConnectionID, error) {
	return call(ctx, c, func(s *Swarm) (types.ConnectionID, error) {
		return s.Dial(opts)
	})
}

// ListenOn 在地址上开始监听
func (c *Control) ListenOn(ctx context.Context, addr types.Multiaddr) (types.ListenerID, error) {
	return call(ctx, c, func(s *Swarm) (types.ListenerID, error) {
		return s.ListenOn(addr)
	})
}

// RemoveListener 关闭监听器
func (c *Control) RemoveListener(ctx context.Context, id types.ListenerID) error {
	_, err := call(ctx, c, func(s *Swarm) (struct{}, error) {
		if !s.RemoveListener(id) {
			return struct{}{}, ErrListenerNotFound
		}
		return struct{}{}, nil
	})
	return err
}

// CloseConnection 关闭连接，返回连接是否存在
func (c *Control) CloseConnection(ctx context.Context, id types.ConnectionID) (bool, error) {
	return call(ctx, c, func(s *Swarm) (bool, error) {
		return s.CloseConnection(id), nil
	})
}

// DisconnectPeer 关闭与节点的所有连接
func (c *Control) DisconnectPeer(ctx context.Context, peer types.PeerID) (int, error) {
	return call(ctx, c, func(s *Swarm) (int, error) {
		return s.DisconnectPeer(peer), nil
	})
}

// NotifyHandler 向连接的 Handler 投递命令
func (c *Control) NotifyHandler(ctx context.Context, id types.ConnectionID, cmd any) error {
	_, err := call(ctx, c, func(s *Swarm) (struct{}, error) {
		return struct{}{}, s.NotifyHandler(id, cmd)
	})
	return err
}

// ConnectedPeers 返回已连接节点
func (c *Control) ConnectedPeers(ctx context.Context) ([]types.PeerID, error) {
	return call(ctx, c, func(s *Swarm) ([]types.PeerID, error) {
		return s.ConnectedPeers(), nil
	})
}

// ListenAddrs 返回监听地址
func (c *Control) ListenAddrs(ctx context.Context) ([]types.Multiaddr, error) {
	return call(ctx, c, func(s *Swarm) ([]types.Multiaddr, error) {
		return s.ListenAddrs(), nil
	})
}

// Do 在轮询线程中执行任意函数
//
// 用于访问 Behaviour 等只能在轮询线程中使用的状态。
func (c *Control) Do(ctx context.Context, fn func(s *Swarm) error) error {
	_, err := call(ctx, c, func(s *Swarm) (struct{}, error) {
		return struct{}{}, fn(s)
	})
	return err
}

// Metrics 返回最近一次的快照
func (c *Control) Metrics() types.MetricsSnapshot {
	return c.s.Metrics()
}

// ============================================================================
//                              轮询线程
// ============================================================================

// drainControl 执行排队的控制命令
//
// 每个周期最多执行 ControlQueueSize 条，新提交的命令留到下个周期。
func (s *Swarm) drainControl() bool {
	n := len(s.control)
	for i := 0; i < n; i++ {
		select {
		case cmd := <-s.control:
			cmd(s)
		default:
			return i > 0
		}
	}
	return n > 0
}

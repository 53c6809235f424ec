package p2pcore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-p2pcore/internal/core/identity"
	"github.com/dep2p/go-p2pcore/internal/core/swarm"
	"github.com/dep2p/go-p2pcore/internal/core/transport"
	"github.com/dep2p/go-p2pcore/internal/protocol/ping"
	"github.com/dep2p/go-p2pcore/internal/protocol/reqresp"
	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/log"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var logger = log.Logger("p2pcore")

const (
	// startTimeout Fx App 启动超时
	startTimeout = 30 * time.Second

	// stopTimeout Fx App 停止超时
	stopTimeout = 30 * time.Second
)

// Node P2P 节点
//
// Swarm 在 Start 之后由内部的事件循环 goroutine 独占驱动；
// Node 的方法都可以从任意 goroutine 调用，调用通过 Control 句柄
// 在下一个轮询周期执行。
type Node struct {
	mu   sync.Mutex
	opts *options
	app  *fx.App

	// 由 Fx 注入
	identity   *identity.Identity
	swarm      *swarm.Swarm
	control    *swarm.Control
	transports []pkgif.Transport
	registry   *prometheus.Registry
	ping       *ping.Behaviour
	reqresp    *reqresp.Behaviour

	events  chan types.SwarmEvent
	dropped atomic.Uint64

	cancel   context.CancelFunc
	loopDone chan struct{}

	started bool
	closed  bool
}

// New 创建节点
//
// 节点创建后需要调用 Start 才开始监听与处理事件。
//
// 示例：
//
//	node, err := p2pcore.New(
//	    p2pcore.WithPreset(config.PresetServer),
//	    p2pcore.WithListenAddrs("/ip4/0.0.0.0/tcp/4001"),
//	)
func New(opts ...Option) (*Node, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	// 日志配置必须在最早期应用
	if o.setupLog {
		if err := log.Setup(o.config.Log.Options()); err != nil {
			return nil, fmt.Errorf("setup log: %w", err)
		}
	}

	node := &Node{
		opts:   o,
		events: make(chan types.SwarmEvent, o.config.Swarm.EventQueueSize),
	}

	var err error
	node.app, err = buildFxApp(o, node)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	return node, nil
}

// Start 快捷启动函数
//
// 等价于 New() + node.Start()。
func Start(ctx context.Context, opts ...Option) (*Node, error) {
	node, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := node.Start(ctx); err != nil {
		_ = node.Close()
		return nil, fmt.Errorf("start node: %w", err)
	}
	return node, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// Start 启动节点
//
//  1. 启动 Fx App（指标导出等）
//  2. 监听配置中的地址
//  3. 拨号已知节点
//  4. 启动事件循环
//
// 第 2、3 步在事件循环启动之前执行，可以直接调用 Swarm。
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if n.started {
		return ErrAlreadyStarted
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := n.app.Start(startCtx); err != nil {
		logger.Error("节点初始化失败", "error", err)
		return fmt.Errorf("initialize failed: %w", err)
	}
	n.started = true

	if err := n.listen(); err != nil {
		logger.Error("监听地址失败", "error", err)
		n.shutdown()
		return fmt.Errorf("listen failed: %w", err)
	}
	n.dialKnownPeers()

	// 事件循环启动后 Swarm 只能经由 Control 访问
	listening := len(n.swarm.ListenAddrs())

	runCtx, runCancel := context.WithCancel(context.Background())
	n.cancel = runCancel
	n.loopDone = make(chan struct{})
	go n.loop(runCtx)

	logger.Info("节点已启动",
		"peer", log.TruncateID(n.identity.PeerID().String(), 8),
		"addrs", listening)
	return nil
}

func (n *Node) listen() error {
	addrs, err := types.ParseMultiaddrs(n.opts.config.Transport.ListenAddrs)
	if err != nil {
		return err
	}
	for _, a := range addrs {
		if _, err := n.swarm.ListenOn(a); err != nil {
			return fmt.Errorf("%s: %w", a, err)
		}
	}
	return nil
}

// dialKnownPeers 拨号配置中的已知节点
//
// PeerID 为空时不校验对端身份；失败只记录日志。
func (n *Node) dialKnownPeers() {
	for _, kp := range n.opts.config.KnownPeers {
		var peer types.PeerID
		if kp.PeerID != "" {
			p, err := types.ParsePeerID(kp.PeerID)
			if err != nil {
				logger.Warn("已知节点 ID 无效", "peer", kp.PeerID, "error", err)
				continue
			}
			peer = p
		}
		addrs, err := types.ParseMultiaddrs(kp.Addrs)
		if err != nil {
			logger.Warn("已知节点地址无效", "peer", kp.PeerID, "error", err)
			continue
		}
		if _, err := n.swarm.Dial(pkgif.DialOpts{Peer: peer, Addrs: addrs}); err != nil {
			logger.Warn("拨号已知节点失败", "peer", kp.PeerID, "error", err)
		}
	}
}

// loop 事件循环，退出时在本 goroutine 中关闭 Swarm
func (n *Node) loop(ctx context.Context) {
	defer close(n.loopDone)

	if err := n.swarm.Run(ctx, n.dispatch); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("事件循环异常退出", "error", err)
	}
	if err := n.swarm.Close(); err != nil {
		logger.Warn("关闭 Swarm 出错", "error", err)
	}
	close(n.events)
}

// dispatch 把事件交给 Events 通道，通道满时丢弃
func (n *Node) dispatch(ev types.SwarmEvent) {
	select {
	case n.events <- ev:
	default:
		n.dropped.Add(1)
		logger.Debug("事件通道已满，丢弃事件", "event", ev)
	}
}

// Close 关闭节点
//
// 停止事件循环并关闭所有连接、监听器与传输。关闭后不可重新启动。
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	logger.Info("正在关闭节点")

	if n.cancel != nil {
		n.cancel()
		<-n.loopDone
		n.closed = true
		n.stopApp()
		logger.Info("节点已关闭")
		return nil
	}

	n.shutdown()
	return nil
}

// shutdown 在事件循环未运行时关闭所有组件
func (n *Node) shutdown() {
	n.closed = true
	if err := n.swarm.Close(); err != nil {
		logger.Warn("关闭 Swarm 出错", "error", err)
	}
	close(n.events)

	if n.started {
		n.stopApp()
		return
	}
	// Fx 未启动时不会执行 OnStop，直接关闭传输
	if err := transport.CloseAll(n.transports); err != nil {
		logger.Warn("关闭传输出错", "error", err)
	}
}

func (n *Node) stopApp() {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := n.app.Stop(ctx); err != nil {
		logger.Warn("停止 Fx 应用失败", "error", err)
	}
}

// running 检查事件循环是否在运行
func (n *Node) running() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch {
	case n.closed:
		return ErrNodeClosed
	case n.cancel == nil:
		return ErrNotStarted
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              基本信息
// ════════════════════════════════════════════════════════════════════════════

// ID 返回节点 ID
func (n *Node) ID() types.PeerID {
	return n.identity.PeerID()
}

// Identity 返回节点身份
func (n *Node) Identity() *identity.Identity {
	return n.identity
}

// Events 返回事件通道
//
// 节点关闭后通道被关闭。消费过慢时事件被丢弃，见 DroppedEvents。
func (n *Node) Events() <-chan types.SwarmEvent {
	return n.events
}

// DroppedEvents 因通道已满而丢弃的事件数
func (n *Node) DroppedEvents() uint64 {
	return n.dropped.Load()
}

// Control 返回 Swarm 的并发安全控制句柄
func (n *Node) Control() *swarm.Control {
	return n.control
}

// Registry 返回 Prometheus 注册表
func (n *Node) Registry() *prometheus.Registry {
	return n.registry
}

// Metrics 返回最近一次发布的指标快照
func (n *Node) Metrics() types.MetricsSnapshot {
	return n.control.Metrics()
}

// ════════════════════════════════════════════════════════════════════════════
//                              连接
// ════════════════════════════════════════════════════════════════════════════

// ListenAddrs 返回当前监听地址
func (n *Node) ListenAddrs(ctx context.Context) ([]types.Multiaddr, error) {
	if err := n.running(); err != nil {
		return nil, err
	}
	return n.control.ListenAddrs(ctx)
}

// Connect 拨号节点
//
// 地址同时写入请求/响应协议的地址簿。返回的连接 ID 可用于匹配
// ConnectionEstablished 或 DialFailure 事件。
func (n *Node) Connect(ctx context.Context, peer types.PeerID, addrs ...types.Multiaddr) (types.ConnectionID, error) {
	if err := n.running(); err != nil {
		return types.NoConnection, err
	}
	var id types.ConnectionID
	err := n.control.Do(ctx, func(s *swarm.Swarm) error {
		if n.reqresp != nil && !peer.IsEmpty() {
			for _, a := range addrs {
				n.reqresp.AddAddress(peer, a)
			}
		}
		var err error
		id, err = s.Dial(pkgif.DialOpts{Peer: peer, Addrs: addrs})
		return err
	})
	return id, err
}

// Disconnect 关闭与节点的所有连接，返回关闭的连接数
func (n *Node) Disconnect(ctx context.Context, peer types.PeerID) (int, error) {
	if err := n.running(); err != nil {
		return 0, err
	}
	return n.control.DisconnectPeer(ctx, peer)
}

// ConnectedPeers 返回已连接的节点
func (n *Node) ConnectedPeers(ctx context.Context) ([]types.PeerID, error) {
	if err := n.running(); err != nil {
		return nil, err
	}
	return n.control.ConnectedPeers(ctx)
}

// ════════════════════════════════════════════════════════════════════════════
//                              协议
// ════════════════════════════════════════════════════════════════════════════

// AddAddress 把节点地址加入请求/响应地址簿
func (n *Node) AddAddress(ctx context.Context, peer types.PeerID, addrs ...types.Multiaddr) error {
	if n.reqresp == nil {
		return ErrReqRespDisabled
	}
	if err := n.running(); err != nil {
		return err
	}
	return n.control.Do(ctx, func(*swarm.Swarm) error {
		for _, a := range addrs {
			n.reqresp.AddAddress(peer, a)
		}
		return nil
	})
}

// SendRequest 发送请求
//
// 结果以 reqresp.ResponseReceived 或 reqresp.OutboundFailure 事件
// 出现在 Events 中，用返回的 RequestID 匹配。
func (n *Node) SendRequest(ctx context.Context, peer types.PeerID, payload []byte) (reqresp.RequestID, error) {
	if n.reqresp == nil {
		return 0, ErrReqRespDisabled
	}
	if err := n.running(); err != nil {
		return 0, err
	}
	var id reqresp.RequestID
	err := n.control.Do(ctx, func(*swarm.Swarm) error {
		var err error
		id, err = n.reqresp.SendRequest(peer, payload)
		return err
	})
	return id, err
}

// SendResponse 回应 reqresp.RequestReceived 事件中的请求
func (n *Node) SendResponse(ctx context.Context, ch reqresp.ResponseChannel, payload []byte) error {
	if n.reqresp == nil {
		return ErrReqRespDisabled
	}
	if err := n.running(); err != nil {
		return err
	}
	return n.control.Do(ctx, func(*swarm.Swarm) error {
		return n.reqresp.SendResponse(ch, payload)
	})
}

// PingRTT 返回与节点最近一次成功 ping 的往返时间
func (n *Node) PingRTT(ctx context.Context, peer types.PeerID) (time.Duration, bool, error) {
	if n.ping == nil {
		return 0, false, ErrPingDisabled
	}
	if err := n.running(); err != nil {
		return 0, false, err
	}
	var (
		rtt time.Duration
		ok  bool
	)
	err := n.control.Do(ctx, func(*swarm.Swarm) error {
		rtt, ok = n.ping.RTT(peer)
		return nil
	})
	return rtt, ok, err
}

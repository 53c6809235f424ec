package swarm

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-p2pcore/internal/core/pool"
	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/log"
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/lib/queue"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var logger = log.Logger("core/swarm")

// Swarm 连接编排根
type Swarm struct {
	cfg        Config
	localPeer  types.PeerID
	instanceID string
	clock      clock.Clock

	transports []pkgif.Transport
	behaviour  pkgif.NetworkBehaviour
	filter     pkgif.InboundFilter
	pool       *pool.Pool

	// out 交给嵌入方的事件
	out *queue.Bounded[types.SwarmEvent]

	// held 因命令队列已满而推迟的 Behaviour 动作
	held *pkgif.BehaviourAction

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	nextListener types.ListenerID
	listeners    map[types.ListenerID]*listener
	inbound      chan listenerItem

	control chan controlCmd
	done    chan struct{}

	// waker 最近一次 Poll 登记的 Waker，监听与控制 goroutine 通过它唤醒
	waker  poll.AtomicWaker
	signal *poll.Signal
	cx     *poll.Context

	metrics          atomic.Pointer[types.MetricsSnapshot]
	cycles           uint64
	dialFailures     atomic.Uint64
	incomingRejected atomic.Uint64

	closed bool
}

// New 创建 Swarm
//
// 构造时的错误配置（零容量、没有传输、没有升级器或 Behaviour）直接返回错误。
func New(
	cfg Config,
	localPeer types.PeerID,
	transports []pkgif.Transport,
	up pkgif.Upgrader,
	behaviour pkgif.NetworkBehaviour,
	opts ...Option,
) (*Swarm, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(transports) == 0 {
		return nil, ErrNoTransport
	}
	if up == nil {
		return nil, ErrNilUpgrader
	}
	if behaviour == nil {
		return nil, ErrNilBehaviour
	}

	p, err := pool.New(cfg.Pool, localPeer, transports, up, behaviour.NewHandler)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Swarm{
		cfg:        cfg,
		localPeer:  localPeer,
		instanceID: uuid.NewString(),
		clock:      clock.New(),
		transports: transports,
		behaviour:  behaviour,
		pool:       p,
		out:        queue.NewBounded[types.SwarmEvent](cfg.EventQueueSize),
		ctx:        ctx,
		cancel:     cancel,
		listeners:  make(map[types.ListenerID]*listener),
		inbound:    make(chan listenerItem, cfg.InboundQueueSize),
		control:    make(chan controlCmd, cfg.ControlQueueSize),
		done:       make(chan struct{}),
		signal:     poll.NewSignal(),
	}
	if f, ok := behaviour.(pkgif.InboundFilter); ok {
		s.filter = f
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cx = poll.NewContext(s.signal, s.clock)
	s.publishMetrics()

	logger.Info("Swarm 已创建", "peer", localPeer.ShortString(), "instance", s.instanceID)
	return s, nil
}

// LocalPeer 返回本地节点 ID
func (s *Swarm) LocalPeer() types.PeerID {
	return s.localPeer
}

// InstanceID 返回实例标识
func (s *Swarm) InstanceID() string {
	return s.instanceID
}

// Behaviour 返回根 Behaviour
func (s *Swarm) Behaviour() pkgif.NetworkBehaviour {
	return s.behaviour
}

// ============================================================================
//                              轮询
// ============================================================================

// Poll 推进 Swarm，返回下一个事件
//
// 返回 false 表示没有事件：要么所有组件都已登记唤醒，要么本次调用的
// 周期预算耗尽并已自唤醒。
func (s *Swarm) Poll(cx *poll.Context) (types.SwarmEvent, bool) {
	s.waker.Register(cx.Waker())

	if ev, ok := s.out.Pop(); ok {
		return ev, true
	}
	if s.closed {
		return nil, false
	}

	for i := 0; i < s.cfg.PollBudget; i++ {
		progress := s.cycle(cx)
		s.publishMetrics()

		if ev, ok := s.out.Pop(); ok {
			return ev, true
		}
		if !progress {
			return nil, false
		}
	}

	// 预算耗尽，让出控制权
	cx.Waker().Wake()
	return nil, false
}

// cycle 执行一个周期，返回是否有进展
func (s *Swarm) cycle(cx *poll.Context) bool {
	s.cycles++
	progress := false

	// 1. 嵌入方命令与推迟的动作
	if s.drainControl() {
		progress = true
	}
	if s.held != nil {
		a := *s.held
		s.held = nil
		s.apply(a)
		if s.held == nil {
			progress = true
		}
	}

	// 2. 连接池
	if s.pool.Poll(cx) {
		progress = true
	}
	for !s.out.Full() {
		ev, ok := s.pool.NextEvent()
		if !ok {
			break
		}
		progress = true
		s.route(ev)
	}

	// 3. Behaviour 与新的入站工作
	if s.held == nil && !s.out.Full() {
		if a := s.behaviour.Poll(cx); a.Kind != pkgif.BehaviourPending {
			progress = true
			s.apply(a)
		}
	}
	if s.pollListeners() {
		progress = true
	}

	return progress
}

// route 分发 Pool 事件
func (s *Swarm) route(ev types.SwarmEvent) {
	if he, ok := ev.(types.HandlerEvent); ok {
		s.behaviour.OnHandlerEvent(he.Peer, he.ID, he.Event)
		return
	}
	s.emit(ev)
}

// emit 把事件交给 Behaviour 并排队给嵌入方
//
// 调用方保证事件队列有空间。
func (s *Swarm) emit(ev types.SwarmEvent) {
	if _, ok := ev.(types.DialFailure); ok {
		s.dialFailures.Add(1)
	}
	s.behaviour.OnSwarmEvent(ev)
	if !s.out.TryPush(ev) {
		logger.Warn("事件队列已满，丢弃事件", "event", ev)
	}
}

// apply 执行 Behaviour 动作
func (s *Swarm) apply(a pkgif.BehaviourAction) {
	switch a.Kind {
	case pkgif.BehaviourDial:
		id, err := s.pool.Dial(a.Dial)
		if err != nil {
			if errors.Is(err, pool.ErrPoolClosed) {
				return
			}
			s.emit(types.DialFailure{ID: id, Peer: a.Dial.Peer, Err: asDialError(err, a.Dial)})
			return
		}
		s.emit(types.Dialing{ID: id, Peer: a.Dial.Peer, Addr: firstAddr(a.Dial)})

	case pkgif.BehaviourNotifyHandler:
		target := a.Connection
		if !target.IsValid() {
			target = s.liveConnection(a.Peer)
			if !target.IsValid() {
				logger.Debug("没有到节点的可用连接，丢弃命令", "peer", a.Peer.ShortString())
				return
			}
		}
		if err := s.pool.NotifyHandler(target, a.Command); errors.Is(err, pool.ErrCommandQueueFull) {
			a.Connection = target
			s.held = &a
		}

	case pkgif.BehaviourCloseConnection:
		if a.Connection.IsValid() {
			s.pool.Close(a.Connection)
		} else {
			s.pool.DisconnectPeer(a.Peer)
		}

	case pkgif.BehaviourGenerateEvent:
		s.out.TryPush(types.BehaviourEvent{Event: a.Event})
	}
}

// liveConnection 返回与节点的第一条未在关闭的连接
func (s *Swarm) liveConnection(peer types.PeerID) types.ConnectionID {
	for _, id := range s.pool.ConnectionsTo(peer) {
		if st, ok := s.pool.ConnState(id); ok && st != pool.ConnClosing {
			return id
		}
	}
	return types.NoConnection
}

// ============================================================================
//                              驱动
// ============================================================================

// Next 等待下一个事件
//
// Swarm 关闭后返回 ErrSwarmClosed。
func (s *Swarm) Next(ctx context.Context) (types.SwarmEvent, error) {
	for {
		if ev, ok := s.Poll(s.cx); ok {
			return ev, nil
		}
		if s.closed {
			return nil, ErrSwarmClosed
		}
		select {
		case <-s.signal.C():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Run 持续驱动 Swarm 并把事件交给 fn，直到 ctx 结束或 Swarm 关闭
func (s *Swarm) Run(ctx context.Context, fn func(types.SwarmEvent)) error {
	for {
		ev, err := s.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrSwarmClosed) {
				return nil
			}
			return err
		}
		if fn != nil {
			fn(ev)
		}
	}
}

// ============================================================================
//                              嵌入方 API
// ============================================================================

// Dial 发起出站连接
//
// 只有地址无法路由（*types.AddressError）同步返回；超出上限、拨号到自身、
// 没有候选地址都以 DialFailure 事件出现在事件流中。连接池的失败队列已满时
// 错误同步返回并通知 Behaviour，不进入事件队列。
func (s *Swarm) Dial(opts pkgif.DialOpts) (types.ConnectionID, error) {
	if s.closed {
		return types.NoConnection, ErrSwarmClosed
	}
	id, err := s.pool.Dial(opts)
	if err != nil {
		if !errors.Is(err, pool.ErrPoolClosed) {
			ev := types.DialFailure{ID: id, Peer: opts.Peer, Err: asDialError(err, opts)}
			s.dialFailures.Add(1)
			s.behaviour.OnSwarmEvent(ev)
		}
		return id, err
	}
	s.behaviour.OnSwarmEvent(types.Dialing{ID: id, Peer: opts.Peer, Addr: firstAddr(opts)})
	return id, nil
}

// CloseConnection 关闭连接
//
// 升级中的连接恰好产生一个取消事件，已建立连接排空后产生 ConnectionClosed。
func (s *Swarm) CloseConnection(id types.ConnectionID) bool {
	return s.pool.Close(id)
}

// DisconnectPeer 关闭与节点的所有连接
func (s *Swarm) DisconnectPeer(peer types.PeerID) int {
	return s.pool.DisconnectPeer(peer)
}

// NotifyHandler 向连接的 Handler 投递命令
//
// 队列已满返回 pool.ErrCommandQueueFull，由调用方稍后重试。
func (s *Swarm) NotifyHandler(id types.ConnectionID, cmd any) error {
	return s.pool.NotifyHandler(id, cmd)
}

// ConnectedPeers 返回已连接节点
func (s *Swarm) ConnectedPeers() []types.PeerID {
	return s.pool.Peers()
}

// IsConnected 是否与节点有已建立连接
func (s *Swarm) IsConnected(peer types.PeerID) bool {
	return s.pool.IsConnected(peer)
}

// Connection 返回已建立连接的描述
func (s *Swarm) Connection(id types.ConnectionID) (types.ConnectionInfo, bool) {
	return s.pool.Connection(id)
}

// Metrics 返回最近一个周期结束时的快照，可从任意 goroutine 调用
func (s *Swarm) Metrics() types.MetricsSnapshot {
	return *s.metrics.Load()
}

func (s *Swarm) publishMetrics() {
	st := s.pool.Stats()
	listeners := 0
	for _, l := range s.listeners {
		if !l.removed.Load() {
			listeners++
		}
	}
	s.metrics.Store(&types.MetricsSnapshot{
		InstanceID:         s.instanceID,
		Timestamp:          s.clock.Now(),
		Cycles:             s.cycles,
		Established:        st.Established,
		PendingIncoming:    st.PendingIncoming,
		PendingOutgoing:    st.PendingOutgoing,
		Peers:              st.Peers,
		Listeners:          listeners,
		ActiveConnections:  st.Active,
		IdleConnections:    st.Idle,
		ClosingConnections: st.Closing,
		PoolEventQueue:     st.EventQueue,
		SwarmEventQueue:    s.out.Len(),
		CommandQueue:       st.CommandQueue,
		ControlQueue:       len(s.control),
		DialFailures:       s.dialFailures.Load(),
		IncomingRejected:   s.incomingRejected.Load(),
	})
}

// ============================================================================
//                              关闭
// ============================================================================

// Close 关闭 Swarm
//
// 关闭所有监听器与连接，不再产生事件。传输由其所有者关闭。
func (s *Swarm) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	s.cancel()

	var err error
	for _, l := range s.sortedListeners() {
		l.removed.Store(true)
		err = multierr.Append(err, l.inner.Close())
	}
	err = multierr.Append(err, s.group.Wait())
	clear(s.listeners)

	// 丢弃已接受但尚未处理的连接
	for drained := false; !drained; {
		select {
		case it := <-s.inbound:
			if it.conn != nil {
				_ = it.conn.Close()
			}
		default:
			drained = true
		}
	}

	err = multierr.Append(err, s.pool.Shutdown())
	s.out.Clear()
	s.held = nil
	s.publishMetrics()
	s.waker.Wake()

	logger.Info("Swarm 已关闭", "peer", s.localPeer.ShortString())
	return err
}

// ============================================================================
//                              辅助
// ============================================================================

func (s *Swarm) sortedListeners() []*listener {
	ids := make([]types.ListenerID, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]*listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}

func poolInbound(id types.ConnectionID, lid types.ListenerID, raw pkgif.RawConn) pool.InboundConn {
	return pool.InboundConn{ID: id, ListenerID: lid, Conn: raw}
}

func firstAddr(opts pkgif.DialOpts) types.Multiaddr {
	if len(opts.Addrs) == 0 {
		return nil
	}
	return opts.Addrs[0]
}

// asDialError 把同步拨号错误转换为 DialError
func asDialError(err error, opts pkgif.DialOpts) *types.DialError {
	var de *types.DialError
	if errors.As(err, &de) {
		return de
	}
	var ae *types.AddressError
	if errors.As(err, &ae) {
		return types.NewDialError(types.DialErrorAddressUnsupported, firstAddr(opts), err)
	}
	return types.NewDialError(types.DialErrorUnknown, firstAddr(opts), err)
}

func asListenError(err error) *types.ListenError {
	var le *types.ListenError
	if errors.As(err, &le) {
		return le
	}
	return types.NewListenError(types.ListenErrorUnknown, err)
}

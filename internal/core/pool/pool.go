package pool

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/log"
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/lib/queue"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var logger = log.Logger("core/pool")

// HandlerFactory 为新建立的连接创建 Handler，返回错误表示拒绝该连接
type HandlerFactory func(info types.ConnectionInfo) (pkgif.ConnectionHandler, error)

// Pool 连接池
type Pool struct {
	cfg        Config
	localPeer  types.PeerID
	transports []pkgif.Transport
	upgrader   pkgif.Upgrader
	newHandler HandlerFactory

	ctx    context.Context
	cancel context.CancelFunc

	nextID types.ConnectionID

	pending    map[types.ConnectionID]*pendingConn
	pendingIDs []types.ConnectionID
	pendingIn  int
	pendingOut int

	conns  map[types.ConnectionID]*connection
	byPeer map[types.PeerID][]types.ConnectionID

	events *queue.Bounded[types.SwarmEvent]

	// failed 未进入升级阶段就失败的拨号，第 1 步转为 DialFailure 事件
	failed *queue.Bounded[types.DialFailure]

	// waker 最近一次 Poll 登记的上层 Waker
	waker poll.AtomicWaker

	// ready 由边缘 goroutine 标记的就绪连接
	readyMu sync.Mutex
	ready   map[types.ConnectionID]struct{}

	// stalled 因事件队列已满而推迟的连接，队列腾出空间后重新就绪
	stalled map[types.ConnectionID]struct{}

	closed bool
}

// New 创建连接池
func New(
	cfg Config,
	localPeer types.PeerID,
	transports []pkgif.Transport,
	up pkgif.Upgrader,
	newHandler HandlerFactory,
) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(transports) == 0 {
		return nil, ErrNoTransport
	}
	if up == nil {
		return nil, ErrNilUpgrader
	}
	if newHandler == nil {
		return nil, ErrNilHandlerFactory
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		cfg:        cfg,
		localPeer:  localPeer,
		transports: transports,
		upgrader:   up,
		newHandler: newHandler,
		ctx:        ctx,
		cancel:     cancel,
		pending:    make(map[types.ConnectionID]*pendingConn),
		conns:      make(map[types.ConnectionID]*connection),
		byPeer:     make(map[types.PeerID][]types.ConnectionID),
		events:     queue.NewBounded[types.SwarmEvent](cfg.EventQueueSize),
		failed:     queue.NewBounded[types.DialFailure](cfg.MaxPendingOutgoing),
		ready:      make(map[types.ConnectionID]struct{}),
		stalled:    make(map[types.ConnectionID]struct{}),
	}, nil
}

// ============================================================================
//                              命令
// ============================================================================

// Dial 发起出站连接
//
// 返回值：
//   - 没有传输能路由任何候选地址：(NoConnection, *types.AddressError)
//   - 其余情况：(id, nil)，结果以 ConnectionEstablished 或 DialFailure 事件报告。
//     没有候选地址、拨号到自身或超出上限同样以 DialFailure 事件报告。
//   - 失败队列已满：(id, *types.DialError)，不产生事件，由调用方报告失败
func (p *Pool) Dial(opts pkgif.DialOpts) (types.ConnectionID, error) {
	if p.closed {
		return types.NoConnection, ErrPoolClosed
	}

	if len(opts.Addrs) == 0 {
		return p.failDial(p.allocID(), opts.Peer, types.NewDialError(types.DialErrorNoAddresses, nil, ErrNoAddresses))
	}

	var addrs []types.Multiaddr
	for _, a := range opts.Addrs {
		if a != nil && p.transportFor(a) != nil {
			addrs = append(addrs, a)
		}
	}
	if len(addrs) == 0 {
		return types.NoConnection, &types.AddressError{Addr: types.AddrString(opts.Addrs[0]), Err: ErrNoTransport}
	}

	id := p.allocID()
	if opts.Peer != "" && opts.Peer == p.localPeer {
		return p.failDial(id, opts.Peer, types.NewDialError(types.DialErrorLocalPeer, addrs[0], ErrDialSelf))
	}
	if err := p.checkOutbound(opts.Peer); err != nil {
		return p.failDial(id, opts.Peer, types.NewDialError(types.DialErrorLimitExceeded, addrs[0], err))
	}

	ctx, cancel := context.WithCancel(p.ctx)
	pc := &pendingConn{
		id:     id,
		dir:    types.DirOutbound,
		peer:   opts.Peer,
		remote: addrs[0],
		cancel: cancel,
	}
	pc.task = poll.Go(func() (pkgif.UpgradedConn, error) {
		return p.dialAddrs(ctx, addrs, opts.Peer)
	})
	p.addPending(pc)

	logger.Debug("开始拨号", "conn", id, "peer", opts.Peer.ShortString(), "addrs", len(addrs))
	return id, nil
}

// failDial 排队一个立即失败的拨号
func (p *Pool) failDial(id types.ConnectionID, peer types.PeerID, de *types.DialError) (types.ConnectionID, error) {
	if !p.failed.TryPush(types.DialFailure{ID: id, Peer: peer, Err: de}) {
		return id, de
	}
	logger.Debug("拨号立即失败", "conn", id, "peer", peer.ShortString(), "error", de)
	p.waker.Wake()
	return id, nil
}

// Accept 接受入站连接
//
// 超出上限时立即关闭原始连接并返回 *types.ListenError，不排队。
func (p *Pool) Accept(in InboundConn) (types.ConnectionID, error) {
	id := in.ID
	if !id.IsValid() {
		id = p.allocID()
	}
	if p.closed {
		_ = in.Conn.Close()
		return id, types.NewListenError(types.ListenErrorAborted, ErrPoolClosed)
	}
	if err := p.checkInbound(); err != nil {
		_ = in.Conn.Close()
		logger.Debug("拒绝入站连接", "conn", id, "remote", types.AddrString(in.Conn.RemoteMultiaddr()), "error", err)
		return id, types.NewListenError(types.ListenErrorLimitExceeded, err)
	}

	ctx, cancel := context.WithCancel(p.ctx)
	pc := &pendingConn{
		id:       id,
		dir:      types.DirInbound,
		listener: in.ListenerID,
		local:    in.Conn.LocalMultiaddr(),
		remote:   in.Conn.RemoteMultiaddr(),
		cancel:   cancel,
	}
	raw := in.Conn
	pc.task = poll.Go(func() (pkgif.UpgradedConn, error) {
		return p.upgradeInbound(ctx, raw)
	})
	p.addPending(pc)
	return id, nil
}

// ReserveID 预留一个连接 ID
//
// 供入站过滤在 Accept 之前引用连接。
func (p *Pool) ReserveID() types.ConnectionID {
	return p.allocID()
}

// Close 关闭连接
//
// pending 连接被取消，恰好产生一个取消事件；已建立连接先排空 Handler，
// 再产生 ConnectionClosed(CloseReasonLocal)。未知或已在关闭的 id 返回 false。
func (p *Pool) Close(id types.ConnectionID) bool {
	if pc, ok := p.pending[id]; ok {
		if pc.cancelled {
			return false
		}
		pc.cancelled = true
		pc.cancel()
		p.waker.Wake()
		return true
	}
	c, ok := p.conns[id]
	if !ok || c.closing {
		return false
	}
	c.beginClose(types.CloseReasonLocal, nil)
	return true
}

// DisconnectPeer 关闭与节点的所有已建立连接，返回关闭的数量
func (p *Pool) DisconnectPeer(peer types.PeerID) int {
	n := 0
	for _, id := range p.byPeer[peer] {
		if p.Close(id) {
			n++
		}
	}
	return n
}

// NotifyHandler 向连接的 Handler 投递命令
//
// 同一连接内按调用顺序投递。队列已满返回 ErrCommandQueueFull，命令未入队；
// 未知或关闭中的连接静默丢弃。
func (p *Pool) NotifyHandler(id types.ConnectionID, cmd any) error {
	c, ok := p.conns[id]
	if !ok || c.closing {
		logger.Debug("丢弃发往已关闭连接的命令", "conn", id)
		return nil
	}
	if !c.commands.TryPush(cmd) {
		return ErrCommandQueueFull
	}
	c.waker.Wake()
	return nil
}

// ============================================================================
//                              轮询
// ============================================================================

// Poll 执行一个周期，返回是否有进展
//
// 产生的事件通过 NextEvent 取出。
func (p *Pool) Poll(cx *poll.Context) bool {
	p.waker.Register(cx.Waker())
	if p.closed {
		return false
	}

	ready := p.takeReady()
	progress := false

	// 1. 已完成的本地结果
	for !p.events.Full() {
		ev, ok := p.failed.Pop()
		if !ok {
			break
		}
		p.events.TryPush(ev)
		progress = true
	}
	if p.pollPending(cx, true) {
		progress = true
	}
	for _, c := range ready {
		ccx := cx.WithWaker(c.waker)
		if c.closing {
			if p.pollClosing(ccx, c) {
				progress = true
			}
		} else if p.pollOutbound(ccx, c) {
			progress = true
		}
	}

	// 2. 进行中的本地工作
	for _, c := range ready {
		if c.closing || p.conns[c.info.ID] != c {
			continue
		}
		if p.pollHandler(cx.WithWaker(c.waker), c) {
			progress = true
		}
	}

	// 3. 新的入站工作
	if p.pollPending(cx, false) {
		progress = true
	}
	for _, c := range ready {
		if c.closing || p.conns[c.info.ID] != c {
			continue
		}
		if p.pollInbound(cx.WithWaker(c.waker), c) {
			progress = true
		}
	}

	return progress
}

// NextEvent 取出下一个事件
func (p *Pool) NextEvent() (types.SwarmEvent, bool) {
	wasFull := p.events.Full()
	ev, ok := p.events.Pop()
	if ok && wasFull {
		// 队列腾出空间，恢复被推迟的工作
		p.readyMu.Lock()
		for id := range p.stalled {
			p.ready[id] = struct{}{}
		}
		p.readyMu.Unlock()
		clear(p.stalled)
		p.waker.Wake()
	}
	return ev, ok
}

// ============================================================================
//                              查询
// ============================================================================

// Stats 连接池状态
type Stats struct {
	Established     int
	PendingIncoming int
	PendingOutgoing int
	Peers           int
	Active          int
	Idle            int
	Closing         int
	EventQueue      int
	CommandQueue    int
}

// Stats 返回当前状态
func (p *Pool) Stats() Stats {
	s := Stats{
		Established:     len(p.conns),
		PendingIncoming: p.pendingIn,
		PendingOutgoing: p.pendingOut,
		Peers:           len(p.byPeer),
		EventQueue:      p.events.Len(),
	}
	for _, c := range p.conns {
		s.CommandQueue += c.commands.Len()
		switch c.state() {
		case ConnClosing:
			s.Closing++
		case ConnActive:
			s.Active++
		default:
			s.Idle++
		}
	}
	return s
}

// Connection 返回已建立连接的描述
func (p *Pool) Connection(id types.ConnectionID) (types.ConnectionInfo, bool) {
	c, ok := p.conns[id]
	if !ok {
		return types.ConnectionInfo{}, false
	}
	return c.info, true
}

// ConnState 返回已建立连接的状态
func (p *Pool) ConnState(id types.ConnectionID) (ConnState, bool) {
	c, ok := p.conns[id]
	if !ok {
		return 0, false
	}
	return c.state(), true
}

// ConnectionsTo 返回与节点的已建立连接，按建立顺序
func (p *Pool) ConnectionsTo(peer types.PeerID) []types.ConnectionID {
	return slices.Clone(p.byPeer[peer])
}

// IsConnected 是否与节点有已建立连接
func (p *Pool) IsConnected(peer types.PeerID) bool {
	return len(p.byPeer[peer]) > 0
}

// Peers 返回已连接节点
func (p *Pool) Peers() []types.PeerID {
	out := make([]types.PeerID, 0, len(p.byPeer))
	for peer := range p.byPeer {
		out = append(out, peer)
	}
	slices.Sort(out)
	return out
}

// IsPending 连接是否仍在升级中
func (p *Pool) IsPending(id types.ConnectionID) bool {
	_, ok := p.pending[id]
	return ok
}

// ============================================================================
//                              关闭
// ============================================================================

// Shutdown 立即关闭所有连接并取消所有 pending 连接，不再产生事件
func (p *Pool) Shutdown() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.cancel()

	var err error
	for _, c := range p.conns {
		c.cancel()
		err = multierr.Append(err, c.conn.Close())
		if c.drain != nil {
			c.drain.Stop()
		}
		if c.idle != nil {
			c.idle.Stop()
		}
	}
	clear(p.conns)
	clear(p.byPeer)
	clear(p.pending)
	p.pendingIDs = nil
	p.pendingIn, p.pendingOut = 0, 0
	p.events.Clear()
	p.failed.Clear()

	logger.Debug("连接池已关闭")
	return err
}

// ============================================================================
//                              内部
// ============================================================================

func (p *Pool) allocID() types.ConnectionID {
	p.nextID++
	return p.nextID
}

func (p *Pool) transportFor(addr types.Multiaddr) pkgif.Transport {
	for _, t := range p.transports {
		if t.CanDial(addr) {
			return t
		}
	}
	return nil
}

func (p *Pool) total() int {
	return len(p.conns) + len(p.pending)
}

func (p *Pool) checkInbound() error {
	if p.pendingIn >= p.cfg.MaxPendingIncoming {
		return fmt.Errorf("%w: pending incoming %d", ErrLimitExceeded, p.cfg.MaxPendingIncoming)
	}
	if p.total() >= p.cfg.MaxConnections {
		return fmt.Errorf("%w: total %d", ErrLimitExceeded, p.cfg.MaxConnections)
	}
	return nil
}

func (p *Pool) checkOutbound(peer types.PeerID) error {
	if p.pendingOut >= p.cfg.MaxPendingOutgoing {
		return fmt.Errorf("%w: pending outgoing %d", ErrLimitExceeded, p.cfg.MaxPendingOutgoing)
	}
	if p.total() >= p.cfg.MaxConnections {
		return fmt.Errorf("%w: total %d", ErrLimitExceeded, p.cfg.MaxConnections)
	}
	if peer == "" {
		return nil
	}
	n := len(p.byPeer[peer])
	for _, pc := range p.pending {
		if pc.dir == types.DirOutbound && pc.peer == peer {
			n++
		}
	}
	if n >= p.cfg.MaxConnectionsPerPeer {
		return fmt.Errorf("%w: per peer %d", ErrLimitExceeded, p.cfg.MaxConnectionsPerPeer)
	}
	return nil
}

func (p *Pool) addPending(pc *pendingConn) {
	p.pending[pc.id] = pc
	p.pendingIDs = append(p.pendingIDs, pc.id)
	if pc.dir == types.DirInbound {
		p.pendingIn++
	} else {
		p.pendingOut++
	}
	p.waker.Wake()
}

func (p *Pool) removePending(pc *pendingConn) {
	delete(p.pending, pc.id)
	p.pendingIDs = slices.DeleteFunc(p.pendingIDs, func(id types.ConnectionID) bool { return id == pc.id })
	if pc.dir == types.DirInbound {
		p.pendingIn--
	} else {
		p.pendingOut--
	}
	pc.cancel()
}

func (p *Pool) removeConn(c *connection) {
	id, peer := c.info.ID, c.info.Peer
	delete(p.conns, id)
	delete(p.stalled, id)
	ids := slices.DeleteFunc(p.byPeer[peer], func(x types.ConnectionID) bool { return x == id })
	if len(ids) == 0 {
		delete(p.byPeer, peer)
	} else {
		p.byPeer[peer] = ids
	}
}

// markReady 标记连接就绪并唤醒上层，可从任意 goroutine 调用
func (p *Pool) markReady(id types.ConnectionID) {
	p.readyMu.Lock()
	p.ready[id] = struct{}{}
	p.readyMu.Unlock()
	p.waker.Wake()
}

// takeReady 取出就绪的连接，按 id 排序
func (p *Pool) takeReady() []*connection {
	p.readyMu.Lock()
	ids := make([]types.ConnectionID, 0, len(p.ready))
	for id := range p.ready {
		ids = append(ids, id)
	}
	clear(p.ready)
	p.readyMu.Unlock()

	slices.Sort(ids)
	out := make([]*connection, 0, len(ids))
	for _, id := range ids {
		if c, ok := p.conns[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (p *Pool) stall(id types.ConnectionID) {
	p.stalled[id] = struct{}{}
}

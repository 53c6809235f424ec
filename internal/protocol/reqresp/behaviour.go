package reqresp

import (
	"fmt"
	"slices"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/log"
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/lib/queue"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var logger = log.Logger("protocol/reqresp")

// maxAddrsPerPeer 地址簿中每个节点保留的地址数
const maxAddrsPerPeer = 8

// ============================================================================
//                              事件
// ============================================================================

// ResponseChannel 回应入站请求的凭据
type ResponseChannel struct {
	peer types.PeerID
	conn types.ConnectionID
	key  uint64
	id   RequestID
}

// RequestID 对端分配的请求 ID
func (c ResponseChannel) RequestID() RequestID {
	return c.id
}

// RequestReceived 收到入站请求，需要用 Channel 回应
type RequestReceived struct {
	Peer       types.PeerID
	Connection types.ConnectionID
	RequestID  RequestID
	Protocol   types.ProtocolID
	Payload    []byte
	Channel    ResponseChannel
}

// ResponseReceived 出站请求收到响应
type ResponseReceived struct {
	Peer      types.PeerID
	RequestID RequestID
	Payload   []byte
}

// OutboundFailure 出站请求失败
type OutboundFailure struct {
	Peer      types.PeerID
	RequestID RequestID
	Err       error
}

// InboundFailure 入站请求失败
//
// 请求读取之前失败时 RequestID 为 0。
type InboundFailure struct {
	Peer       types.PeerID
	Connection types.ConnectionID
	RequestID  RequestID
	Err        error
}

// ResponseSent 响应已写出
type ResponseSent struct {
	Peer      types.PeerID
	RequestID RequestID
}

// ============================================================================
//                              Behaviour
// ============================================================================

// Behaviour 请求/响应行为
type Behaviour struct {
	cfg   Config
	clock clock.Clock

	nextID RequestID

	// addrs 地址簿，用于拨号未连接的节点
	addrs *lru.Cache[types.PeerID, []types.Multiaddr]

	connected map[types.PeerID][]types.ConnectionID
	dialing   map[types.PeerID]struct{}

	// pending 等待投递给 Handler 的请求
	pending      map[types.PeerID][]sendRequest
	pendingCount int

	// inflight 已交给 Handler、尚无结果的请求所在的连接
	inflight map[RequestID]types.ConnectionID

	actions *queue.Bounded[pkgif.BehaviourAction]
	events  *queue.Bounded[any]
}

var _ pkgif.NetworkBehaviour = (*Behaviour)(nil)

// New 创建请求/响应行为
func New(cfg Config, opts ...Option) (*Behaviour, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	addrs, err := lru.New[types.PeerID, []types.Multiaddr](cfg.AddressBookSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	b := &Behaviour{
		cfg:       cfg,
		clock:     clock.New(),
		addrs:     addrs,
		connected: make(map[types.PeerID][]types.ConnectionID),
		dialing:   make(map[types.PeerID]struct{}),
		pending:   make(map[types.PeerID][]sendRequest),
		inflight:  make(map[RequestID]types.ConnectionID),
		actions:   queue.NewBounded[pkgif.BehaviourAction](cfg.QueueSize),
		events:    queue.NewBounded[any](cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// AddAddress 把地址加入地址簿
func (b *Behaviour) AddAddress(peer types.PeerID, addr types.Multiaddr) {
	if addr == nil {
		return
	}
	addrs, _ := b.addrs.Get(peer)
	for _, a := range addrs {
		if a.Equal(addr) {
			return
		}
	}
	addrs = append(slices.Clone(addrs), addr)
	if len(addrs) > maxAddrsPerPeer {
		addrs = addrs[len(addrs)-maxAddrsPerPeer:]
	}
	b.addrs.Add(peer, addrs)
}

// Addresses 返回地址簿中节点的地址
func (b *Behaviour) Addresses(peer types.PeerID) []types.Multiaddr {
	addrs, _ := b.addrs.Get(peer)
	return slices.Clone(addrs)
}

// SendRequest 向节点发送请求
//
// 未连接时先用地址簿中的地址拨号。结果以 ResponseReceived 或
// OutboundFailure 事件报告。
func (b *Behaviour) SendRequest(peer types.PeerID, payload []byte) (RequestID, error) {
	if b.pendingCount >= b.cfg.QueueSize {
		return 0, ErrQueueFull
	}
	_, connected := b.connected[peer]
	_, dialing := b.dialing[peer]
	if !connected && !dialing {
		addrs, _ := b.addrs.Get(peer)
		if !b.actions.TryPush(pkgif.DialAction(pkgif.DialOpts{Peer: peer, Addrs: slices.Clone(addrs)})) {
			return 0, ErrQueueFull
		}
		b.dialing[peer] = struct{}{}
	}

	b.nextID++
	id := b.nextID
	b.pending[peer] = append(b.pending[peer], sendRequest{ID: id, Payload: payload})
	b.pendingCount++
	logger.Debug("排队请求", "peer", peer.ShortString(), "request", id, "connected", connected)
	return id, nil
}

// SendResponse 回应入站请求
func (b *Behaviour) SendResponse(ch ResponseChannel, payload []byte) error {
	if !slices.Contains(b.connected[ch.peer], ch.conn) {
		return ErrNotConnected
	}
	if !b.actions.TryPush(pkgif.NotifyAction(ch.peer, ch.conn, sendResponse{Key: ch.key, Payload: payload})) {
		return ErrQueueFull
	}
	return nil
}

// NewHandler 实现 NetworkBehaviour
func (b *Behaviour) NewHandler(types.ConnectionInfo) (pkgif.ConnectionHandler, error) {
	return newHandler(b.cfg, b.clock), nil
}

// OnSwarmEvent 实现 NetworkBehaviour
func (b *Behaviour) OnSwarmEvent(ev types.SwarmEvent) {
	switch e := ev.(type) {
	case types.ConnectionEstablished:
		peer := e.Info.Peer
		b.connected[peer] = append(b.connected[peer], e.Info.ID)
		delete(b.dialing, peer)
		if e.Info.Endpoint.IsDialer() {
			b.AddAddress(peer, e.Info.Endpoint.RemoteAddr)
		}

	case types.ConnectionClosed:
		peer := e.Info.Peer
		// Handler 的关闭事件先于 ConnectionClosed 到达，剩下的请求从未送达 Handler
		for id, conn := range b.inflight {
			if conn == e.Info.ID {
				delete(b.inflight, id)
				b.pushEvent(OutboundFailure{Peer: peer, RequestID: id, Err: types.ErrConnectionClosed})
			}
		}
		conns := slices.DeleteFunc(b.connected[peer], func(id types.ConnectionID) bool { return id == e.Info.ID })
		if len(conns) > 0 {
			b.connected[peer] = conns
			return
		}
		delete(b.connected, peer)
		b.failPending(peer, types.ErrConnectionClosed)

	case types.DialFailure:
		if e.Peer.IsEmpty() {
			return
		}
		delete(b.dialing, e.Peer)
		if _, ok := b.connected[e.Peer]; ok {
			return
		}
		b.failPending(e.Peer, fmt.Errorf("%w: %w", ErrDialFailure, e.Err))
	}
}

// failPending 以失败结束尚未投递的请求
func (b *Behaviour) failPending(peer types.PeerID, err error) {
	for _, r := range b.pending[peer] {
		b.pushEvent(OutboundFailure{Peer: peer, RequestID: r.ID, Err: err})
	}
	b.pendingCount -= len(b.pending[peer])
	delete(b.pending, peer)
}

// OnHandlerEvent 实现 NetworkBehaviour
func (b *Behaviour) OnHandlerEvent(peer types.PeerID, conn types.ConnectionID, ev any) {
	switch e := ev.(type) {
	case response:
		delete(b.inflight, e.ID)
		b.pushEvent(ResponseReceived{Peer: peer, RequestID: e.ID, Payload: e.Payload})
	case outboundFailure:
		delete(b.inflight, e.ID)
		b.pushEvent(OutboundFailure{Peer: peer, RequestID: e.ID, Err: e.Err})
	case request:
		b.pushEvent(RequestReceived{
			Peer:       peer,
			Connection: conn,
			RequestID:  e.ID,
			Protocol:   e.Protocol,
			Payload:    e.Payload,
			Channel:    ResponseChannel{peer: peer, conn: conn, key: e.Key, id: e.ID},
		})
	case responseSent:
		b.pushEvent(ResponseSent{Peer: peer, RequestID: e.ID})
	case inboundFailure:
		b.pushEvent(InboundFailure{Peer: peer, Connection: conn, RequestID: e.ID, Err: e.Err})
	}
}

// pushEvent 队列满时丢弃最旧的事件
func (b *Behaviour) pushEvent(ev any) {
	if b.events.Full() {
		dropped, _ := b.events.Pop()
		logger.Warn("事件队列已满，丢弃最旧事件", "event", fmt.Sprintf("%T", dropped))
	}
	b.events.TryPush(ev)
}

// Poll 实现 NetworkBehaviour
//
// 顺序：事件、排队的动作、向已连接节点投递请求。
func (b *Behaviour) Poll(*poll.Context) pkgif.BehaviourAction {
	if ev, ok := b.events.Pop(); ok {
		return pkgif.EventAction(ev)
	}
	if a, ok := b.actions.Pop(); ok {
		return a
	}
	for peer, reqs := range b.pending {
		conns, ok := b.connected[peer]
		if !ok {
			continue
		}
		r := reqs[0]
		if len(reqs) == 1 {
			delete(b.pending, peer)
		} else {
			b.pending[peer] = reqs[1:]
		}
		b.pendingCount--
		b.inflight[r.ID] = conns[0]
		return pkgif.NotifyAction(peer, conns[0], r)
	}
	return pkgif.PendingAction()
}

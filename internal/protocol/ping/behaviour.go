package ping

import (
	"time"

	"github.com/benbjohnson/clock"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/log"
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/lib/queue"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var logger = log.Logger("protocol/ping")

// Event 一次 ping 的结果
type Event struct {
	Peer       types.PeerID
	Connection types.ConnectionID
	RTT        time.Duration
	Err        error
}

// Behaviour ping 行为
//
// 只在轮询线程中使用。
type Behaviour struct {
	cfg   Config
	clock clock.Clock

	events *queue.Bounded[Event]

	// rtt 每个节点最近一次成功的往返时间
	rtt map[types.PeerID]time.Duration
}

var _ pkgif.NetworkBehaviour = (*Behaviour)(nil)

// New 创建 ping 行为
func New(cfg Config, opts ...Option) (*Behaviour, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Behaviour{
		cfg:    cfg,
		clock:  clock.New(),
		events: queue.NewBounded[Event](cfg.EventQueueSize),
		rtt:    make(map[types.PeerID]time.Duration),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// RTT 返回与节点最近一次成功的往返时间
func (b *Behaviour) RTT(peer types.PeerID) (time.Duration, bool) {
	d, ok := b.rtt[peer]
	return d, ok
}

// NewHandler 实现 NetworkBehaviour
func (b *Behaviour) NewHandler(types.ConnectionInfo) (pkgif.ConnectionHandler, error) {
	return newHandler(b.cfg, b.clock), nil
}

// OnSwarmEvent 实现 NetworkBehaviour
func (b *Behaviour) OnSwarmEvent(ev types.SwarmEvent) {
	if e, ok := ev.(types.ConnectionClosed); ok && e.Remaining == 0 {
		delete(b.rtt, e.Info.Peer)
	}
}

// OnHandlerEvent 实现 NetworkBehaviour
func (b *Behaviour) OnHandlerEvent(peer types.PeerID, id types.ConnectionID, ev any) {
	r, ok := ev.(Result)
	if !ok {
		return
	}
	if r.Err == nil {
		b.rtt[peer] = r.RTT
	} else {
		logger.Debug("ping 失败", "peer", peer.ShortString(), "conn", id, "error", r.Err)
	}

	if b.events.Full() {
		b.events.Pop()
	}
	b.events.TryPush(Event{Peer: peer, Connection: id, RTT: r.RTT, Err: r.Err})
}

// Poll 实现 NetworkBehaviour
func (b *Behaviour) Poll(*poll.Context) pkgif.BehaviourAction {
	if ev, ok := b.events.Pop(); ok {
		return pkgif.EventAction(ev)
	}
	return pkgif.PendingAction()
}

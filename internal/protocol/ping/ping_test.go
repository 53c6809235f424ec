package ping

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-p2pcore/config"
	"github.com/dep2p/go-p2pcore/internal/core/identity"
	"github.com/dep2p/go-p2pcore/internal/core/muxer/yamux"
	"github.com/dep2p/go-p2pcore/internal/core/pool"
	"github.com/dep2p/go-p2pcore/internal/core/security/plaintext"
	"github.com/dep2p/go-p2pcore/internal/core/swarm"
	"github.com/dep2p/go-p2pcore/internal/core/transport/memory"
	"github.com/dep2p/go-p2pcore/internal/core/upgrader"
	"github.com/dep2p/go-p2pcore/pkg/behaviour"
	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// ============================================================================
//                              测试节点
// ============================================================================

type node struct {
	id     *identity.Identity
	swarm  *swarm.Swarm
	cx     *poll.Context
	events []types.SwarmEvent
}

func swarmConfig() swarm.Config {
	return swarm.Config{
		PollBudget:       16,
		EventQueueSize:   64,
		ControlQueueSize: 8,
		InboundQueueSize: 8,
		AcceptRate:       1000,
		AcceptBurst:      16,
		Pool: pool.Config{
			MaxConnections:                8,
			MaxConnectionsPerPeer:         2,
			MaxPendingIncoming:            4,
			MaxPendingOutgoing:            4,
			EventQueueSize:                16,
			CommandQueueSize:              8,
			MaxNegotiatingInboundStreams:  4,
			MaxNegotiatingOutboundStreams: 4,
			SubstreamUpgradeTimeout:       5 * time.Second,
			IdleConnectionTimeout:         10 * time.Second,
			GracefulCloseTimeout:          time.Second,
		},
	}
}

func newNode(t *testing.T, hub *memory.Hub, b pkgif.NetworkBehaviour) *node {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)

	sec, err := plaintext.New(id)
	require.NoError(t, err)
	mux, err := yamux.New(yamux.ConfigFromUnified(nil))
	require.NoError(t, err)
	up, err := upgrader.New(id, upgrader.Config{
		SecurityTransports: []pkgif.SecureTransport{sec},
		StreamMuxers:       []pkgif.StreamMuxer{mux},
		HandshakeTimeout:   5 * time.Second,
	})
	require.NoError(t, err)

	tr := memory.New(hub)
	s, err := swarm.New(swarmConfig(), id.PeerID(), []pkgif.Transport{tr}, up, b)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
		_ = tr.Close()
	})
	return &node{id: id, swarm: s, cx: poll.NewContext(poll.NoopWaker, nil)}
}

func (n *node) step() {
	for {
		ev, ok := n.swarm.Poll(n.cx)
		if !ok {
			return
		}
		n.events = append(n.events, ev)
	}
}

func (n *node) pings() []Event {
	var out []Event
	for _, ev := range n.events {
		if be, ok := ev.(types.BehaviourEvent); ok {
			if e, ok := be.Event.(Event); ok {
				out = append(out, e)
			}
		}
	}
	return out
}

func pump(t *testing.T, cond func() bool, ns ...*node) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		for _, n := range ns {
			n.step()
		}
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("等待超时")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func dial(t *testing.T, a, b *node) {
	t.Helper()
	_, err := b.swarm.ListenOn(memory.NewAddr(0))
	require.NoError(t, err)
	pump(t, func() bool { return len(b.swarm.ListenAddrs()) == 1 }, b)

	_, err = a.swarm.Dial(pkgif.DialOpts{Peer: b.id.PeerID(), Addrs: b.swarm.ListenAddrs()})
	require.NoError(t, err)
}

func testConfig() Config {
	return Config{Interval: time.Hour, Timeout: 2 * time.Second, EventQueueSize: 8}
}

// ============================================================================
//                              测试
// ============================================================================

func TestPing_RoundTrip(t *testing.T) {
	hub := memory.NewHub()
	pa, err := New(testConfig())
	require.NoError(t, err)
	pb, err := New(testConfig())
	require.NoError(t, err)
	a, b := newNode(t, hub, pa), newNode(t, hub, pb)

	dial(t, a, b)
	pump(t, func() bool { return len(a.pings()) > 0 && len(b.pings()) > 0 }, a, b)

	ev := a.pings()[0]
	require.NoError(t, ev.Err)
	assert.Equal(t, b.id.PeerID(), ev.Peer)
	assert.True(t, ev.Connection.IsValid())

	_, ok := pa.RTT(b.id.PeerID())
	assert.True(t, ok)
	t.Log("✅ 双方都完成 ping")
}

func TestPing_Unsupported(t *testing.T) {
	hub := memory.NewHub()
	pa, err := New(testConfig())
	require.NoError(t, err)
	a, b := newNode(t, hub, pa), newNode(t, hub, behaviour.Dummy{})

	dial(t, a, b)
	pump(t, func() bool { return len(a.pings()) > 0 }, a, b)

	ev := a.pings()[0]
	assert.ErrorIs(t, ev.Err, ErrUnsupported)
	_, ok := pa.RTT(b.id.PeerID())
	assert.False(t, ok)
	t.Log("✅ 对端不支持时报告 ErrUnsupported")
}

func TestPing_RTTClearedOnDisconnect(t *testing.T) {
	b, err := New(testConfig())
	require.NoError(t, err)

	peer := types.PeerID("peer-1")
	b.OnHandlerEvent(peer, 1, Result{RTT: time.Millisecond})
	rtt, ok := b.RTT(peer)
	require.True(t, ok)
	assert.Equal(t, time.Millisecond, rtt)

	b.OnSwarmEvent(types.ConnectionClosed{Info: types.ConnectionInfo{ID: 1, Peer: peer}, Remaining: 1})
	_, ok = b.RTT(peer)
	assert.True(t, ok, "仍有连接时保留")

	b.OnSwarmEvent(types.ConnectionClosed{Info: types.ConnectionInfo{ID: 1, Peer: peer}})
	_, ok = b.RTT(peer)
	assert.False(t, ok)
	t.Log("✅ 最后一条连接关闭时清除 RTT")
}

func TestPing_EventQueueDropsOldest(t *testing.T) {
	cfg := testConfig()
	cfg.EventQueueSize = 2
	b, err := New(cfg)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		b.OnHandlerEvent("p", types.ConnectionID(i), Result{RTT: time.Duration(i)})
	}

	cx := poll.NewContext(poll.NoopWaker, nil)
	var got []types.ConnectionID
	for {
		a := b.Poll(cx)
		if a.Kind != pkgif.BehaviourGenerateEvent {
			break
		}
		got = append(got, a.Event.(Event).Connection)
	}
	assert.Equal(t, []types.ConnectionID{2, 3}, got)
	t.Log("✅ 事件队列满时丢弃最旧的")
}

func TestConfig(t *testing.T) {
	cfg := ConfigFromUnified(nil)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.DefaultPingConfig().Interval.Duration(), cfg.Interval)

	bad := cfg
	bad.Timeout = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	_, err := New(bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	t.Log("✅ 配置校验")
}

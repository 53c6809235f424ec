package reqresp

import (
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

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
	rr     *Behaviour
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

func testConfig() Config {
	return Config{
		Protocols:            []types.ProtocolID{"/test/echo/1.0.0"},
		RequestTimeout:       time.Second,
		MaxConcurrentStreams: 4,
		MaxMessageSize:       1024,
		AddressBookSize:      16,
		QueueSize:            32,
	}
}

// newNode 创建节点；b 为 nil 时使用请求/响应行为
func newNode(t *testing.T, hub *memory.Hub, clk clock.Clock, b pkgif.NetworkBehaviour) *node {
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

	n := &node{id: id, cx: poll.NewContext(poll.NoopWaker, clk)}
	if b == nil {
		n.rr, err = New(testConfig(), WithClock(clk))
		require.NoError(t, err)
		b = n.rr
	}

	tr := memory.New(hub)
	n.swarm, err = swarm.New(swarmConfig(), id.PeerID(), []pkgif.Transport{tr}, up, b, swarm.WithClock(clk))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = n.swarm.Close()
		_ = tr.Close()
	})
	return n
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

func (n *node) listen(t *testing.T) types.Multiaddr {
	t.Helper()
	_, err := n.swarm.ListenOn(memory.NewAddr(0))
	require.NoError(t, err)
	pump(t, func() bool { return len(n.swarm.ListenAddrs()) == 1 }, n)
	return n.swarm.ListenAddrs()[0]
}

func collect[T any](n *node) []T {
	var out []T
	for _, ev := range n.events {
		if be, ok := ev.(types.BehaviourEvent); ok {
			if e, ok := be.Event.(T); ok {
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

// pair 创建两个节点，a 的地址簿中有 b 的地址
func pair(t *testing.T, clk clock.Clock) (*node, *node) {
	hub := memory.NewHub()
	a, b := newNode(t, hub, clk, nil), newNode(t, hub, clk, nil)
	a.rr.AddAddress(b.id.PeerID(), b.listen(t))
	return a, b
}

// ============================================================================
//                              端到端
// ============================================================================

// 未连接时先拨号，响应带回同一个请求 ID
func TestReqResp_RequestResponse(t *testing.T) {
	a, b := pair(t, clock.New())

	id, err := a.rr.SendRequest(b.id.PeerID(), []byte("ping"))
	require.NoError(t, err)

	pump(t, func() bool { return len(collect[RequestReceived](b)) == 1 }, a, b)
	req := collect[RequestReceived](b)[0]
	assert.Equal(t, a.id.PeerID(), req.Peer)
	assert.Equal(t, id, req.RequestID)
	assert.Equal(t, id, req.Channel.RequestID())
	assert.Equal(t, types.ProtocolID("/test/echo/1.0.0"), req.Protocol)
	assert.Equal(t, []byte("ping"), req.Payload)

	require.NoError(t, b.rr.SendResponse(req.Channel, []byte("pong")))
	pump(t, func() bool {
		return len(collect[ResponseReceived](a)) == 1 && len(collect[ResponseSent](b)) == 1
	}, a, b)

	resp := collect[ResponseReceived](a)[0]
	assert.Equal(t, id, resp.RequestID)
	assert.Equal(t, b.id.PeerID(), resp.Peer)
	assert.Equal(t, []byte("pong"), resp.Payload)
	assert.Equal(t, id, collect[ResponseSent](b)[0].RequestID)

	// 对端地址来自地址簿，仍然保留
	assert.Len(t, a.rr.Addresses(b.id.PeerID()), 1)
	t.Log("✅ 请求与响应通过 ID 对应")
}

// 并发请求按相反顺序回应，仍然各自对应
func TestReqResp_Concurrent(t *testing.T) {
	a, b := pair(t, clock.New())

	ids := make(map[RequestID]string)
	for i := 0; i < 3; i++ {
		payload := fmt.Sprintf("req-%d", i)
		id, err := a.rr.SendRequest(b.id.PeerID(), []byte(payload))
		require.NoError(t, err)
		ids[id] = payload
	}

	pump(t, func() bool { return len(collect[RequestReceived](b)) == 3 }, a, b)
	reqs := collect[RequestReceived](b)
	for i := len(reqs) - 1; i >= 0; i-- {
		require.NoError(t, b.rr.SendResponse(reqs[i].Channel, append([]byte("resp:"), reqs[i].Payload...)))
	}

	pump(t, func() bool { return len(collect[ResponseReceived](a)) == 3 }, a, b)
	for _, resp := range collect[ResponseReceived](a) {
		assert.Equal(t, "resp:"+ids[resp.RequestID], string(resp.Payload))
	}
	t.Log("✅ 并发请求各自对应")
}

// 对端不回应时双方都在超时后报告失败
func TestReqResp_Timeout(t *testing.T) {
	mock := clock.NewMock()
	a, b := pair(t, mock)

	id, err := a.rr.SendRequest(b.id.PeerID(), []byte("slow"))
	require.NoError(t, err)
	pump(t, func() bool { return len(collect[RequestReceived](b)) == 1 }, a, b)
	req := collect[RequestReceived](b)[0]

	mock.Add(2 * time.Second)
	pump(t, func() bool {
		return len(collect[OutboundFailure](a)) == 1 && len(collect[InboundFailure](b)) == 1
	}, a, b)

	of := collect[OutboundFailure](a)[0]
	assert.Equal(t, id, of.RequestID)
	assert.ErrorIs(t, of.Err, types.ErrProtocolTimeout)
	inf := collect[InboundFailure](b)[0]
	assert.Equal(t, req.RequestID, inf.RequestID)
	assert.ErrorIs(t, inf.Err, types.ErrProtocolTimeout)

	// 超时后的响应被忽略
	require.NoError(t, b.rr.SendResponse(req.Channel, []byte("late")))
	for i := 0; i < 10; i++ {
		a.step()
		b.step()
	}
	assert.Empty(t, collect[ResponseReceived](a))
	t.Log("✅ 请求超时")
}

func TestReqResp_DialFailure(t *testing.T) {
	hub := memory.NewHub()
	a := newNode(t, hub, clock.New(), nil)

	// 地址簿中没有地址
	missing, err := identity.Generate()
	require.NoError(t, err)
	id, err := a.rr.SendRequest(missing.PeerID(), []byte("x"))
	require.NoError(t, err)

	pump(t, func() bool { return len(collect[OutboundFailure](a)) == 1 }, a)
	of := collect[OutboundFailure](a)[0]
	assert.Equal(t, id, of.RequestID)
	assert.ErrorIs(t, of.Err, ErrDialFailure)

	var de *types.DialError
	require.ErrorAs(t, of.Err, &de)
	assert.Equal(t, types.DialErrorNoAddresses, de.Kind)
	t.Log("✅ 拨号失败时请求失败")
}

func TestReqResp_Unsupported(t *testing.T) {
	hub := memory.NewHub()
	a, b := newNode(t, hub, clock.New(), nil), newNode(t, hub, clock.New(), behaviour.Dummy{})
	a.rr.AddAddress(b.id.PeerID(), b.listen(t))

	_, err := a.rr.SendRequest(b.id.PeerID(), []byte("x"))
	require.NoError(t, err)

	pump(t, func() bool { return len(collect[OutboundFailure](a)) == 1 }, a, b)
	assert.ErrorIs(t, collect[OutboundFailure](a)[0].Err, ErrUnsupported)
	t.Log("✅ 对端不支持协议")
}

// 连接关闭时未完成的请求失败，响应通道失效
func TestReqResp_ConnectionClosed(t *testing.T) {
	a, b := pair(t, clock.New())

	id, err := a.rr.SendRequest(b.id.PeerID(), []byte("x"))
	require.NoError(t, err)
	pump(t, func() bool { return len(collect[RequestReceived](b)) == 1 }, a, b)
	req := collect[RequestReceived](b)[0]

	assert.Equal(t, 1, a.swarm.DisconnectPeer(b.id.PeerID()))
	pump(t, func() bool {
		return len(collect[OutboundFailure](a)) == 1 && !b.swarm.IsConnected(a.id.PeerID())
	}, a, b)

	of := collect[OutboundFailure](a)[0]
	assert.Equal(t, id, of.RequestID)
	assert.ErrorIs(t, of.Err, types.ErrConnectionClosed)

	assert.ErrorIs(t, b.rr.SendResponse(req.Channel, []byte("late")), ErrNotConnected)
	t.Log("✅ 连接关闭时请求失败")
}

// ============================================================================
//                              单元
// ============================================================================

func TestFrame_UnknownFieldsAndMalformed(t *testing.T) {
	b := frame{ID: 7, Payload: []byte("hi")}.marshal()
	b = protowire.AppendTag(b, 9, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)

	f, err := unmarshalFrame(b)
	require.NoError(t, err)
	assert.Equal(t, RequestID(7), f.ID)
	assert.Equal(t, []byte("hi"), f.Payload)

	_, err = unmarshalFrame([]byte{0x12, 0x05, 'a'})
	assert.ErrorIs(t, err, ErrMalformedFrame)
	t.Log("✅ 帧解析")
}

func TestBehaviour_SendRequestQueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.QueueSize = 2
	b, err := New(cfg)
	require.NoError(t, err)

	_, err = b.SendRequest("p", nil)
	require.NoError(t, err)
	_, err = b.SendRequest("p", nil)
	require.NoError(t, err)
	_, err = b.SendRequest("p", nil)
	assert.ErrorIs(t, err, ErrQueueFull)

	// 同一节点只拨号一次
	cx := poll.NewContext(poll.NoopWaker, nil)
	a := b.Poll(cx)
	assert.Equal(t, pkgif.BehaviourDial, a.Kind)
	assert.Equal(t, pkgif.BehaviourPending, b.Poll(cx).Kind)
	t.Log("✅ 待发送请求有上限")
}

func TestBehaviour_AddressBook(t *testing.T) {
	cfg := testConfig()
	cfg.AddressBookSize = 1
	b, err := New(cfg)
	require.NoError(t, err)

	addr := memory.NewAddr(1)
	b.AddAddress("p1", addr)
	b.AddAddress("p1", addr)
	assert.Len(t, b.Addresses("p1"), 1)

	b.AddAddress("p2", memory.NewAddr(2))
	assert.Empty(t, b.Addresses("p1"), "LRU 淘汰最旧的节点")
	assert.Len(t, b.Addresses("p2"), 1)
	t.Log("✅ 地址簿")
}

func TestProvideBehaviour_KnownPeers(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)

	cfg := config.NewConfig()
	cfg.KnownPeers = []config.KnownPeer{{PeerID: id.PeerID().String(), Addrs: []string{"/memory/5"}}}
	res, err := ProvideBehaviour(Params{UnifiedCfg: cfg})
	require.NoError(t, err)

	assert.Equal(t, Key, res.Entry.Key)
	assert.Len(t, res.Behaviour.Addresses(id.PeerID()), 1)
	t.Log("✅ 已知节点写入地址簿")
}

func TestConfig(t *testing.T) {
	cfg := ConfigFromUnified(nil)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []types.ProtocolID{"/p2pcore/echo/1.0.0"}, cfg.Protocols)

	bad := cfg
	bad.Protocols = nil
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
	bad = cfg
	bad.MaxMessageSize = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
	t.Log("✅ 配置校验")
}

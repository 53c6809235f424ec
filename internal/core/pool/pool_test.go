package pool

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-p2pcore/internal/core/identity"
	"github.com/dep2p/go-p2pcore/internal/core/muxer/yamux"
	"github.com/dep2p/go-p2pcore/internal/core/security/plaintext"
	"github.com/dep2p/go-p2pcore/internal/core/transport/memory"
	"github.com/dep2p/go-p2pcore/internal/core/upgrader"
	"github.com/dep2p/go-p2pcore/pkg/handler"
	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// ============================================================================
//                              测试 Handler
// ============================================================================

const testProto types.ProtocolID = "/test/1.0.0"

type notifyCmd struct{ n int }
type openCmd struct{ tag string }
type failCmd struct{ err error }

type testHandler struct {
	keepAlive  bool
	drainEvent any
	actions    []pkgif.HandlerAction
	commands   []any

	// trace 按调用顺序记录命令与连接事件
	trace []string
}

func (h *testHandler) ListenProtocols() []types.ProtocolID {
	return []types.ProtocolID{testProto}
}

func (h *testHandler) OnCommand(cmd any) {
	h.commands = append(h.commands, cmd)
	h.trace = append(h.trace, fmt.Sprintf("command:%T", cmd))
	switch c := cmd.(type) {
	case notifyCmd:
		h.actions = append(h.actions, handler.Notify(c.n))
	case openCmd:
		h.actions = append(h.actions, handler.OpenStream(c.tag, testProto))
	case failCmd:
		h.actions = append(h.actions, handler.Close(c.err))
	}
}

func (h *testHandler) OnConnectionEvent(ev pkgif.ConnectionEvent) {
	h.trace = append(h.trace, fmt.Sprintf("event:%T", ev))
	switch e := ev.(type) {
	case pkgif.FullyNegotiatedOutbound:
		_ = e.Stream.Close()
		h.actions = append(h.actions, handler.Notify("outbound:"+e.Info.(string)))
	case pkgif.FullyNegotiatedInbound:
		_ = e.Stream.Close()
		h.actions = append(h.actions, handler.Notify("inbound:"+string(e.Protocol)))
	case pkgif.DialUpgradeError:
		h.actions = append(h.actions, handler.Notify("dial-upgrade-error"))
	case pkgif.ListenUpgradeError:
		h.actions = append(h.actions, handler.Notify("listen-upgrade-error"))
	}
}

func (h *testHandler) Poll(*poll.Context) pkgif.HandlerAction {
	if len(h.actions) == 0 {
		return handler.Pending()
	}
	a := h.actions[0]
	h.actions = h.actions[1:]
	return a
}

func (h *testHandler) KeepAlive() bool { return h.keepAlive }

func (h *testHandler) PollClose(*poll.Context) (any, bool) {
	if h.drainEvent != nil {
		ev := h.drainEvent
		h.drainEvent = nil
		return ev, false
	}
	return nil, true
}

// ============================================================================
//                              测试节点
// ============================================================================

func testConfig() Config {
	return Config{
		MaxConnections:                8,
		MaxConnectionsPerPeer:         2,
		MaxPendingIncoming:            4,
		MaxPendingOutgoing:            4,
		EventQueueSize:                16,
		CommandQueueSize:              8,
		MaxNegotiatingInboundStreams:  4,
		MaxNegotiatingOutboundStreams: 2,
		SubstreamUpgradeTimeout:       5 * time.Second,
		IdleConnectionTimeout:         10 * time.Second,
		GracefulCloseTimeout:          5 * time.Second,
	}
}

type harness struct {
	t     *testing.T
	id    *identity.Identity
	pool  *Pool
	ln    pkgif.Listener
	clock *clock.Mock
	cx    *poll.Context

	handlers  map[types.ConnectionID]*testHandler
	keepAlive bool
	deny      error
	events    []types.SwarmEvent

	// drainEvents 为 false 时不取出事件（背压测试）
	drainEvents bool
}

func newHarness(t *testing.T, hub *memory.Hub, cfg Config) *harness {
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
	ln, err := tr.Listen(memory.NewAddr(0))
	require.NoError(t, err)

	mock := clock.NewMock()
	h := &harness{
		t:           t,
		id:          id,
		ln:          ln,
		clock:       mock,
		cx:          poll.NewContext(poll.NewSignal(), mock),
		handlers:    make(map[types.ConnectionID]*testHandler),
		keepAlive:   true,
		drainEvents: true,
	}
	h.pool, err = New(cfg, id.PeerID(), []pkgif.Transport{tr}, up, h.newHandler)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = h.pool.Shutdown()
		_ = tr.Close()
	})
	return h
}

func (h *harness) newHandler(info types.ConnectionInfo) (pkgif.ConnectionHandler, error) {
	if h.deny != nil {
		return nil, h.deny
	}
	th := &testHandler{keepAlive: h.keepAlive}
	h.handlers[info.ID] = th
	return th, nil
}

// step 轮询到没有进展，并取出事件
func (h *harness) step() {
	for i := 0; i < 64; i++ {
		progress := h.pool.Poll(h.cx)
		if h.drainEvents {
			for {
				ev, ok := h.pool.NextEvent()
				if !ok {
					break
				}
				h.events = append(h.events, ev)
			}
		}
		if !progress {
			return
		}
	}
}

// pollOnce 只执行一个周期，并取出事件
func (h *harness) pollOnce() []types.SwarmEvent {
	h.pool.Poll(h.cx)
	var out []types.SwarmEvent
	for {
		ev, ok := h.pool.NextEvent()
		if !ok {
			break
		}
		out = append(out, ev)
	}
	h.events = append(h.events, out...)
	return out
}

// acceptOne 接受一个原始入站连接并交给连接池
func (h *harness) acceptOne() (types.ConnectionID, error) {
	raw, err := h.ln.Accept()
	require.NoError(h.t, err)
	return h.pool.Accept(InboundConn{ListenerID: 1, Conn: raw})
}

func pump(t *testing.T, cond func() bool, hs ...*harness) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		for _, h := range hs {
			h.step()
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

func findEvent[T types.SwarmEvent](h *harness, id types.ConnectionID) (T, bool) {
	for _, ev := range h.events {
		if e, ok := ev.(T); ok && types.EventConnectionID(ev) == id {
			return e, true
		}
	}
	var zero T
	return zero, false
}

func countFor(h *harness, id types.ConnectionID) int {
	n := 0
	for _, ev := range h.events {
		if types.EventConnectionID(ev) == id {
			n++
		}
	}
	return n
}

func handlerEvents(h *harness, id types.ConnectionID) []any {
	var out []any
	for _, ev := range h.events {
		if e, ok := ev.(types.HandlerEvent); ok && e.ID == id {
			out = append(out, e.Event)
		}
	}
	return out
}

// connect 建立 a → b 的连接，返回两端的连接 ID
func connect(t *testing.T, a, b *harness) (types.ConnectionID, types.ConnectionID) {
	t.Helper()
	out, err := a.pool.Dial(pkgif.DialOpts{Peer: b.id.PeerID(), Addrs: []types.Multiaddr{b.ln.Multiaddr()}})
	require.NoError(t, err)
	in, err := b.acceptOne()
	require.NoError(t, err)

	pump(t, func() bool {
		_, ok1 := findEvent[types.ConnectionEstablished](a, out)
		_, ok2 := findEvent[types.ConnectionEstablished](b, in)
		return ok1 && ok2
	}, a, b)
	return out, in
}

// ============================================================================
//                              建立与拨号
// ============================================================================

func TestPool_DialAccept(t *testing.T) {
	hub := memory.NewHub()
	a, b := newHarness(t, hub, testConfig()), newHarness(t, hub, testConfig())

	out, in := connect(t, a, b)

	ev, _ := findEvent[types.ConnectionEstablished](a, out)
	assert.Equal(t, b.id.PeerID(), ev.Info.Peer)
	assert.Equal(t, types.DirOutbound, ev.Info.Endpoint.Direction)
	assert.Equal(t, plaintext.ID, ev.Info.Security)
	assert.Equal(t, yamux.ID, ev.Info.Muxer)
	assert.Equal(t, 0, ev.Existing)

	ev, _ = findEvent[types.ConnectionEstablished](b, in)
	assert.Equal(t, a.id.PeerID(), ev.Info.Peer)
	assert.Equal(t, types.DirInbound, ev.Info.Endpoint.Direction)

	assert.True(t, a.pool.IsConnected(b.id.PeerID()))
	assert.Equal(t, []types.ConnectionID{out}, a.pool.ConnectionsTo(b.id.PeerID()))
	assert.Equal(t, []types.PeerID{b.id.PeerID()}, a.pool.Peers())

	st := a.pool.Stats()
	assert.Equal(t, 1, st.Established)
	assert.Equal(t, 0, st.PendingOutgoing)
	assert.Equal(t, 1, st.Active)
	t.Log("✅ 出站与入站连接建立")
}

func TestPool_DialUnsupportedAddr(t *testing.T) {
	a := newHarness(t, memory.NewHub(), testConfig())

	id, err := a.pool.Dial(pkgif.DialOpts{Addrs: []types.Multiaddr{types.MustParseMultiaddr("/ip4/1.2.3.4/tcp/1")}})
	assert.Equal(t, types.NoConnection, id)
	var ae *types.AddressError
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, ErrNoTransport)

	// 没有候选地址以事件报告
	id, err = a.pool.Dial(pkgif.DialOpts{})
	require.NoError(t, err)
	assert.True(t, id.IsValid())
	a.step()
	ev, ok := findEvent[types.DialFailure](a, id)
	require.True(t, ok)
	assert.Equal(t, types.DialErrorNoAddresses, ev.Err.Kind)
}

func TestPool_DialSelf(t *testing.T) {
	a := newHarness(t, memory.NewHub(), testConfig())

	id, err := a.pool.Dial(pkgif.DialOpts{Peer: a.id.PeerID(), Addrs: []types.Multiaddr{a.ln.Multiaddr()}})
	require.NoError(t, err)
	a.step()
	ev, ok := findEvent[types.DialFailure](a, id)
	require.True(t, ok)
	assert.Equal(t, types.DialErrorLocalPeer, ev.Err.Kind)
	assert.ErrorIs(t, ev.Err, ErrDialSelf)
	assert.Equal(t, 1, countFor(a, id))
}

// 拨号不可达地址产生 AddressUnreachable，之后仍可继续拨号
func TestPool_DialUnreachable(t *testing.T) {
	hub := memory.NewHub()
	a, b := newHarness(t, hub, testConfig()), newHarness(t, hub, testConfig())

	id, err := a.pool.Dial(pkgif.DialOpts{Addrs: []types.Multiaddr{memory.NewAddr(60000)}})
	require.NoError(t, err)

	pump(t, func() bool {
		_, ok := findEvent[types.DialFailure](a, id)
		return ok
	}, a)
	ev, _ := findEvent[types.DialFailure](a, id)
	assert.Equal(t, types.DialErrorAddressUnreachable, ev.Err.Kind)
	assert.Equal(t, 0, a.pool.Stats().PendingOutgoing)

	connect(t, a, b)
	t.Log("✅ 拨号失败后连接池仍可用")
}

func TestPool_WrongPeer(t *testing.T) {
	hub := memory.NewHub()
	a, b, c := newHarness(t, hub, testConfig()), newHarness(t, hub, testConfig()), newHarness(t, hub, testConfig())

	id, err := a.pool.Dial(pkgif.DialOpts{Peer: c.id.PeerID(), Addrs: []types.Multiaddr{b.ln.Multiaddr()}})
	require.NoError(t, err)
	_, err = b.acceptOne()
	require.NoError(t, err)

	pump(t, func() bool {
		_, ok := findEvent[types.DialFailure](a, id)
		return ok
	}, a, b)
	ev, _ := findEvent[types.DialFailure](a, id)
	assert.Equal(t, types.DialErrorWrongPeer, ev.Err.Kind)
}

func TestPool_Denied(t *testing.T) {
	hub := memory.NewHub()
	a, b := newHarness(t, hub, testConfig()), newHarness(t, hub, testConfig())
	a.deny = errors.New("not welcome")

	id, err := a.pool.Dial(pkgif.DialOpts{Addrs: []types.Multiaddr{b.ln.Multiaddr()}})
	require.NoError(t, err)
	_, err = b.acceptOne()
	require.NoError(t, err)

	pump(t, func() bool {
		_, ok := findEvent[types.DialFailure](a, id)
		return ok
	}, a, b)
	ev, _ := findEvent[types.DialFailure](a, id)
	assert.Equal(t, types.DialErrorDenied, ev.Err.Kind)
	assert.False(t, a.pool.IsConnected(b.id.PeerID()))
}

// ============================================================================
//                              上限
// ============================================================================

// 连接上限为 1 时第二个入站连接被立即拒绝，第一条连接不受影响
func TestPool_InboundLimit(t *testing.T) {
	hub := memory.NewHub()
	cfg := testConfig()
	cfg.MaxConnections = 1
	cfg.MaxConnectionsPerPeer = 1

	a, b, c := newHarness(t, hub, testConfig()), newHarness(t, hub, cfg), newHarness(t, hub, testConfig())
	out, in := connect(t, a, b)

	_, err := c.pool.Dial(pkgif.DialOpts{Addrs: []types.Multiaddr{b.ln.Multiaddr()}})
	require.NoError(t, err)
	rejected, err := b.acceptOne()

	var le *types.ListenError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, types.ListenErrorLimitExceeded, le.Kind)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.False(t, b.pool.IsPending(rejected))

	// 第一条连接仍然可用
	require.NoError(t, a.pool.NotifyHandler(out, notifyCmd{n: 7}))
	pump(t, func() bool { return len(handlerEvents(a, out)) == 1 }, a, b)
	assert.True(t, b.pool.IsConnected(a.id.PeerID()))
	_, closed := findEvent[types.ConnectionClosed](b, in)
	assert.False(t, closed)
	t.Log("✅ 超限入站连接被立即拒绝")
}

// 超出出站上限以 DialFailure 事件报告；失败队列满时才同步返回错误
func TestPool_OutboundLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPendingOutgoing = 1
	a := newHarness(t, memory.NewHub(), cfg)

	// 没有人 Accept，第一次拨号停留在升级阶段
	first, err := a.pool.Dial(pkgif.DialOpts{Addrs: []types.Multiaddr{a.ln.Multiaddr()}})
	require.NoError(t, err)

	id, err := a.pool.Dial(pkgif.DialOpts{Addrs: []types.Multiaddr{a.ln.Multiaddr()}})
	require.NoError(t, err)
	assert.True(t, id.IsValid())

	// 失败队列容量为 MaxPendingOutgoing，尚未轮询时再次超限同步失败
	third, err := a.pool.Dial(pkgif.DialOpts{Addrs: []types.Multiaddr{a.ln.Multiaddr()}})
	assert.True(t, types.IsDialErrorKind(err, types.DialErrorLimitExceeded))

	a.step()
	ev, ok := findEvent[types.DialFailure](a, id)
	require.True(t, ok)
	assert.Equal(t, types.DialErrorLimitExceeded, ev.Err.Kind)
	assert.ErrorIs(t, ev.Err, ErrLimitExceeded)
	assert.Equal(t, 0, countFor(a, third))
	assert.True(t, a.pool.IsPending(first))
	t.Log("✅ 超出出站上限以事件报告")
}

// 已有一条连接且总上限为 1 时，再次拨号以 DialFailure 事件报告
func TestPool_DialLimitEvent(t *testing.T) {
	hub := memory.NewHub()
	cfg := testConfig()
	cfg.MaxConnections = 1
	a, b := newHarness(t, hub, cfg), newHarness(t, hub, testConfig())
	connect(t, a, b)

	id, err := a.pool.Dial(pkgif.DialOpts{Peer: b.id.PeerID(), Addrs: []types.Multiaddr{b.ln.Multiaddr()}})
	require.NoError(t, err)
	a.step()

	ev, ok := findEvent[types.DialFailure](a, id)
	require.True(t, ok)
	assert.Equal(t, types.DialErrorLimitExceeded, ev.Err.Kind)
	assert.Equal(t, b.id.PeerID(), ev.Peer)
	assert.Equal(t, 1, a.pool.Stats().Established)
	t.Log("✅ 总上限以 DialFailure 事件报告")
}

// ============================================================================
//                              优先级
// ============================================================================

// 同一周期内出站完成先于入站完成交付，与连接 ID 的先后无关
func TestPool_PriorityOutboundBeforeInbound(t *testing.T) {
	hub := memory.NewHub()
	a, b, c := newHarness(t, hub, testConfig()), newHarness(t, hub, testConfig()), newHarness(t, hub, testConfig())

	// 入站先分配到较小的 ID
	_, err := c.pool.Dial(pkgif.DialOpts{Peer: a.id.PeerID(), Addrs: []types.Multiaddr{a.ln.Multiaddr()}})
	require.NoError(t, err)
	in, err := a.acceptOne()
	require.NoError(t, err)

	out, err := a.pool.Dial(pkgif.DialOpts{Peer: b.id.PeerID(), Addrs: []types.Multiaddr{b.ln.Multiaddr()}})
	require.NoError(t, err)
	_, err = b.acceptOne()
	require.NoError(t, err)
	require.Less(t, in, out)

	// 两个升级都在边缘 goroutine 完成后再轮询 a
	require.Eventually(t, func() bool {
		return a.pool.pending[in].task.Ready() && a.pool.pending[out].task.Ready()
	}, 5*time.Second, 2*time.Millisecond)

	evs := a.pollOnce()
	require.Len(t, evs, 2)
	first, ok := evs[0].(types.ConnectionEstablished)
	require.True(t, ok)
	assert.Equal(t, out, first.Info.ID)
	second, ok := evs[1].(types.ConnectionEstablished)
	require.True(t, ok)
	assert.Equal(t, in, second.Info.ID)
	t.Log("✅ 出站完成先于入站完成")
}

// 同一周期内排队命令先于新完成的入站子流交给 Handler
func TestPool_PriorityCommandsBeforeInboundStreams(t *testing.T) {
	hub := memory.NewHub()
	a, b := newHarness(t, hub, testConfig()), newHarness(t, hub, testConfig())
	out, in := connect(t, a, b)
	ca := a.pool.conns[out]
	ha := a.handlers[out]

	// b 打开一条子流，等待 a 的接受任务完成
	require.NoError(t, b.pool.NotifyHandler(in, openCmd{tag: "x"}))
	b.pollOnce()
	require.Eventually(t, func() bool {
		return ca.accept != nil && ca.accept.Ready()
	}, 5*time.Second, 2*time.Millisecond)

	// a 接受子流并开始协商，等待协商在边缘完成
	a.pollOnce()
	require.Eventually(t, func() bool {
		return len(ca.inbound) == 1 && ca.inbound[0].Ready()
	}, 5*time.Second, 2*time.Millisecond)

	ha.trace = nil
	require.NoError(t, a.pool.NotifyHandler(out, notifyCmd{n: 1}))
	evs := a.pollOnce()

	assert.Equal(t, []string{
		"command:pool.notifyCmd",
		"event:interfaces.FullyNegotiatedInbound",
	}, ha.trace)
	require.NotEmpty(t, evs)
	assert.Equal(t, types.HandlerEvent{Peer: b.id.PeerID(), ID: out, Event: 1}, evs[0])
	t.Log("✅ 进行中的本地工作先于新的入站工作")
}

// ============================================================================
//                              关闭
// ============================================================================

// 升级过程中关闭只产生一个取消事件
func TestPool_ClosePending(t *testing.T) {
	a := newHarness(t, memory.NewHub(), testConfig())

	// 拨向自己的监听器但不 Accept，升级会一直阻塞
	id, err := a.pool.Dial(pkgif.DialOpts{Addrs: []types.Multiaddr{a.ln.Multiaddr()}})
	require.NoError(t, err)
	a.step()
	require.True(t, a.pool.IsPending(id))

	assert.True(t, a.pool.Close(id))
	assert.False(t, a.pool.Close(id))

	pump(t, func() bool { return !a.pool.IsPending(id) }, a)
	a.step()

	require.Equal(t, 1, countFor(a, id))
	ev, _ := findEvent[types.DialFailure](a, id)
	assert.Equal(t, types.DialErrorCancelled, ev.Err.Kind)
	assert.Empty(t, handlerEvents(a, id))
	t.Log("✅ 取消 pending 连接恰好产生一个事件")
}

func TestPool_CloseEstablished(t *testing.T) {
	hub := memory.NewHub()
	a, b := newHarness(t, hub, testConfig()), newHarness(t, hub, testConfig())
	out, in := connect(t, a, b)
	a.handlers[out].drainEvent = "bye"

	require.True(t, a.pool.Close(out))
	// 关闭中的连接不再接受命令
	require.NoError(t, a.pool.NotifyHandler(out, notifyCmd{n: 1}))

	pump(t, func() bool {
		_, ok1 := findEvent[types.ConnectionClosed](a, out)
		_, ok2 := findEvent[types.ConnectionClosed](b, in)
		return ok1 && ok2
	}, a, b)

	evs := handlerEvents(a, out)
	assert.Equal(t, []any{"bye"}, evs)
	assert.Empty(t, a.handlers[out].commands)

	closed, _ := findEvent[types.ConnectionClosed](a, out)
	assert.Equal(t, types.CloseReasonLocal, closed.Reason)
	assert.Equal(t, 0, closed.Remaining)

	remote, _ := findEvent[types.ConnectionClosed](b, in)
	assert.Equal(t, types.CloseReasonIO, remote.Reason)

	// 排空事件先于关闭事件
	var order []string
	for _, ev := range a.events {
		if types.EventConnectionID(ev) != out {
			continue
		}
		switch ev.(type) {
		case types.HandlerEvent:
			order = append(order, "handler")
		case types.ConnectionClosed:
			order = append(order, "closed")
		}
	}
	assert.Equal(t, []string{"handler", "closed"}, order)

	// 已关闭的 id 静默丢弃
	assert.NoError(t, a.pool.NotifyHandler(out, notifyCmd{n: 2}))
	assert.False(t, a.pool.Close(out))
	t.Log("✅ 已建立连接优雅关闭")
}

func TestPool_HandlerClose(t *testing.T) {
	hub := memory.NewHub()
	a, b := newHarness(t, hub, testConfig()), newHarness(t, hub, testConfig())
	out, _ := connect(t, a, b)

	boom := errors.New("protocol violation")
	require.NoError(t, a.pool.NotifyHandler(out, failCmd{err: boom}))

	pump(t, func() bool {
		_, ok := findEvent[types.ConnectionClosed](a, out)
		return ok
	}, a, b)
	ev, _ := findEvent[types.ConnectionClosed](a, out)
	assert.Equal(t, types.CloseReasonHandler, ev.Reason)
	assert.ErrorIs(t, ev.Err, types.ErrHandler)
	assert.ErrorIs(t, ev.Err, boom)
}

func TestPool_IdleTimeout(t *testing.T) {
	hub := memory.NewHub()
	a, b := newHarness(t, hub, testConfig()), newHarness(t, hub, testConfig())
	a.keepAlive = false
	out, _ := connect(t, a, b)

	a.step()
	state, ok := a.pool.ConnState(out)
	require.True(t, ok)
	assert.Equal(t, ConnIdle, state)

	a.clock.Add(testConfig().IdleConnectionTimeout)
	pump(t, func() bool {
		_, ok := findEvent[types.ConnectionClosed](a, out)
		return ok
	}, a, b)
	ev, _ := findEvent[types.ConnectionClosed](a, out)
	assert.Equal(t, types.CloseReasonKeepAliveTimeout, ev.Reason)
	t.Log("✅ 空闲连接超时关闭")
}

func TestPool_DisconnectPeer(t *testing.T) {
	hub := memory.NewHub()
	a, b := newHarness(t, hub, testConfig()), newHarness(t, hub, testConfig())
	out1, _ := connect(t, a, b)
	out2, _ := connect(t, a, b)

	assert.Equal(t, 2, a.pool.DisconnectPeer(b.id.PeerID()))
	pump(t, func() bool { return !a.pool.IsConnected(b.id.PeerID()) }, a, b)

	_, ok1 := findEvent[types.ConnectionClosed](a, out1)
	_, ok2 := findEvent[types.ConnectionClosed](a, out2)
	assert.True(t, ok1 && ok2)
}

// ============================================================================
//                              命令与事件
// ============================================================================

func TestPool_CommandFIFO(t *testing.T) {
	hub := memory.NewHub()
	a, b := newHarness(t, hub, testConfig()), newHarness(t, hub, testConfig())
	out, _ := connect(t, a, b)

	for i := 1; i <= 5; i++ {
		require.NoError(t, a.pool.NotifyHandler(out, notifyCmd{n: i}))
	}

	// 单个周期内每条连接最多一个 Handler 事件
	a.pool.Poll(a.cx)
	n := 0
	for {
		ev, ok := a.pool.NextEvent()
		if !ok {
			break
		}
		a.events = append(a.events, ev)
		if _, ok := ev.(types.HandlerEvent); ok {
			n++
		}
	}
	assert.Equal(t, 1, n)

	pump(t, func() bool { return len(handlerEvents(a, out)) == 5 }, a)
	assert.Equal(t, []any{1, 2, 3, 4, 5}, handlerEvents(a, out))
	t.Log("✅ 同一连接的命令按 FIFO 投递")
}

func TestPool_CommandQueueFull(t *testing.T) {
	hub := memory.NewHub()
	cfg := testConfig()
	cfg.CommandQueueSize = 2
	a, b := newHarness(t, hub, cfg), newHarness(t, hub, testConfig())
	out, _ := connect(t, a, b)

	require.NoError(t, a.pool.NotifyHandler(out, notifyCmd{n: 1}))
	require.NoError(t, a.pool.NotifyHandler(out, notifyCmd{n: 2}))
	assert.ErrorIs(t, a.pool.NotifyHandler(out, notifyCmd{n: 3}), ErrCommandQueueFull)

	// 投递后可以继续发送
	a.step()
	assert.NoError(t, a.pool.NotifyHandler(out, notifyCmd{n: 3}))
	pump(t, func() bool { return len(handlerEvents(a, out)) == 3 }, a)
	assert.Equal(t, []any{1, 2, 3}, handlerEvents(a, out))
}

// 事件队列满时 Poll 不再产生事件
func TestPool_Backpressure(t *testing.T) {
	cfg := testConfig()
	cfg.EventQueueSize = 1
	a := newHarness(t, memory.NewHub(), cfg)
	a.drainEvents = false

	var ids []types.ConnectionID
	for i := 0; i < 3; i++ {
		id, err := a.pool.Dial(pkgif.DialOpts{Addrs: []types.Multiaddr{memory.NewAddr(uint64(60000 + i))}})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	// 等待所有拨号任务结束
	assert.Eventually(t, func() bool {
		a.pool.Poll(a.cx)
		return a.pool.events.Full()
	}, 5*time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.False(t, a.pool.Poll(a.cx))
	assert.Equal(t, 1, a.pool.Stats().EventQueue)
	assert.Equal(t, 2, a.pool.Stats().PendingOutgoing)

	var got []types.ConnectionID
	deadline := time.Now().Add(5 * time.Second)
	for len(got) < 3 && time.Now().Before(deadline) {
		if ev, ok := a.pool.NextEvent(); ok {
			got = append(got, types.EventConnectionID(ev))
			assert.LessOrEqual(t, a.pool.Stats().EventQueue, 1)
			continue
		}
		if !a.pool.Poll(a.cx) {
			time.Sleep(time.Millisecond)
		}
	}
	assert.ElementsMatch(t, ids, got)
	assert.Equal(t, 0, a.pool.Stats().PendingOutgoing)
	t.Log("✅ 事件队列满时不再增长")
}

// ============================================================================
//                              子流
// ============================================================================

func TestPool_Substreams(t *testing.T) {
	hub := memory.NewHub()
	a, b := newHarness(t, hub, testConfig()), newHarness(t, hub, testConfig())
	out, in := connect(t, a, b)

	for i := 0; i < 3; i++ {
		require.NoError(t, a.pool.NotifyHandler(out, openCmd{tag: fmt.Sprintf("s%d", i)}))
	}

	pump(t, func() bool {
		return len(handlerEvents(a, out)) == 3 && len(handlerEvents(b, in)) == 3
	}, a, b)

	assert.ElementsMatch(t, []any{"outbound:s0", "outbound:s1", "outbound:s2"}, handlerEvents(a, out))
	for _, ev := range handlerEvents(b, in) {
		assert.Equal(t, "inbound:"+string(testProto), ev)
	}
	t.Log("✅ 子流协商完成并交给 Handler")
}

// ============================================================================
//                              配置与关闭
// ============================================================================

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, testConfig().Validate())
	require.NoError(t, ConfigFromUnified(nil).Validate())

	cfg := testConfig()
	cfg.EventQueueSize = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = testConfig()
	cfg.GracefulCloseTimeout = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = testConfig()
	cfg.MaxConnectionsPerPeer = cfg.MaxConnections + 1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestNew_Validation(t *testing.T) {
	factory := func(types.ConnectionInfo) (pkgif.ConnectionHandler, error) { return handler.Dummy{}, nil }
	tr := []pkgif.Transport{memory.New(memory.NewHub())}

	_, err := New(Config{}, "", tr, nil, factory)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(testConfig(), "", nil, nil, factory)
	assert.ErrorIs(t, err, ErrNoTransport)

	_, err = New(testConfig(), "", tr, nil, factory)
	assert.ErrorIs(t, err, ErrNilUpgrader)
}

func TestPool_Shutdown(t *testing.T) {
	hub := memory.NewHub()
	a, b := newHarness(t, hub, testConfig()), newHarness(t, hub, testConfig())
	connect(t, a, b)

	require.NoError(t, a.pool.Shutdown())
	assert.False(t, a.pool.IsConnected(b.id.PeerID()))
	assert.False(t, a.pool.Poll(a.cx))

	_, err := a.pool.Dial(pkgif.DialOpts{Addrs: []types.Multiaddr{b.ln.Multiaddr()}})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

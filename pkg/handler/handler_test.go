package handler

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/codec"
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

// pipeStream 基于 net.Pipe 的子流
type pipeStream struct {
	net.Conn
	resets int
}

func (s *pipeStream) CloseWrite() error { return s.Conn.Close() }
func (s *pipeStream) Reset() error {
	s.resets++
	return s.Conn.Close()
}

func newStreamPair() (*pipeStream, *pipeStream) {
	a, b := net.Pipe()
	return &pipeStream{Conn: a}, &pipeStream{Conn: b}
}

// scriptHandler 按脚本返回动作并记录输入
type scriptHandler struct {
	protos    []types.ProtocolID
	actions   []interfaces.HandlerAction
	commands  []any
	events    []interfaces.ConnectionEvent
	keepAlive bool
	closeEvs  []any
	polls     int

	// lastClose 结束排空时随 done 一起返回的事件
	lastClose any
}

func (h *scriptHandler) ListenProtocols() []types.ProtocolID { return h.protos }
func (h *scriptHandler) OnCommand(cmd any)                   { h.commands = append(h.commands, cmd) }
func (h *scriptHandler) OnConnectionEvent(ev interfaces.ConnectionEvent) {
	h.events = append(h.events, ev)
}
func (h *scriptHandler) Poll(*poll.Context) interfaces.HandlerAction {
	h.polls++
	if len(h.actions) == 0 {
		return Pending()
	}
	a := h.actions[0]
	h.actions = h.actions[1:]
	return a
}
func (h *scriptHandler) KeepAlive() bool { return h.keepAlive }
func (h *scriptHandler) PollClose(*poll.Context) (any, bool) {
	if len(h.closeEvs) == 0 {
		ev := h.lastClose
		h.lastClose = nil
		return ev, true
	}
	ev := h.closeEvs[0]
	h.closeEvs = h.closeEvs[1:]
	return ev, false
}

func testCx() *poll.Context {
	return poll.NewContext(poll.NoopWaker, clock.NewMock())
}

// ============================================================================
//                              Composite 测试
// ============================================================================

func TestComposite_RoutesCommandsByKey(t *testing.T) {
	a := &scriptHandler{protos: []types.ProtocolID{"/a/1"}}
	b := &scriptHandler{protos: []types.ProtocolID{"/b/1"}}
	c, err := NewComposite(Entry{Key: "a", Handler: a}, Entry{Key: "b", Handler: b})
	require.NoError(t, err)

	assert.Equal(t, []types.ProtocolID{"/a/1", "/b/1"}, c.ListenProtocols())

	c.OnCommand(Tagged{Key: "b", Value: 1})
	c.OnCommand(Tagged{Key: "a", Value: 2})
	c.OnCommand(Tagged{Key: "b", Value: 3})
	c.OnCommand(Tagged{Key: "missing", Value: 4})
	c.OnCommand("untagged")

	assert.Equal(t, []any{2}, a.commands)
	assert.Equal(t, []any{1, 3}, b.commands, "同一子处理器内保持 FIFO")

	got, ok := c.Handler("a")
	require.True(t, ok)
	assert.Same(t, a, got)
}

func TestComposite_RejectsDuplicates(t *testing.T) {
	_, err := NewComposite()
	assert.ErrorIs(t, err, ErrNoHandlers)

	_, err = NewComposite(Entry{Key: "a", Handler: Dummy{}}, Entry{Key: "a", Handler: Dummy{}})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	p := []types.ProtocolID{"/x/1"}
	_, err = NewComposite(
		Entry{Key: "a", Handler: &scriptHandler{protos: p}},
		Entry{Key: "b", Handler: &scriptHandler{protos: p}},
	)
	assert.ErrorIs(t, err, ErrDuplicateProtocol)
}

func TestComposite_RoutesStreams(t *testing.T) {
	a := &scriptHandler{protos: []types.ProtocolID{"/a/1"}, actions: []interfaces.HandlerAction{OpenStream("req-1", "/a/1")}}
	b := &scriptHandler{protos: []types.ProtocolID{"/b/1"}}
	c, err := NewComposite(Entry{Key: "a", Handler: a}, Entry{Key: "b", Handler: b})
	require.NoError(t, err)

	// 出站子流请求携带发起者标记
	act := c.Poll(testCx())
	require.Equal(t, interfaces.ActionOpenStream, act.Kind)
	assert.Equal(t, []types.ProtocolID{"/a/1"}, act.Protocols)

	s1, s2 := newStreamPair()
	defer s2.Close()
	c.OnConnectionEvent(interfaces.FullyNegotiatedOutbound{Protocol: "/a/1", Stream: s1, Info: act.Info})
	require.Len(t, a.events, 1)
	out := a.events[0].(interfaces.FullyNegotiatedOutbound)
	assert.Equal(t, "req-1", out.Info, "关联数据原样返回")

	c.OnConnectionEvent(interfaces.DialUpgradeError{Info: act.Info, Err: errors.New("boom")})
	require.Len(t, a.events, 2)
	assert.Equal(t, "req-1", a.events[1].(interfaces.DialUpgradeError).Info)

	// 入站子流按协议路由
	s3, s4 := newStreamPair()
	defer s4.Close()
	c.OnConnectionEvent(interfaces.FullyNegotiatedInbound{Protocol: "/b/1", Stream: s3})
	require.Len(t, b.events, 1)

	// 无人声明的协议被重置
	s5, s6 := newStreamPair()
	defer s6.Close()
	c.OnConnectionEvent(interfaces.FullyNegotiatedInbound{Protocol: "/zzz", Stream: s5})
	assert.Equal(t, 1, s5.resets)

	// 入站协商失败广播
	c.OnConnectionEvent(interfaces.ListenUpgradeError{Err: errors.New("x")})
	assert.Len(t, a.events, 3)
	assert.Len(t, b.events, 2)
}

func TestComposite_PollFairness(t *testing.T) {
	// 两个子处理器都一直有事件，轮询应交替进行
	a := &scriptHandler{}
	b := &scriptHandler{}
	for i := 0; i < 3; i++ {
		a.actions = append(a.actions, Notify(i))
		b.actions = append(b.actions, Notify(i))
	}
	c, err := NewComposite(Entry{Key: "a", Handler: a}, Entry{Key: "b", Handler: b})
	require.NoError(t, err)

	var keys []string
	for i := 0; i < 6; i++ {
		act := c.Poll(testCx())
		require.Equal(t, interfaces.ActionNotify, act.Kind)
		keys = append(keys, act.Event.(Tagged).Key)
	}
	assert.Equal(t, []string{"a", "b", "a", "b", "a", "b"}, keys)
	assert.Equal(t, interfaces.ActionPending, c.Poll(testCx()).Kind)
}

func TestComposite_KeepAliveAndClose(t *testing.T) {
	a := &scriptHandler{closeEvs: []any{"final"}}
	b := &scriptHandler{keepAlive: true}
	c, err := NewComposite(Entry{Key: "a", Handler: a}, Entry{Key: "b", Handler: b})
	require.NoError(t, err)

	assert.True(t, c.KeepAlive())
	b.keepAlive = false
	assert.False(t, c.KeepAlive())

	ev, done := c.PollClose(testCx())
	assert.False(t, done)
	assert.Equal(t, Tagged{Key: "a", Value: "final"}, ev)

	ev, done = c.PollClose(testCx())
	assert.True(t, done)
	assert.Nil(t, ev)
}

// 子 Handler 在结束时返回的最后一个事件不会丢失
func TestComposite_PollCloseFinalEvent(t *testing.T) {
	a := &scriptHandler{lastClose: "final-failure"}
	b := &scriptHandler{closeEvs: []any{"b-drain"}, lastClose: "b-last"}
	c, err := NewComposite(Entry{Key: "a", Handler: a}, Entry{Key: "b", Handler: b})
	require.NoError(t, err)

	var got []any
	for i := 0; i < 10; i++ {
		ev, done := c.PollClose(testCx())
		if ev != nil {
			got = append(got, ev)
		}
		if done {
			break
		}
	}
	assert.Equal(t, []any{
		Tagged{Key: "a", Value: "final-failure"},
		Tagged{Key: "b", Value: "b-drain"},
		Tagged{Key: "b", Value: "b-last"},
	}, got)

	ev, done := c.PollClose(testCx())
	assert.True(t, done)
	assert.Nil(t, ev)
	t.Log("✅ 排空结束时的事件被交付")
}

func TestComposite_CloseAction(t *testing.T) {
	cause := errors.New("protocol violation")
	a := &scriptHandler{actions: []interfaces.HandlerAction{Close(cause)}}
	c, err := NewComposite(Entry{Key: "a", Handler: a})
	require.NoError(t, err)

	act := c.Poll(testCx())
	assert.Equal(t, interfaces.ActionClose, act.Kind)
	assert.ErrorIs(t, act.Err, cause)
}

// ============================================================================
//                              Substream 测试
// ============================================================================

func TestSubstream_ReadWrite(t *testing.T) {
	local, remote := newStreamPair()
	lc := codec.NewLengthPrefixed(1024)

	sub := NewSubstream(local, "/echo/1", lc)
	assert.Equal(t, types.ProtocolID("/echo/1"), sub.Protocol())

	sig := poll.NewSignal()
	cx := poll.NewContext(sig, clock.NewMock())

	// 对端回显一条消息
	go func() {
		msg, err := lc.ReadMessage(remote)
		if err != nil {
			return
		}
		_ = lc.WriteMessage(remote, msg)
	}()

	require.NoError(t, sub.Send([]byte("hi")))
	assert.ErrorIs(t, sub.Send([]byte("again")), ErrSubstreamBusy)

	waitReady(t, sig, func() bool {
		ready, err := sub.PollFlush(cx)
		require.NoError(t, err)
		return ready
	})

	var got any
	waitReady(t, sig, func() bool {
		msg, ready, err := sub.PollRead(cx)
		require.NoError(t, err)
		got = msg
		return ready
	})
	assert.Equal(t, []byte("hi"), got)
	assert.False(t, sub.Busy())

	require.NoError(t, sub.Reset())
	assert.Equal(t, 1, local.resets)
}

// waitReady 反复轮询直到就绪，期间等待唤醒信号
func waitReady(t *testing.T, sig *poll.Signal, f func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !f() {
		select {
		case <-sig.C():
		case <-deadline:
			t.Fatal("等待就绪超时")
		}
	}
}

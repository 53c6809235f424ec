package behaviour

import (
	"errors"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-p2pcore/pkg/handler"
	"github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// scriptBehaviour 按脚本返回动作并记录输入
type scriptBehaviour struct {
	actions       []interfaces.BehaviourAction
	swarmEvents   []types.SwarmEvent
	handlerEvents []any
	protos        []types.ProtocolID
	deny          error
	denyInbound   error
}

func (b *scriptBehaviour) NewHandler(types.ConnectionInfo) (interfaces.ConnectionHandler, error) {
	if b.deny != nil {
		return nil, b.deny
	}
	return &protoHandler{protos: b.protos}, nil
}
func (b *scriptBehaviour) OnSwarmEvent(ev types.SwarmEvent) { b.swarmEvents = append(b.swarmEvents, ev) }
func (b *scriptBehaviour) OnHandlerEvent(_ types.PeerID, _ types.ConnectionID, ev any) {
	b.handlerEvents = append(b.handlerEvents, ev)
}
func (b *scriptBehaviour) Poll(*poll.Context) interfaces.BehaviourAction {
	if len(b.actions) == 0 {
		return interfaces.PendingAction()
	}
	a := b.actions[0]
	b.actions = b.actions[1:]
	return a
}
func (b *scriptBehaviour) HandlePendingInbound(types.ConnectionID, types.Multiaddr, types.Multiaddr) error {
	return b.denyInbound
}

type protoHandler struct {
	handler.Dummy
	protos []types.ProtocolID
}

func (h *protoHandler) ListenProtocols() []types.ProtocolID { return h.protos }

func testCx() *poll.Context {
	return poll.NewContext(poll.NoopWaker, clock.NewMock())
}

func TestCompose_Validation(t *testing.T) {
	_, err := Compose()
	assert.ErrorIs(t, err, ErrNoBehaviours)

	_, err = Compose(Entry{Key: "", Behaviour: Dummy{}})
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, err = Compose(Entry{Key: "a", Behaviour: Dummy{}}, Entry{Key: "a", Behaviour: Dummy{}})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestCompose_BroadcastsSwarmEvents(t *testing.T) {
	a, b := &scriptBehaviour{}, &scriptBehaviour{}
	c, err := Compose(Entry{Key: "a", Behaviour: a}, Entry{Key: "b", Behaviour: b})
	require.NoError(t, err)

	ev := types.ConnectionEstablished{Info: types.ConnectionInfo{ID: 1}}
	c.OnSwarmEvent(ev)
	assert.Equal(t, []types.SwarmEvent{ev}, a.swarmEvents)
	assert.Equal(t, []types.SwarmEvent{ev}, b.swarmEvents)
}

func TestCompose_TagsAndRoutes(t *testing.T) {
	a := &scriptBehaviour{actions: []interfaces.BehaviourAction{
		interfaces.NotifyAction("peer", 1, "cmd-a"),
		interfaces.EventAction("out-a"),
	}}
	b := &scriptBehaviour{}
	c, err := Compose(Entry{Key: "a", Behaviour: a}, Entry{Key: "b", Behaviour: b})
	require.NoError(t, err)

	act := c.Poll(testCx())
	require.Equal(t, interfaces.BehaviourNotifyHandler, act.Kind)
	assert.Equal(t, handler.Tagged{Key: "a", Value: "cmd-a"}, act.Command)

	act = c.Poll(testCx())
	require.Equal(t, interfaces.BehaviourGenerateEvent, act.Kind)
	assert.Equal(t, Event{Key: "a", Event: "out-a"}, act.Event)

	// 带标记的处理器事件路由回对应子行为
	c.OnHandlerEvent("peer", 1, handler.Tagged{Key: "b", Value: "resp"})
	c.OnHandlerEvent("peer", 1, handler.Tagged{Key: "zzz", Value: "lost"})
	c.OnHandlerEvent("peer", 1, "untagged")
	assert.Empty(t, a.handlerEvents)
	assert.Equal(t, []any{"resp"}, b.handlerEvents)
}

func TestCompose_PollFairness(t *testing.T) {
	a, b, c := &scriptBehaviour{}, &scriptBehaviour{}, &scriptBehaviour{}
	for i := 0; i < 2; i++ {
		a.actions = append(a.actions, interfaces.EventAction(i))
		b.actions = append(b.actions, interfaces.EventAction(i))
		c.actions = append(c.actions, interfaces.EventAction(i))
	}
	comp, err := Compose(Entry{Key: "a", Behaviour: a}, Entry{Key: "b", Behaviour: b}, Entry{Key: "c", Behaviour: c})
	require.NoError(t, err)

	var keys []string
	for {
		act := comp.Poll(testCx())
		if act.Kind == interfaces.BehaviourPending {
			break
		}
		keys = append(keys, act.Event.(Event).Key)
	}
	// 一个子行为不能连续独占
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, keys)
}

func TestCompose_NewHandler(t *testing.T) {
	a := &scriptBehaviour{protos: []types.ProtocolID{"/a/1"}}
	b := &scriptBehaviour{protos: []types.ProtocolID{"/b/1"}}
	c, err := Compose(Entry{Key: "a", Behaviour: a}, Entry{Key: "b", Behaviour: b})
	require.NoError(t, err)

	h, err := c.NewHandler(types.ConnectionInfo{ID: 1})
	require.NoError(t, err)
	assert.Equal(t, []types.ProtocolID{"/a/1", "/b/1"}, h.ListenProtocols())

	// 任一子行为拒绝即拒绝连接
	denied := errors.New("blocked")
	b.deny = denied
	_, err = c.NewHandler(types.ConnectionInfo{ID: 2})
	assert.ErrorIs(t, err, denied)
}

func TestCompose_InboundFilter(t *testing.T) {
	a := &scriptBehaviour{}
	c, err := Compose(Entry{Key: "a", Behaviour: a}, Entry{Key: "d", Behaviour: Dummy{}})
	require.NoError(t, err)

	assert.NoError(t, c.HandlePendingInbound(1, nil, nil))

	a.denyInbound = errors.New("banned")
	assert.ErrorIs(t, c.HandlePendingInbound(1, nil, nil), a.denyInbound)
}

func TestToggle(t *testing.T) {
	inner := &scriptBehaviour{
		protos:  []types.ProtocolID{"/a/1"},
		actions: []interfaces.BehaviourAction{interfaces.EventAction("x")},
	}

	off := NewToggle(inner, false)
	assert.False(t, off.Enabled())
	assert.Nil(t, off.Inner())
	h, err := off.NewHandler(types.ConnectionInfo{})
	require.NoError(t, err)
	assert.Empty(t, h.ListenProtocols())
	assert.Equal(t, interfaces.BehaviourPending, off.Poll(testCx()).Kind)
	off.OnSwarmEvent(types.NewListenAddr{})
	assert.Empty(t, inner.swarmEvents)
	assert.NoError(t, off.HandlePendingInbound(1, nil, nil))

	on := NewToggle(inner, true)
	assert.True(t, on.Enabled())
	assert.Equal(t, interfaces.BehaviourGenerateEvent, on.Poll(testCx()).Kind)
	on.OnHandlerEvent("p", 1, "ev")
	assert.Equal(t, []any{"ev"}, inner.handlerEvents)
}

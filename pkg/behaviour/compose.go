package behaviour

import (
	"fmt"

	"github.com/dep2p/go-p2pcore/pkg/handler"
	"github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/log"
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var logger = log.Logger("behaviour/compose")

// Entry 组合中的一个子 Behaviour
type Entry struct {
	Key       string
	Behaviour interfaces.NetworkBehaviour
}

// Event 子 Behaviour 交给嵌入方的事件
type Event struct {
	Key   string
	Event any
}

// Composed 组合 Behaviour
type Composed struct {
	entries []Entry
	byKey   map[string]int

	// next 下一轮首先轮询的子 Behaviour
	next int
}

var (
	_ interfaces.NetworkBehaviour = (*Composed)(nil)
	_ interfaces.InboundFilter    = (*Composed)(nil)
)

// Compose 组合多个 Behaviour
func Compose(entries ...Entry) (*Composed, error) {
	if len(entries) == 0 {
		return nil, ErrNoBehaviours
	}
	c := &Composed{byKey: make(map[string]int, len(entries))}
	for i, e := range entries {
		if e.Key == "" {
			return nil, ErrEmptyKey
		}
		if _, ok := c.byKey[e.Key]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, e.Key)
		}
		c.byKey[e.Key] = i
		c.entries = append(c.entries, e)
	}
	return c, nil
}

// Behaviour 返回指定 Key 的子 Behaviour
func (c *Composed) Behaviour(key string) (interfaces.NetworkBehaviour, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return nil, false
	}
	return c.entries[i].Behaviour, true
}

// NewHandler 为每个子 Behaviour 创建 Handler 并组合
//
// 任一子 Behaviour 拒绝即拒绝整条连接。
func (c *Composed) NewHandler(info types.ConnectionInfo) (interfaces.ConnectionHandler, error) {
	hs := make([]handler.Entry, 0, len(c.entries))
	for _, e := range c.entries {
		h, err := e.Behaviour.NewHandler(info)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Key, err)
		}
		hs = append(hs, handler.Entry{Key: e.Key, Handler: h})
	}
	return handler.NewComposite(hs...)
}

// HandlePendingInbound 询问实现了 InboundFilter 的子 Behaviour
func (c *Composed) HandlePendingInbound(id types.ConnectionID, local, remote types.Multiaddr) error {
	for _, e := range c.entries {
		f, ok := e.Behaviour.(interfaces.InboundFilter)
		if !ok {
			continue
		}
		if err := f.HandlePendingInbound(id, local, remote); err != nil {
			return fmt.Errorf("%s: %w", e.Key, err)
		}
	}
	return nil
}

// OnSwarmEvent 广播给所有子 Behaviour
func (c *Composed) OnSwarmEvent(ev types.SwarmEvent) {
	for _, e := range c.entries {
		e.Behaviour.OnSwarmEvent(ev)
	}
}

// OnHandlerEvent 按 Key 路由回子 Behaviour
func (c *Composed) OnHandlerEvent(peer types.PeerID, id types.ConnectionID, ev any) {
	t, ok := ev.(handler.Tagged)
	if !ok {
		logger.Debug("丢弃未标记的处理器事件", "conn", id, "type", fmt.Sprintf("%T", ev))
		return
	}
	i, ok := c.byKey[t.Key]
	if !ok {
		logger.Debug("丢弃未知子行为的处理器事件", "conn", id, "key", t.Key)
		return
	}
	c.entries[i].Behaviour.OnHandlerEvent(peer, id, t.Value)
}

// Poll 轮转轮询子 Behaviour
func (c *Composed) Poll(cx *poll.Context) interfaces.BehaviourAction {
	n := len(c.entries)
	for k := 0; k < n; k++ {
		i := (c.next + k) % n
		e := c.entries[i]
		a := e.Behaviour.Poll(cx)

		switch a.Kind {
		case interfaces.BehaviourPending:
			continue
		case interfaces.BehaviourNotifyHandler:
			a.Command = handler.Tagged{Key: e.Key, Value: a.Command}
		case interfaces.BehaviourGenerateEvent:
			a.Event = Event{Key: e.Key, Event: a.Event}
		}
		c.next = (i + 1) % n
		return a
	}
	return interfaces.PendingAction()
}

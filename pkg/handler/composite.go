package handler

import (
	"fmt"

	"github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/log"
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var logger = log.Logger("handler/composite")

// Tagged 带有子 Handler / 子 Behaviour 标识的命令或事件
type Tagged struct {
	Key   string
	Value any
}

// Entry 组合中的一个子 Handler
type Entry struct {
	Key     string
	Handler interfaces.ConnectionHandler
}

// taggedInfo 出站子流的关联数据，记录发起的子 Handler
type taggedInfo struct {
	index int
	inner any
}

type child struct {
	key     string
	handler interfaces.ConnectionHandler
	closed  bool
}

// Composite 把多个 Handler 组合为一个
//
// 命令按 Tagged.Key 路由；入站子流按协议路由给声明它的子 Handler；
// 出站子流的结果按发起者路由；子 Handler 轮询从上次有进展者之后开始轮转。
// 任一子 Handler 请求关闭时整条连接关闭。
type Composite struct {
	children []*child
	byKey    map[string]int
	owners   map[types.ProtocolID]int
	protos   []types.ProtocolID

	// next 下一轮首先轮询的子 Handler
	next int
}

var _ interfaces.ConnectionHandler = (*Composite)(nil)

// NewComposite 创建组合 Handler
func NewComposite(entries ...Entry) (*Composite, error) {
	if len(entries) == 0 {
		return nil, ErrNoHandlers
	}
	c := &Composite{
		byKey:  make(map[string]int, len(entries)),
		owners: make(map[types.ProtocolID]int),
	}
	for i, e := range entries {
		if _, ok := c.byKey[e.Key]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, e.Key)
		}
		c.byKey[e.Key] = i
		c.children = append(c.children, &child{key: e.Key, handler: e.Handler})
		for _, p := range e.Handler.ListenProtocols() {
			if owner, ok := c.owners[p]; ok {
				return nil, fmt.Errorf("%w: %s (%s, %s)", ErrDuplicateProtocol, p, entries[owner].Key, e.Key)
			}
			c.owners[p] = i
			c.protos = append(c.protos, p)
		}
	}
	return c, nil
}

// ListenProtocols 所有子 Handler 协议的并集，按组合顺序
func (c *Composite) ListenProtocols() []types.ProtocolID {
	return c.protos
}

// OnCommand 按 Key 路由命令，未知 Key 被丢弃
func (c *Composite) OnCommand(cmd any) {
	t, ok := cmd.(Tagged)
	if !ok {
		logger.Debug("丢弃未标记的命令", "type", fmt.Sprintf("%T", cmd))
		return
	}
	i, ok := c.byKey[t.Key]
	if !ok {
		logger.Debug("丢弃未知子处理器的命令", "key", t.Key)
		return
	}
	c.children[i].handler.OnCommand(t.Value)
}

// OnConnectionEvent 路由子流事件
func (c *Composite) OnConnectionEvent(ev interfaces.ConnectionEvent) {
	switch e := ev.(type) {
	case interfaces.FullyNegotiatedInbound:
		i, ok := c.owners[e.Protocol]
		if !ok {
			_ = e.Stream.Reset()
			return
		}
		c.children[i].handler.OnConnectionEvent(e)

	case interfaces.FullyNegotiatedOutbound:
		ti, ok := e.Info.(taggedInfo)
		if !ok {
			_ = e.Stream.Reset()
			return
		}
		e.Info = ti.inner
		c.children[ti.index].handler.OnConnectionEvent(e)

	case interfaces.DialUpgradeError:
		ti, ok := e.Info.(taggedInfo)
		if !ok {
			return
		}
		e.Info = ti.inner
		c.children[ti.index].handler.OnConnectionEvent(e)

	case interfaces.ListenUpgradeError:
		for _, ch := range c.children {
			ch.handler.OnConnectionEvent(e)
		}
	}
}

// Poll 轮转轮询子 Handler，返回第一个非 Pending 的动作
func (c *Composite) Poll(cx *poll.Context) interfaces.HandlerAction {
	n := len(c.children)
	for k := 0; k < n; k++ {
		i := (c.next + k) % n
		ch := c.children[i]
		a := ch.handler.Poll(cx)

		switch a.Kind {
		case interfaces.ActionPending:
			continue
		case interfaces.ActionOpenStream:
			a.Info = taggedInfo{index: i, inner: a.Info}
		case interfaces.ActionNotify:
			a.Event = Tagged{Key: ch.key, Value: a.Event}
		case interfaces.ActionClose:
			logger.Debug("子处理器请求关闭连接", "key", ch.key, "error", a.Err)
		}
		c.next = (i + 1) % n
		return a
	}
	return Pending()
}

// KeepAlive 任一子 Handler 需要保持连接即保持
func (c *Composite) KeepAlive() bool {
	for _, ch := range c.children {
		if ch.handler.KeepAlive() {
			return true
		}
	}
	return false
}

// PollClose 排空所有子 Handler
//
// 子 Handler 结束时随附的最后一个事件同样向上交付。
func (c *Composite) PollClose(cx *poll.Context) (any, bool) {
	done := true
	for _, ch := range c.children {
		if ch.closed {
			continue
		}
		ev, finished := ch.handler.PollClose(cx)
		if finished {
			ch.closed = true
			if ev != nil {
				return Tagged{Key: ch.key, Value: ev}, false
			}
			continue
		}
		if ev != nil {
			return Tagged{Key: ch.key, Value: ev}, false
		}
		done = false
	}
	return nil, done
}

// Handler 返回指定 Key 的子 Handler
func (c *Composite) Handler(key string) (interfaces.ConnectionHandler, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return nil, false
	}
	return c.children[i].handler, true
}

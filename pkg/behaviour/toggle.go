package behaviour

import (
	"github.com/dep2p/go-p2pcore/pkg/handler"
	"github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// Toggle 在构建时启用或禁用一个 Behaviour
//
// 禁用时表现为 Dummy，组合结构保持不变，配置开关不影响 Key 的位置。
type Toggle struct {
	inner interfaces.NetworkBehaviour
}

var (
	_ interfaces.NetworkBehaviour = (*Toggle)(nil)
	_ interfaces.InboundFilter    = (*Toggle)(nil)
)

// NewToggle 创建 Toggle，inner 为 nil 或 enabled 为 false 时禁用
func NewToggle(inner interfaces.NetworkBehaviour, enabled bool) *Toggle {
	if !enabled {
		inner = nil
	}
	return &Toggle{inner: inner}
}

// Enabled 是否启用
func (t *Toggle) Enabled() bool {
	return t.inner != nil
}

// Inner 返回被包装的 Behaviour，禁用时为 nil
func (t *Toggle) Inner() interfaces.NetworkBehaviour {
	return t.inner
}

func (t *Toggle) NewHandler(info types.ConnectionInfo) (interfaces.ConnectionHandler, error) {
	if t.inner == nil {
		return handler.Dummy{}, nil
	}
	return t.inner.NewHandler(info)
}

func (t *Toggle) HandlePendingInbound(id types.ConnectionID, local, remote types.Multiaddr) error {
	if f, ok := t.inner.(interfaces.InboundFilter); ok {
		return f.HandlePendingInbound(id, local, remote)
	}
	return nil
}

func (t *Toggle) OnSwarmEvent(ev types.SwarmEvent) {
	if t.inner != nil {
		t.inner.OnSwarmEvent(ev)
	}
}

func (t *Toggle) OnHandlerEvent(peer types.PeerID, id types.ConnectionID, ev any) {
	if t.inner != nil {
		t.inner.OnHandlerEvent(peer, id, ev)
	}
}

func (t *Toggle) Poll(cx *poll.Context) interfaces.BehaviourAction {
	if t.inner == nil {
		return interfaces.PendingAction()
	}
	return t.inner.Poll(cx)
}

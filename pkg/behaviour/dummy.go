package behaviour

import (
	"github.com/dep2p/go-p2pcore/pkg/handler"
	"github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// Dummy 不做任何事的 Behaviour
type Dummy struct{}

var _ interfaces.NetworkBehaviour = Dummy{}

func (Dummy) NewHandler(types.ConnectionInfo) (interfaces.ConnectionHandler, error) {
	return handler.Dummy{}, nil
}

func (Dummy) OnSwarmEvent(types.SwarmEvent) {}

func (Dummy) OnHandlerEvent(types.PeerID, types.ConnectionID, any) {}

func (Dummy) Poll(*poll.Context) interfaces.BehaviourAction {
	return interfaces.PendingAction()
}

package handler

import (
	"github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// Dummy 不监听任何协议、不保持连接的 Handler
type Dummy struct{}

var _ interfaces.ConnectionHandler = Dummy{}

func (Dummy) ListenProtocols() []types.ProtocolID { return nil }

func (Dummy) OnCommand(any) {}

// OnConnectionEvent 丢弃意外得到的子流
func (Dummy) OnConnectionEvent(ev interfaces.ConnectionEvent) {
	switch e := ev.(type) {
	case interfaces.FullyNegotiatedInbound:
		_ = e.Stream.Reset()
	case interfaces.FullyNegotiatedOutbound:
		_ = e.Stream.Reset()
	}
}

func (Dummy) Poll(*poll.Context) interfaces.HandlerAction { return Pending() }

func (Dummy) KeepAlive() bool { return false }

func (Dummy) PollClose(*poll.Context) (any, bool) { return nil, true }

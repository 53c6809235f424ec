package p2pcore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-p2pcore/config"
	"github.com/dep2p/go-p2pcore/internal/core/transport/memory"
	"github.com/dep2p/go-p2pcore/internal/protocol/ping"
	"github.com/dep2p/go-p2pcore/internal/protocol/reqresp"
	"github.com/dep2p/go-p2pcore/pkg/behaviour"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// memoryConfig 只启用进程内传输的配置
func memoryConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Transport.EnableTCP = false
	cfg.Transport.EnableQUIC = false
	cfg.Transport.EnableMemory = true
	cfg.Transport.ListenAddrs = []string{"/memory/0"}
	return cfg
}

func startNode(t *testing.T, hub *memory.Hub, opts ...Option) *Node {
	t.Helper()
	opts = append([]Option{WithConfig(memoryConfig()), WithMemoryTransport(hub)}, opts...)
	n, err := Start(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })
	return n
}

func listenAddrs(t *testing.T, n *Node) []types.Multiaddr {
	t.Helper()
	var addrs []types.Multiaddr
	require.Eventually(t, func() bool {
		var err error
		addrs, err = n.ListenAddrs(context.Background())
		return err == nil && len(addrs) == 1
	}, 5*time.Second, 10*time.Millisecond)
	return addrs
}

// waitEvent 等待指定类型的行为事件，跳过其他事件
func waitEvent[T any](t *testing.T, n *Node, match func(T) bool) T {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-n.Events():
			require.True(t, ok, "事件通道已关闭")
			if be, ok := ev.(types.BehaviourEvent); ok {
				if e, ok := be.Event.(T); ok && (match == nil || match(e)) {
					return e
				}
			}
		case <-timeout:
			var zero T
			t.Fatalf("等待 %T 超时", zero)
			return zero
		}
	}
}

func TestNode_RequestResponse(t *testing.T) {
	hub := memory.NewHub()
	a, b := startNode(t, hub), startNode(t, hub)
	ctx := context.Background()

	require.NoError(t, a.AddAddress(ctx, b.ID(), listenAddrs(t, b)...))
	id, err := a.SendRequest(ctx, b.ID(), []byte("hello"))
	require.NoError(t, err)

	req := waitEvent[reqresp.RequestReceived](t, b, nil)
	assert.Equal(t, a.ID(), req.Peer)
	assert.Equal(t, []byte("hello"), req.Payload)
	require.NoError(t, b.SendResponse(ctx, req.Channel, []byte("world")))

	resp := waitEvent[reqresp.ResponseReceived](t, a, nil)
	assert.Equal(t, id, resp.RequestID)
	assert.Equal(t, []byte("world"), resp.Payload)

	peers, err := a.ConnectedPeers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.PeerID{b.ID()}, peers)
	t.Log("✅ 节点间请求/响应")
}

func TestNode_Ping(t *testing.T) {
	hub := memory.NewHub()
	a, b := startNode(t, hub), startNode(t, hub)
	ctx := context.Background()

	_, err := a.Connect(ctx, b.ID(), listenAddrs(t, b)...)
	require.NoError(t, err)

	ev := waitEvent(t, a, func(e ping.Event) bool { return e.Err == nil })
	assert.Equal(t, b.ID(), ev.Peer)

	_, ok, err := a.PingRTT(ctx, b.ID())
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := a.Disconnect(ctx, b.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	t.Log("✅ 节点间 ping")
}

func TestNode_Lifecycle(t *testing.T) {
	n, err := New(WithConfig(memoryConfig()), WithMemoryTransport(memory.NewHub()))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = n.ListenAddrs(ctx)
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, n.Start(ctx))
	assert.ErrorIs(t, n.Start(ctx), ErrAlreadyStarted)
	assert.False(t, n.ID().IsEmpty())

	require.NoError(t, n.Close())
	require.NoError(t, n.Close())
	assert.ErrorIs(t, n.Start(ctx), ErrNodeClosed)

	_, err = n.ConnectedPeers(ctx)
	assert.ErrorIs(t, err, ErrNodeClosed)

	// 事件通道随节点关闭
	for range n.Events() {
	}
	t.Log("✅ 节点生命周期")
}

func TestNode_CloseWithoutStart(t *testing.T) {
	n, err := New(WithConfig(memoryConfig()), WithMemoryTransport(memory.NewHub()))
	require.NoError(t, err)
	require.NoError(t, n.Close())

	_, ok := <-n.Events()
	assert.False(t, ok)
	t.Log("✅ 未启动的节点可以关闭")
}

func TestNode_ProtocolsDisabled(t *testing.T) {
	n := startNode(t, memory.NewHub(),
		WithPing(false),
		WithReqResp(false),
		WithBehaviour("custom", behaviour.Dummy{}),
	)
	ctx := context.Background()

	_, err := n.SendRequest(ctx, "peer", nil)
	assert.ErrorIs(t, err, ErrReqRespDisabled)
	_, _, err = n.PingRTT(ctx, "peer")
	assert.ErrorIs(t, err, ErrPingDisabled)
	t.Log("✅ 禁用的协议返回错误")
}

func TestNode_Metrics(t *testing.T) {
	n := startNode(t, memory.NewHub(), WithMetrics(""))
	listenAddrs(t, n)

	assert.Eventually(t, func() bool { return n.Metrics().Listeners == 1 }, 5*time.Second, 10*time.Millisecond)

	families, err := n.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
	t.Log("✅ 指标注册")
}

// 启动返回后监听器事件由事件循环处理，查询经由 Control 进行
func TestNode_StartWithListeners(t *testing.T) {
	cfg := memoryConfig()
	cfg.Transport.ListenAddrs = []string{"/memory/0", "/memory/0"}
	n := startNode(t, memory.NewHub(), WithConfig(cfg))

	require.Eventually(t, func() bool {
		addrs, err := n.ListenAddrs(context.Background())
		return err == nil && len(addrs) == 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return n.Metrics().Listeners == 2 }, 5*time.Second, 10*time.Millisecond)
	t.Log("✅ 监听地址经由事件循环上报")
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(WithConfig(nil))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = New(WithPreset("unknown"))
	assert.ErrorIs(t, err, config.ErrUnknownPreset)

	_, err = New(WithBehaviour("", nil))
	assert.ErrorIs(t, err, ErrInvalidOption)

	cfg := memoryConfig()
	cfg.Transport.EnableMemory = false
	_, err = New(WithConfig(cfg))
	assert.Error(t, err)
	t.Log("✅ 无效选项")
}

func TestVersionInfo(t *testing.T) {
	GitCommit = "0123456789abcdef"
	defer func() { GitCommit = "" }()
	assert.Equal(t, "p2pcore "+Version+" (01234567)", VersionInfo())
}

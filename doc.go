// Package p2pcore 提供基于轮询驱动 Swarm 的 P2P 网络核心
//
// p2pcore 把传输、安全握手、多路复用、连接池与可组合的协议行为
// 组装成一个节点。所有协议状态都在一个事件循环 goroutine 中推进，
// 外部通过 Control 句柄与之交互。
//
// # 快速开始
//
//	node, err := p2pcore.Start(ctx,
//	    p2pcore.WithPreset(config.PresetDesktop),
//	    p2pcore.WithListenAddrs("/ip4/0.0.0.0/tcp/4001"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer node.Close()
//
//	id, err := node.SendRequest(ctx, peer, []byte("hello"))
//
//	for ev := range node.Events() {
//	    switch e := ev.(type) {
//	    case types.BehaviourEvent:
//	        // ping.Event、reqresp.ResponseReceived ...
//	    case types.ConnectionEstablished:
//	        // ...
//	    }
//	}
//
// # 组成
//
//	┌──────────────────────────────────────────────────────────┐
//	│  Node        p2pcore.New() / Start()                     │
//	├──────────────────────────────────────────────────────────┤
//	│  Behaviour   ping · reqresp · 用户行为（按 Key 组合）     │
//	├──────────────────────────────────────────────────────────┤
//	│  Swarm       轮询循环 · 监听器 · Control                  │
//	│  Pool        连接生命周期 · 子流协商 · 限额               │
//	├──────────────────────────────────────────────────────────┤
//	│  Upgrader    noise/plaintext · yamux                     │
//	│  Transport   tcp · quic · websocket · memory             │
//	└──────────────────────────────────────────────────────────┘
//
// 每层都是独立的 fx 模块，配置统一来自 config.Config。
package p2pcore

package swarm

import "errors"

var (
	// ErrSwarmClosed Swarm 已关闭
	ErrSwarmClosed = errors.New("swarm: closed")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("swarm: invalid config")

	// ErrNoTransport 没有传输能处理该地址
	ErrNoTransport = errors.New("swarm: no transport for address")

	// ErrNilBehaviour 没有提供 Behaviour
	ErrNilBehaviour = errors.New("swarm: nil behaviour")

	// ErrNilUpgrader 没有提供升级器
	ErrNilUpgrader = errors.New("swarm: nil upgrader")

	// ErrListenerNotFound 监听器不存在
	ErrListenerNotFound = errors.New("swarm: listener not found")
)

package pool

import "errors"

var (
	// ErrInvalidConfig 配置非法（容量或上限不为正）
	ErrInvalidConfig = errors.New("pool: invalid config")

	// ErrNoTransport 没有传输，或没有传输能路由该地址
	ErrNoTransport = errors.New("pool: no transport")

	// ErrNilUpgrader 升级器为空
	ErrNilUpgrader = errors.New("pool: upgrader is nil")

	// ErrNilHandlerFactory Handler 工厂为空
	ErrNilHandlerFactory = errors.New("pool: handler factory is nil")

	// ErrNoAddresses 拨号没有候选地址
	ErrNoAddresses = errors.New("pool: no addresses")

	// ErrDialSelf 拨号到本地节点
	ErrDialSelf = errors.New("pool: dial to self")

	// ErrLimitExceeded 超出连接数限制
	ErrLimitExceeded = errors.New("pool: connection limit exceeded")

	// ErrCommandQueueFull 连接的命令队列已满，调用方应稍后重试
	ErrCommandQueueFull = errors.New("pool: command queue full")

	// ErrPoolClosed 连接池已关闭
	ErrPoolClosed = errors.New("pool: closed")
)

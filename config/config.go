// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 加载、环境变量覆盖
//   - 支持预设配置（desktop/server/minimal）
//
// 核心组件（pool、swarm）自身不带任何默认容量，所有部署相关的数值
// 都在这里给出。
//
// 使用示例：
//
//	cfg := config.NewServerConfig()
//	cfg.Pool.MaxConnections = 2048
//
//	cfg, err := config.LoadFile("node.json")
package config

// KnownPeer 已知节点配置
//
// 启动时直接拨号的节点。
type KnownPeer struct {
	// PeerID 目标节点 ID（可为空，为空时不校验身份）
	PeerID string `json:"peer_id"`

	// Addrs 目标节点地址，例如 "/ip4/1.2.3.4/tcp/4001"
	Addrs []string `json:"addrs"`
}

// Config p2pcore 的完整配置
type Config struct {
	// Identity 身份配置
	Identity IdentityConfig `json:"identity"`

	// Transport 传输层配置
	Transport TransportConfig `json:"transport"`

	// Security 安全传输配置
	Security SecurityConfig `json:"security"`

	// Muxer 多路复用配置
	Muxer MuxerConfig `json:"muxer"`

	// Pool 连接池配置
	Pool PoolConfig `json:"pool"`

	// Swarm 驱动循环配置
	Swarm SwarmConfig `json:"swarm"`

	// Ping 存活检测协议配置
	Ping PingConfig `json:"ping"`

	// ReqResp 请求/响应协议配置
	ReqResp ReqRespConfig `json:"reqresp"`

	// Metrics 指标导出配置
	Metrics MetricsConfig `json:"metrics"`

	// Log 日志配置
	Log LogConfig `json:"log"`

	// KnownPeers 启动时拨号的节点
	KnownPeers []KnownPeer `json:"known_peers,omitempty"`
}

// NewConfig 创建默认（desktop）配置
func NewConfig() *Config {
	return &Config{
		Identity:  DefaultIdentityConfig(),
		Transport: DefaultTransportConfig(),
		Security:  DefaultSecurityConfig(),
		Muxer:     DefaultMuxerConfig(),
		Pool:      DefaultPoolConfig(),
		Swarm:     DefaultSwarmConfig(),
		Ping:      DefaultPingConfig(),
		ReqResp:   DefaultReqRespConfig(),
		Metrics:   DefaultMetricsConfig(),
		Log:       DefaultLogConfig(),
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		c.Identity,
		c.Transport,
		c.Security,
		c.Muxer,
		c.Pool,
		c.Swarm,
		c.Ping,
		c.ReqResp,
		c.Metrics,
		c.Log,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	for i, kp := range c.KnownPeers {
		if len(kp.Addrs) == 0 {
			return &FieldError{Field: "known_peers", Reason: "peer " + itoa(i) + " has no addrs"}
		}
	}
	return nil
}

// Clone 返回深拷贝
func (c *Config) Clone() *Config {
	out := *c
	out.Transport.ListenAddrs = append([]string(nil), c.Transport.ListenAddrs...)
	out.ReqResp.Protocols = append([]string(nil), c.ReqResp.Protocols...)
	out.KnownPeers = make([]KnownPeer, len(c.KnownPeers))
	for i, kp := range c.KnownPeers {
		out.KnownPeers[i] = KnownPeer{PeerID: kp.PeerID, Addrs: append([]string(nil), kp.Addrs...)}
	}
	if c.KnownPeers == nil {
		out.KnownPeers = nil
	}
	return &out
}

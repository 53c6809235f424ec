// p2pnode 是 p2pcore 的命令行节点
//
// 启动一个带 ping 与 echo 请求/响应协议的节点，可选地拨号给定的节点，
// 打印 Swarm 事件直到收到退出信号。
//
// 用法：
//
//	p2pnode -listen /ip4/0.0.0.0/tcp/4001
//	p2pnode -config node.json <peer-id>@/ip4/1.2.3.4/tcp/4001
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dep2p/go-p2pcore"
	"github.com/dep2p/go-p2pcore/config"
	"github.com/dep2p/go-p2pcore/internal/protocol/ping"
	"github.com/dep2p/go-p2pcore/internal/protocol/reqresp"
	"github.com/dep2p/go-p2pcore/pkg/lib/log"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var logger = log.Logger("p2pcore/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 基础配置
// ═══════════════════════════════════════════════════════════════════════════

var (
	configFile   = flag.String("config", "", "配置文件路径 (JSON 格式)")
	preset       = flag.String("preset", "", "预设配置: desktop, server, minimal")
	listenAddrs  = flag.String("listen", "", "监听地址，逗号分隔（覆盖配置文件）")
	identityFile = flag.String("identity", "", "身份密钥文件路径（不存在时自动生成）")
)

// ═══════════════════════════════════════════════════════════════════════════
// 协议与观测
// ═══════════════════════════════════════════════════════════════════════════

var (
	echo        = flag.Bool("echo", true, "对收到的请求原样回复")
	metricsAddr = flag.String("metrics", "", "Prometheus 指标导出地址，例如 127.0.0.1:9100")
	logLevel    = flag.String("log-level", "", "日志级别: debug, info, warn, error")
	logFile     = flag.String("log-file", "", "日志文件路径（默认输出到 stderr）")
)

// ═══════════════════════════════════════════════════════════════════════════
// 其他
// ═══════════════════════════════════════════════════════════════════════════

var (
	showVersion = flag.Bool("version", false, "显示版本信息")
	showHelp    = flag.Bool("help", false, "显示帮助信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Usage = printHelp
	flag.Parse()

	if *showVersion {
		printVersion()
		return nil
	}
	if *showHelp {
		printHelp()
		return nil
	}

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	peers, err := parsePeerArgs(flag.Args())
	if err != nil {
		return err
	}

	opts := []p2pcore.Option{
		p2pcore.WithConfig(cfg),
		p2pcore.WithLogSetup(),
	}
	if *metricsAddr != "" {
		opts = append(opts, p2pcore.WithMetrics(*metricsAddr))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	node, err := p2pcore.Start(ctx, opts...)
	if err != nil {
		return fmt.Errorf("启动节点失败: %w", err)
	}
	defer func() {
		if err := node.Close(); err != nil {
			logger.Warn("关闭节点失败", "error", err)
		}
	}()

	printNodeInfo(ctx, node)

	for _, p := range peers {
		connID, err := node.Connect(ctx, p.peer, p.addrs...)
		if err != nil {
			logger.Warn("拨号失败", "peer", p.peer.ShortString(), "error", err)
			continue
		}
		logger.Info("开始拨号", "peer", p.peer.ShortString(), "addrs", joinAddrs(p.addrs), "connection", connID)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		handleEvents(ctx, node, cfg.ReqResp.Enable && *echo)
	}()

	waitForSignal(done)
	fmt.Println("\n正在关闭节点...")
	return nil
}

// buildConfig 构建节点配置
//
// 优先级（从高到低）：
//  1. 命令行参数
//  2. 环境变量（P2PCORE_* 前缀）
//  3. 配置文件
//  4. 预设默认值
func buildConfig() (*config.Config, error) {
	var cfg *config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.LoadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
	} else {
		cfg = config.NewConfig()
	}

	if err := config.ApplyEnv(cfg); err != nil {
		return nil, fmt.Errorf("应用环境变量失败: %w", err)
	}

	if *preset != "" {
		if err := config.ApplyPreset(cfg, *preset); err != nil {
			return nil, err
		}
	}
	if *listenAddrs != "" {
		cfg.Transport.ListenAddrs = config.SplitAndTrim(*listenAddrs, ",")
	}
	if *identityFile != "" {
		cfg.Identity.KeyFile = *identityFile
		cfg.Identity.AutoGenerate = true
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// handleEvents 打印事件并按需回复请求
func handleEvents(ctx context.Context, node *p2pcore.Node, echoRequests bool) {
	for ev := range node.Events() {
		switch e := ev.(type) {
		case types.NewListenAddr:
			fmt.Printf("监听地址: %s/p2p/%s\n", types.AddrString(e.Addr), node.ID())
		case types.ConnectionEstablished:
			fmt.Printf("连接建立: %s (%s)\n", e.Info.Peer.ShortString(), e.Info.ID)
		case types.ConnectionClosed:
			fmt.Printf("连接关闭: %s (%s, %s)\n", e.Info.Peer.ShortString(), e.Info.ID, e.Reason)
		case types.DialFailure:
			fmt.Printf("拨号失败: %s: %v\n", e.Peer.ShortString(), e.Err)
		case types.BehaviourEvent:
			handleBehaviourEvent(ctx, node, e.Event, echoRequests)
		default:
			logger.Debug("事件", "type", fmt.Sprintf("%T", ev))
		}
	}
}

func handleBehaviourEvent(ctx context.Context, node *p2pcore.Node, ev any, echoRequests bool) {
	switch e := ev.(type) {
	case ping.Event:
		if e.Err != nil {
			fmt.Printf("ping %s 失败: %v\n", e.Peer.ShortString(), e.Err)
			return
		}
		fmt.Printf("ping %s: %s\n", e.Peer.ShortString(), e.RTT.Round(time.Microsecond))
	case reqresp.RequestReceived:
		fmt.Printf("收到请求 #%d 来自 %s: %q\n", e.RequestID, e.Peer.ShortString(), e.Payload)
		if !echoRequests {
			return
		}
		if err := node.SendResponse(ctx, e.Channel, e.Payload); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("回复请求失败", "peer", e.Peer.ShortString(), "error", err)
		}
	case reqresp.ResponseReceived:
		fmt.Printf("收到响应 #%d 来自 %s: %q\n", e.RequestID, e.Peer.ShortString(), e.Payload)
	case reqresp.OutboundFailure:
		fmt.Printf("请求 #%d 到 %s 失败: %v\n", e.RequestID, e.Peer.ShortString(), e.Err)
	case reqresp.InboundFailure:
		fmt.Printf("处理来自 %s 的请求失败: %v\n", e.Peer.ShortString(), e.Err)
	}
}

// printNodeInfo 打印节点信息
func printNodeInfo(ctx context.Context, node *p2pcore.Node) {
	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Printf("  p2pnode %s\n", p2pcore.Version)
	fmt.Printf("  节点 ID: %s\n", node.ID())

	lctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if addrs, err := node.ListenAddrs(lctx); err == nil {
		for _, a := range addrs {
			fmt.Printf("  监听: %s/p2p/%s\n", types.AddrString(a), node.ID())
		}
	}
	fmt.Println("═══════════════════════════════════════════════════════")
}

func printVersion() {
	fmt.Println(p2pcore.VersionInfo())
}

func printHelp() {
	fmt.Fprintf(os.Stderr, "用法: p2pnode [选项] [peer-id@multiaddr | multiaddr/p2p/peer-id]...\n\n")
	fmt.Fprintf(os.Stderr, "选项:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\n环境变量:\n")
	for _, name := range []string{
		config.EnvPreset, config.EnvListenAddrs, config.EnvKeyFile,
		config.EnvMaxConnections, config.EnvLogLevel, config.EnvLogFile, config.EnvMetricsAddr,
	} {
		fmt.Fprintf(os.Stderr, "  %s%s\n", config.EnvPrefix, name)
	}
}

// waitForSignal 等待退出信号或事件流结束
func waitForSignal(done <-chan struct{}) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case <-signals:
	case <-done:
	}
}

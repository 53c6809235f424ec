package quic

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/log"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var logger = log.Logger("core/transport/quic")

var _ pkgif.Transport = (*Transport)(nil)

// Config QUIC 传输配置
type Config struct {
	// IdleTimeout 连接空闲超时，心跳间隔为其一半
	IdleTimeout time.Duration

	// MaxIncomingStreams 对端可同时打开的流上限
	MaxIncomingStreams int64
}

// Transport QUIC 传输
type Transport struct {
	mu sync.Mutex

	localPeer     types.PeerID
	serverTLSConf *tls.Config
	clientTLSConf *tls.Config
	config        *quic.Config

	// 拨号使用独立 socket，首次拨号时创建
	dialTransport *quic.Transport
	dialConn      *net.UDPConn

	listeners map[*Listener]struct{}
	closed    bool
}

// New 创建 QUIC 传输
func New(id pkgif.Identity, cfg Config) (*Transport, error) {
	if id == nil {
		return nil, fmt.Errorf("quic: identity is nil")
	}
	serverTLS, clientTLS, err := newTLSConfigs(id)
	if err != nil {
		return nil, err
	}
	if cfg.MaxIncomingStreams <= 0 {
		cfg.MaxIncomingStreams = 1024
	}

	qc := &quic.Config{
		MaxIncomingStreams:    cfg.MaxIncomingStreams,
		MaxIncomingUniStreams: -1,
	}
	if cfg.IdleTimeout > 0 {
		qc.MaxIdleTimeout = cfg.IdleTimeout
		qc.KeepAlivePeriod = cfg.IdleTimeout / 2
	}

	return &Transport{
		localPeer:     id.PeerID(),
		serverTLSConf: serverTLS,
		clientTLSConf: clientTLS,
		config:        qc,
		listeners:     make(map[*Listener]struct{}),
	}, nil
}

// Dial 拨号
func (t *Transport) Dial(ctx context.Context, raddr types.Multiaddr) (pkgif.RawConn, error) {
	udpAddr, err := toUDPAddr(raddr)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrTransportClosed
	}
	if t.dialTransport == nil {
		network := "udp4"
		if udpAddr.IP.To4() == nil {
			network = "udp6"
		}
		uc, err := net.ListenUDP(network, nil)
		if err != nil {
			t.mu.Unlock()
			return nil, fmt.Errorf("listen udp for dial: %w", err)
		}
		t.dialConn = uc
		t.dialTransport = &quic.Transport{Conn: uc}
	}
	qt := t.dialTransport
	t.mu.Unlock()

	qc, err := qt.Dial(ctx, udpAddr, t.clientTLSConf, t.config)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	c, err := newConn(qc, t.localPeer)
	if err != nil {
		return nil, err
	}
	// 拨号地址比 socket 报告的地址更准确
	c.raddr = raddr
	return c, nil
}

// CanDial 检查是否为 QUIC 地址
func (t *Transport) CanDial(addr types.Multiaddr) bool {
	return isQUICAddr(addr)
}

// Listen 监听地址
func (t *Transport) Listen(laddr types.Multiaddr) (pkgif.Listener, error) {
	udpAddr, err := toUDPAddr(laddr)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransportClosed
	}

	uc, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}
	qt := &quic.Transport{Conn: uc}
	ql, err := qt.Listen(t.serverTLSConf, t.config)
	if err != nil {
		_ = qt.Close()
		_ = uc.Close()
		return nil, fmt.Errorf("listen: %w", err)
	}

	addr, err := toMultiaddr(uc.LocalAddr())
	if err != nil {
		_ = ql.Close()
		_ = qt.Close()
		_ = uc.Close()
		return nil, err
	}

	l := &Listener{
		ql:        ql,
		qt:        qt,
		uc:        uc,
		addr:      addr,
		localPeer: t.localPeer,
		transport: t,
	}
	t.listeners[l] = struct{}{}
	logger.Debug("QUIC 开始监听", "addr", addr)
	return l, nil
}

func (t *Transport) removeListener(l *Listener) {
	t.mu.Lock()
	delete(t.listeners, l)
	t.mu.Unlock()
}

// Protocols 返回支持的协议
func (t *Transport) Protocols() []string {
	return []string{"quic-v1"}
}

// Close 关闭传输、所有监听器和拨号 socket
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	listeners := make([]*Listener, 0, len(t.listeners))
	for l := range t.listeners {
		listeners = append(listeners, l)
	}
	dial, dialConn := t.dialTransport, t.dialConn
	t.dialTransport, t.dialConn = nil, nil
	t.mu.Unlock()

	var err error
	for _, l := range listeners {
		err = multierr.Append(err, l.Close())
	}
	if dial != nil {
		err = multierr.Append(err, dial.Close())
		err = multierr.Append(err, dialConn.Close())
	}
	return err
}

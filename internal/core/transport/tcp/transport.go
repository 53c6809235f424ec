package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/log"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var logger = log.Logger("core/transport/tcp")

// keepAlivePeriod TCP keepalive 间隔
const keepAlivePeriod = 15 * time.Second

var _ pkgif.Transport = (*Transport)(nil)

// Transport TCP 传输
type Transport struct {
	dialTimeout time.Duration

	mu        sync.Mutex
	listeners map[*Listener]struct{}
	closed    bool
}

// New 创建 TCP 传输
//
// dialTimeout 为 0 时仅受调用方 ctx 约束。
func New(dialTimeout time.Duration) *Transport {
	return &Transport{
		dialTimeout: dialTimeout,
		listeners:   make(map[*Listener]struct{}),
	}
}

// CanDial 检查地址形如 /{ip4,ip6,dns,dns4,dns6}/.../tcp/...
func (t *Transport) CanDial(addr types.Multiaddr) bool {
	if addr == nil {
		return false
	}
	protos := addr.Protocols()
	if len(protos) != 2 || protos[1].Code != ma.P_TCP {
		return false
	}
	switch protos[0].Code {
	case ma.P_IP4, ma.P_IP6, ma.P_DNS, ma.P_DNS4, ma.P_DNS6:
		return true
	}
	return false
}

// Dial 拨号
func (t *Transport) Dial(ctx context.Context, raddr types.Multiaddr) (pkgif.RawConn, error) {
	if !t.CanDial(raddr) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddr, types.AddrString(raddr))
	}
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, ErrTransportClosed
	}

	network, host, err := manet.DialArgs(raddr)
	if err != nil {
		return nil, err
	}

	d := net.Dialer{Timeout: t.dialTimeout, KeepAlive: keepAlivePeriod}
	c, err := d.DialContext(ctx, network, host)
	if err != nil {
		return nil, fmt.Errorf("连接失败: %w", err)
	}
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	conn, err := newConn(c, raddr)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return conn, nil
}

// Listen 监听地址
func (t *Transport) Listen(laddr types.Multiaddr) (pkgif.Listener, error) {
	if !t.CanDial(laddr) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAddr, types.AddrString(laddr))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransportClosed
	}

	network, host, err := manet.DialArgs(laddr)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen(network, host)
	if err != nil {
		return nil, fmt.Errorf("监听失败: %w", err)
	}
	addr, err := manet.FromNetAddr(ln.Addr())
	if err != nil {
		_ = ln.Close()
		return nil, err
	}

	l := &Listener{ln: ln, addr: addr, transport: t}
	t.listeners[l] = struct{}{}
	logger.Debug("TCP 开始监听", "addr", addr)
	return l, nil
}

func (t *Transport) removeListener(l *Listener) {
	t.mu.Lock()
	delete(t.listeners, l)
	t.mu.Unlock()
}

// Protocols 返回支持的协议
func (t *Transport) Protocols() []string {
	return []string{"tcp"}
}

// Close 关闭传输及所有监听器
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
	t.mu.Unlock()

	var err error
	for _, l := range listeners {
		err = multierr.Append(err, l.Close())
	}
	return err
}

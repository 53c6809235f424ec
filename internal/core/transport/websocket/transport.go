package websocket

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/log"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var logger = log.Logger("core/transport/websocket")

var _ pkgif.Transport = (*Transport)(nil)

// Transport WebSocket 传输
type Transport struct {
	dialer ws.Dialer

	mu        sync.Mutex
	listeners map[*Listener]struct{}
	closed    bool
}

// New 创建 WebSocket 传输
func New(dialTimeout time.Duration) *Transport {
	return &Transport{
		dialer: ws.Dialer{
			HandshakeTimeout: dialTimeout,
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
		},
		listeners: make(map[*Listener]struct{}),
	}
}

// CanDial 检查是否为 WebSocket 地址
func (t *Transport) CanDial(addr types.Multiaddr) bool {
	return isWSAddr(addr)
}

// Dial 拨号
func (t *Transport) Dial(ctx context.Context, raddr types.Multiaddr) (pkgif.RawConn, error) {
	_, host, err := dialArgs(raddr)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, ErrTransportClosed
	}

	c, resp, err := t.dialer.DialContext(ctx, "ws://"+host+"/", nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("连接失败: %w", err)
	}

	laddr, err := toMultiaddr(c.LocalAddr())
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return newConn(c, laddr, raddr), nil
}

// Listen 监听地址
func (t *Transport) Listen(laddr types.Multiaddr) (pkgif.Listener, error) {
	network, host, err := dialArgs(laddr)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransportClosed
	}

	ln, err := net.Listen(network, host)
	if err != nil {
		return nil, fmt.Errorf("监听失败: %w", err)
	}
	addr, err := toMultiaddr(ln.Addr())
	if err != nil {
		_ = ln.Close()
		return nil, err
	}

	l := newListener(ln, addr, t)
	t.listeners[l] = struct{}{}
	logger.Debug("WebSocket 开始监听", "addr", addr)
	return l, nil
}

func (t *Transport) removeListener(l *Listener) {
	t.mu.Lock()
	delete(t.listeners, l)
	t.mu.Unlock()
}

// Protocols 返回支持的协议
func (t *Transport) Protocols() []string {
	return []string{"ws"}
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

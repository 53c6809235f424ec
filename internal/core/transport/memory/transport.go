package memory

import (
	"context"
	"net"
	"sync"

	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var _ pkgif.Transport = (*Transport)(nil)

// Transport 进程内传输
type Transport struct {
	hub *Hub

	mu        sync.Mutex
	listeners map[*Listener]struct{}
	closed    bool
}

// New 创建进程内传输，hub 为 nil 时使用 DefaultHub
func New(hub *Hub) *Transport {
	if hub == nil {
		hub = DefaultHub
	}
	return &Transport{hub: hub, listeners: make(map[*Listener]struct{})}
}

// CanDial 检查是否为 /memory 地址
func (t *Transport) CanDial(addr types.Multiaddr) bool {
	_, err := parsePort(addr)
	return err == nil
}

// Dial 拨号
func (t *Transport) Dial(ctx context.Context, raddr types.Multiaddr) (pkgif.RawConn, error) {
	port, err := parsePort(raddr)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, ErrTransportClosed
	}

	from := t.hub.ephemeralPort()
	c, err := t.hub.connect(port, from)
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: c, laddr: NewAddr(from), raddr: raddr}, nil
}

// Listen 监听 /memory/<port>
func (t *Transport) Listen(laddr types.Multiaddr) (pkgif.Listener, error) {
	port, err := parsePort(laddr)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransportClosed
	}

	l := &Listener{
		transport: t,
		incoming:  make(chan *Conn, acceptBacklog),
		closed:    make(chan struct{}),
	}
	port, err = t.hub.register(port, l)
	if err != nil {
		return nil, err
	}
	l.port = port
	l.addr = NewAddr(port)
	t.listeners[l] = struct{}{}
	return l, nil
}

func (t *Transport) removeListener(l *Listener) {
	t.mu.Lock()
	delete(t.listeners, l)
	t.mu.Unlock()
}

// Protocols 返回支持的协议
func (t *Transport) Protocols() []string {
	return []string{"memory"}
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

// ============================================================================
//                              Listener
// ============================================================================

var _ pkgif.Listener = (*Listener)(nil)

// Listener 进程内监听器
type Listener struct {
	transport *Transport
	port      uint64
	addr      types.Multiaddr

	incoming  chan *Conn
	closed    chan struct{}
	closeOnce sync.Once
}

// Accept 接受新连接
func (l *Listener) Accept() (pkgif.RawConn, error) {
	select {
	case c := <-l.incoming:
		return c, nil
	case <-l.closed:
		return nil, ErrListenerClosed
	}
}

// Multiaddr 监听地址
func (l *Listener) Multiaddr() types.Multiaddr {
	return l.addr
}

// Close 关闭监听器
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.transport.hub.unregister(l.port)
		l.transport.removeListener(l)
		close(l.closed)
		for {
			select {
			case c := <-l.incoming:
				_ = c.Close()
			default:
				return
			}
		}
	})
	return nil
}

// ============================================================================
//                              Conn
// ============================================================================

var _ pkgif.RawConn = (*Conn)(nil)

// Conn 进程内连接
type Conn struct {
	net.Conn
	laddr types.Multiaddr
	raddr types.Multiaddr
}

// LocalMultiaddr 本地地址
func (c *Conn) LocalMultiaddr() types.Multiaddr { return c.laddr }

// RemoteMultiaddr 远端地址
func (c *Conn) RemoteMultiaddr() types.Multiaddr { return c.raddr }

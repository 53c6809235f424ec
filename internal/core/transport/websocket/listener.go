package websocket

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// acceptBacklog 已完成 HTTP 升级但尚未被 Accept 的连接上限
const acceptBacklog = 16

var _ pkgif.Listener = (*Listener)(nil)

// Listener WebSocket 监听器
//
// 内部运行一个 HTTP 服务器，升级成功的连接进入 backlog 等待 Accept。
type Listener struct {
	ln        net.Listener
	server    *http.Server
	upgrader  ws.Upgrader
	addr      types.Multiaddr
	transport *Transport

	incoming  chan *Conn
	closed    chan struct{}
	closeOnce sync.Once
}

func newListener(ln net.Listener, addr types.Multiaddr, t *Transport) *Listener {
	l := &Listener{
		ln:        ln,
		addr:      addr,
		transport: t,
		upgrader: ws.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// 节点间连接，不做浏览器来源校验
			CheckOrigin: func(*http.Request) bool { return true },
		},
		incoming: make(chan *Conn, acceptBacklog),
		closed:   make(chan struct{}),
	}
	l.server = &http.Server{
		Handler:           l,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = l.server.Serve(ln) }()
	return l
}

// ServeHTTP 完成 WebSocket 升级
func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	laddr, err1 := toMultiaddr(c.LocalAddr())
	raddr, err2 := toMultiaddr(c.RemoteAddr())
	if err1 != nil || err2 != nil {
		_ = c.Close()
		return
	}

	conn := newConn(c, laddr, raddr)
	select {
	case l.incoming <- conn:
	case <-l.closed:
		_ = conn.Close()
	default:
		// backlog 已满
		logger.Debug("WebSocket backlog 已满，丢弃连接", "remote", raddr)
		_ = conn.Close()
	}
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

// Multiaddr 实际监听地址
func (l *Listener) Multiaddr() types.Multiaddr {
	return l.addr
}

// Close 关闭监听器
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		l.transport.removeListener(l)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		err = l.server.Shutdown(ctx)
		// 排空未被接受的连接
		for {
			select {
			case c := <-l.incoming:
				_ = c.Close()
			default:
				return
			}
		}
	})
	return err
}

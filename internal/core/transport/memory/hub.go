package memory

import (
	"net"
	"sync"
)

// acceptBacklog 每个监听器未被 Accept 的连接上限
const acceptBacklog = 16

// Hub 进程内的地址空间
//
// 同一个 Hub 上的传输可以互相拨号。
type Hub struct {
	mu        sync.Mutex
	nextPort  uint64
	listeners map[uint64]*Listener
}

// DefaultHub 进程级默认 Hub
var DefaultHub = NewHub()

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{listeners: make(map[uint64]*Listener)}
}

func (h *Hub) register(port uint64, l *Listener) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if port == 0 {
		for {
			h.nextPort++
			if _, ok := h.listeners[h.nextPort]; !ok {
				port = h.nextPort
				break
			}
		}
	} else if _, ok := h.listeners[port]; ok {
		return 0, ErrAddrInUse
	}
	h.listeners[port] = l
	return port, nil
}

func (h *Hub) unregister(port uint64) {
	h.mu.Lock()
	delete(h.listeners, port)
	h.mu.Unlock()
}

// connect 创建一对管道并投递到监听端
func (h *Hub) connect(port, fromPort uint64) (net.Conn, error) {
	h.mu.Lock()
	l, ok := h.listeners[port]
	h.mu.Unlock()
	if !ok {
		return nil, ErrConnectionRefused
	}

	local, remote := net.Pipe()
	in := &Conn{Conn: remote, laddr: NewAddr(port), raddr: NewAddr(fromPort)}
	select {
	case l.incoming <- in:
	case <-l.closed:
		_ = local.Close()
		_ = remote.Close()
		return nil, ErrConnectionRefused
	default:
		_ = local.Close()
		_ = remote.Close()
		return nil, ErrConnectionRefused
	}
	return local, nil
}

// ephemeralPort 为拨号方分配一个不监听的端口号
func (h *Hub) ephemeralPort() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		h.nextPort++
		if _, ok := h.listeners[h.nextPort]; !ok {
			return h.nextPort
		}
	}
}

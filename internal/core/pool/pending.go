package pool

import (
	"context"
	"errors"

	"github.com/dep2p/go-p2pcore/internal/core/upgrader"
	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// InboundConn 监听器接受的原始连接
type InboundConn struct {
	// ID 由 ReserveID 预留的连接 ID，零值时由 Accept 分配
	ID         types.ConnectionID
	ListenerID types.ListenerID
	Conn       pkgif.RawConn
}

// pendingConn 升级中的连接
type pendingConn struct {
	id  types.ConnectionID
	dir types.Direction

	// peer 出站时期望的远端节点，可为空
	peer     types.PeerID
	listener types.ListenerID
	local    types.Multiaddr
	remote   types.Multiaddr

	cancel context.CancelFunc
	task   *poll.Task[pkgif.UpgradedConn]

	// cancelled 已被 Close 取消；reported 取消事件已产生。
	// 取消后条目保留到任务结束，期间仍计入 pending 上限。
	cancelled bool
	reported  bool
}

// failure 构造失败事件
func (pc *pendingConn) failure(err error) types.SwarmEvent {
	if pc.dir == types.DirOutbound {
		var de *types.DialError
		if !errors.As(err, &de) {
			de = types.NewDialError(upgrader.DialErrorKind(err), pc.remote, err)
		}
		return types.DialFailure{ID: pc.id, Peer: pc.peer, Err: de}
	}

	var le *types.ListenError
	if !errors.As(err, &le) {
		le = types.NewListenError(upgrader.ListenErrorKind(err), err)
	}
	return pc.incomingError(le)
}

// failureKind 以指定分类构造失败事件
func (pc *pendingConn) failureKind(dk types.DialErrorKind, lk types.ListenErrorKind, err error) types.SwarmEvent {
	if pc.dir == types.DirOutbound {
		return types.DialFailure{ID: pc.id, Peer: pc.peer, Err: types.NewDialError(dk, pc.remote, err)}
	}
	return pc.incomingError(types.NewListenError(lk, err))
}

func (pc *pendingConn) incomingError(le *types.ListenError) types.SwarmEvent {
	return types.IncomingConnectionError{
		ID:         pc.id,
		ListenerID: pc.listener,
		LocalAddr:  pc.local,
		RemoteAddr: pc.remote,
		Err:        le,
	}
}

// ============================================================================
//                              边缘 goroutine
// ============================================================================

// dialAddrs 依次尝试候选地址，返回第一个升级成功的连接
func (p *Pool) dialAddrs(ctx context.Context, addrs []types.Multiaddr, peer types.PeerID) (pkgif.UpgradedConn, error) {
	var lastErr error
	for _, addr := range addrs {
		t := p.transportFor(addr)
		if t == nil {
			lastErr = types.NewDialError(types.DialErrorAddressUnsupported, addr, ErrNoTransport)
			continue
		}

		raw, err := t.Dial(ctx, addr)
		if err != nil {
			if ctx.Err() != nil {
				return nil, types.NewDialError(types.DialErrorCancelled, addr, ctx.Err())
			}
			logger.Debug("拨号失败", "addr", types.AddrString(addr), "error", err)
			lastErr = types.NewDialError(types.DialErrorAddressUnreachable, addr, err)
			continue
		}

		conn, err := p.upgrader.Upgrade(ctx, raw, types.DirOutbound, peer)
		if err != nil {
			logger.Debug("出站升级失败", "addr", types.AddrString(addr), "error", err)
			lastErr = types.NewDialError(upgrader.DialErrorKind(err), addr, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}
		return closeIfCancelled(ctx, conn)
	}
	return nil, lastErr
}

// upgradeInbound 升级入站连接
func (p *Pool) upgradeInbound(ctx context.Context, raw pkgif.RawConn) (pkgif.UpgradedConn, error) {
	conn, err := p.upgrader.Upgrade(ctx, raw, types.DirInbound, "")
	if err != nil {
		return nil, err
	}
	return closeIfCancelled(ctx, conn)
}

// closeIfCancelled 升级完成时若已被取消，由 goroutine 自己关闭连接
func closeIfCancelled(ctx context.Context, conn pkgif.UpgradedConn) (pkgif.UpgradedConn, error) {
	if err := ctx.Err(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// ============================================================================
//                              轮询
// ============================================================================

// pollPending 轮询 pending 连接
//
// local 为 true 时处理取消与出站完成（第 1 步），否则处理入站完成（第 3 步）。
func (p *Pool) pollPending(cx *poll.Context, local bool) bool {
	progress := false
	for _, id := range append([]types.ConnectionID(nil), p.pendingIDs...) {
		pc := p.pending[id]
		if pc == nil {
			continue
		}

		if pc.cancelled {
			if !local {
				continue
			}
			if !pc.reported {
				if p.events.Full() {
					continue
				}
				p.events.TryPush(pc.failureKind(types.DialErrorCancelled, types.ListenErrorCancelled, context.Canceled))
				pc.reported = true
				progress = true
			}
			if conn, ready, _ := pc.task.Poll(cx); ready {
				if conn != nil {
					_ = conn.Close()
				}
				p.removePending(pc)
				progress = true
			}
			continue
		}

		if local != (pc.dir == types.DirOutbound) {
			continue
		}
		// 完成一定产生一个事件
		if p.events.Full() {
			continue
		}
		conn, ready, err := pc.task.Poll(cx)
		if !ready {
			continue
		}
		progress = true
		p.removePending(pc)
		if err != nil {
			p.events.TryPush(pc.failure(err))
			continue
		}
		p.establish(cx, pc, conn)
	}
	return progress
}

// establish 把升级完成的连接加入连接池
func (p *Pool) establish(cx *poll.Context, pc *pendingConn, conn pkgif.UpgradedConn) {
	peer := conn.RemotePeer()
	pc.remote = conn.RemoteMultiaddr()

	if len(p.byPeer[peer]) >= p.cfg.MaxConnectionsPerPeer {
		_ = conn.Close()
		logger.Debug("超出单节点连接上限", "peer", peer.ShortString(), "conn", pc.id)
		p.events.TryPush(pc.failureKind(types.DialErrorLimitExceeded, types.ListenErrorLimitExceeded, ErrLimitExceeded))
		return
	}

	info := types.ConnectionInfo{
		ID:   pc.id,
		Peer: peer,
		Endpoint: types.Endpoint{
			Direction:  pc.dir,
			LocalAddr:  conn.LocalMultiaddr(),
			RemoteAddr: conn.RemoteMultiaddr(),
		},
		EstablishedAt: cx.Now(),
		Security:      conn.Security(),
		Muxer:         conn.Muxer(),
	}

	h, err := p.newHandler(info)
	if err != nil {
		_ = conn.Close()
		logger.Debug("连接被拒绝", "peer", peer.ShortString(), "conn", pc.id, "error", err)
		p.events.TryPush(pc.failureKind(types.DialErrorDenied, types.ListenErrorDenied, err))
		return
	}

	existing := len(p.byPeer[peer])
	c := newConnection(p, info, conn, h)
	p.conns[info.ID] = c
	p.byPeer[peer] = append(p.byPeer[peer], info.ID)

	logger.Debug("连接已建立", "conn", info.ID, "peer", peer.ShortString(), "direction", pc.dir)
	p.events.TryPush(types.ConnectionEstablished{Info: info, Existing: existing})
	p.markReady(info.ID)
}

package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-p2pcore/pkg/lib/log"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var logger = log.Logger("core/metrics")

// SnapshotLogger 周期性输出 Swarm 状态快照
type SnapshotLogger struct {
	mu sync.Mutex

	source Source
	clock  clock.Clock

	// 上次快照，用于计算速率
	last *types.MetricsSnapshot

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSnapshotLogger 创建快照日志器
func NewSnapshotLogger(source Source, clk clock.Clock) *SnapshotLogger {
	if clk == nil {
		clk = clock.New()
	}
	return &SnapshotLogger{source: source, clock: clk}
}

// Start 启动周期性快照
func (l *SnapshotLogger) Start(interval time.Duration) {
	if interval <= 0 {
		return
	}

	l.mu.Lock()
	if l.cancel != nil {
		l.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.mu.Unlock()

	ticker := l.clock.Ticker(interval)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Log()
			}
		}
	}()

	logger.Info("状态快照已启动", "interval", interval)
}

// Stop 停止快照
func (l *SnapshotLogger) Stop() {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.mu.Unlock()
	l.wg.Wait()
}

// Rates 两次快照之间的速率
type Rates struct {
	Elapsed           time.Duration
	CyclesPerSec      float64
	DialFailuresDelta uint64
	RejectedDelta     uint64
}

// Log 读取一次快照并写入日志，返回快照与相对上次的速率
func (l *SnapshotLogger) Log() (types.MetricsSnapshot, Rates) {
	snap := l.source.Metrics()

	l.mu.Lock()
	last := l.last
	l.last = &snap
	l.mu.Unlock()

	var r Rates
	if last != nil {
		r.Elapsed = snap.Timestamp.Sub(last.Timestamp)
		if secs := r.Elapsed.Seconds(); secs > 0 {
			r.CyclesPerSec = float64(snap.Cycles-last.Cycles) / secs
		}
		r.DialFailuresDelta = snap.DialFailures - last.DialFailures
		r.RejectedDelta = snap.IncomingRejected - last.IncomingRejected
	}

	logger.Info("Swarm 状态快照",
		"instance", snap.InstanceID,
		"established", snap.Established,
		"peers", snap.Peers,
		"pendingIn", snap.PendingIncoming,
		"pendingOut", snap.PendingOutgoing,
		"active", snap.ActiveConnections,
		"idle", snap.IdleConnections,
		"closing", snap.ClosingConnections,
		"listeners", snap.Listeners,
		"eventQueue", snap.SwarmEventQueue,
		"cyclesPerSec", r.CyclesPerSec,
		"dialFailures", r.DialFailuresDelta,
		"rejected", r.RejectedDelta,
	)
	return snap, r
}

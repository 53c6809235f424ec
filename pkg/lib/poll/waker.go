package poll

import "sync"

// ============================================================================
//                              Waker
// ============================================================================

// Waker 唤醒回调
//
// Wake 可以从任意 goroutine 并发调用，必须是非阻塞的。
type Waker interface {
	Wake()
}

// WakerFunc 函数形式的 Waker
type WakerFunc func()

// Wake 调用函数
func (f WakerFunc) Wake() {
	f()
}

// NoopWaker 什么也不做的 Waker
var NoopWaker Waker = WakerFunc(func() {})

// ============================================================================
//                              Signal
// ============================================================================

// Signal 容量为 1 的唤醒信号
//
// 多次 Wake 会合并为一次；顶层驱动循环在 C() 上等待。
type Signal struct {
	ch chan struct{}
}

// NewSignal 创建信号
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Wake 发出信号，不阻塞
func (s *Signal) Wake() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// C 返回信号通道
func (s *Signal) C() <-chan struct{} {
	return s.ch
}

// ============================================================================
//                              AtomicWaker
// ============================================================================

// AtomicWaker 保存最近一次登记的 Waker
//
// 轮询方在每次返回 pending 前调用 Register，边缘 goroutine 在投递结果后
// 调用 Wake。Register 之前发生的 Wake 不会丢失：会在 Register 时立即补发。
type AtomicWaker struct {
	mu      sync.Mutex
	waker   Waker
	pending bool
}

// Register 登记 Waker
func (a *AtomicWaker) Register(w Waker) {
	a.mu.Lock()
	a.waker = w
	fire := a.pending
	a.pending = false
	a.mu.Unlock()

	if fire && w != nil {
		w.Wake()
	}
}

// Wake 唤醒已登记的 Waker
func (a *AtomicWaker) Wake() {
	a.mu.Lock()
	w := a.waker
	if w == nil {
		a.pending = true
	}
	a.mu.Unlock()

	if w != nil {
		w.Wake()
	}
}

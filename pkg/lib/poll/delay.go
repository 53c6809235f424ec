package poll

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Delay 可轮询的定时器
//
// Poll 在截止时间到达后返回 true；否则登记定时器，到期时唤醒最近一次
// Poll 传入的 Waker。截止时间以 cx.Now() 判断，因此在 mock 时钟下是确定的。
type Delay struct {
	mu       sync.Mutex
	deadline time.Time
	timer    *clock.Timer
	waker    Waker
}

// NewDelay 创建在 now+d 到期的定时器
func NewDelay(now time.Time, d time.Duration) *Delay {
	return &Delay{deadline: now.Add(d)}
}

// Deadline 返回截止时间
func (d *Delay) Deadline() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deadline
}

// Poll 检查是否到期
func (d *Delay) Poll(cx *Context) bool {
	now := cx.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if !now.Before(d.deadline) {
		d.stopLocked()
		return true
	}
	d.waker = cx.Waker()
	if d.timer == nil {
		d.timer = cx.Clock().AfterFunc(d.deadline.Sub(now), d.fire)
	}
	return false
}

// Reset 重新设置为 now+dur 到期
func (d *Delay) Reset(now time.Time, dur time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.deadline = now.Add(dur)
}

// Stop 停止定时器
func (d *Delay) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.waker = nil
}

func (d *Delay) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Delay) fire() {
	d.mu.Lock()
	w := d.waker
	d.timer = nil
	d.mu.Unlock()

	if w != nil {
		w.Wake()
	}
}

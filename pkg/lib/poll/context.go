package poll

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Context 一次 Poll 调用的上下文
//
// 不要跨 Poll 调用保存 Context；需要延迟唤醒时保存 cx.Waker()。
type Context struct {
	waker Waker
	clock clock.Clock
}

// NewContext 创建轮询上下文
//
// clk 为 nil 时使用真实时钟。
func NewContext(w Waker, clk clock.Clock) *Context {
	if w == nil {
		w = NoopWaker
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Context{waker: w, clock: clk}
}

// Waker 返回当前 Waker
func (cx *Context) Waker() Waker {
	return cx.waker
}

// Clock 返回时钟
func (cx *Context) Clock() clock.Clock {
	return cx.clock
}

// Now 返回当前时间
func (cx *Context) Now() time.Time {
	return cx.clock.Now()
}

// WithWaker 返回使用另一个 Waker 的上下文，时钟不变
func (cx *Context) WithWaker(w Waker) *Context {
	return &Context{waker: w, clock: cx.clock}
}

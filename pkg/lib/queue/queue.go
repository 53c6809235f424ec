// Package queue 提供显式容量的有界队列
//
// 组件之间的所有命令与事件通道都是有界的：队列已满时生产方得到 false，
// 由其在 Poll 中报告 "没有进展，稍后再试"，而不是阻塞或丢弃数据。
//
// Bounded 不是并发安全的，只在单个轮询线程内使用。
package queue

// Bounded 固定容量的 FIFO 环形队列
type Bounded[T any] struct {
	buf  []T
	head int
	size int
}

// NewBounded 创建容量为 capacity 的队列
//
// capacity 必须大于 0。
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity <= 0 {
		panic("queue: capacity must be positive")
	}
	return &Bounded[T]{buf: make([]T, capacity)}
}

// TryPush 入队，队列已满时返回 false
func (q *Bounded[T]) TryPush(v T) bool {
	if q.size == len(q.buf) {
		return false
	}
	q.buf[(q.head+q.size)%len(q.buf)] = v
	q.size++
	return true
}

// Pop 出队
func (q *Bounded[T]) Pop() (T, bool) {
	var zero T
	if q.size == 0 {
		return zero, false
	}
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return v, true
}

// Peek 查看队首元素
func (q *Bounded[T]) Peek() (T, bool) {
	if q.size == 0 {
		var zero T
		return zero, false
	}
	return q.buf[q.head], true
}

// Clear 清空队列
func (q *Bounded[T]) Clear() {
	var zero T
	for q.size > 0 {
		q.buf[q.head] = zero
		q.head = (q.head + 1) % len(q.buf)
		q.size--
	}
	q.head = 0
}

// Len 当前元素数
func (q *Bounded[T]) Len() int { return q.size }

// Cap 容量
func (q *Bounded[T]) Cap() int { return len(q.buf) }

// Full 是否已满
func (q *Bounded[T]) Full() bool { return q.size == len(q.buf) }

// Empty 是否为空
func (q *Bounded[T]) Empty() bool { return q.size == 0 }

// Free 剩余容量
func (q *Bounded[T]) Free() int { return len(q.buf) - q.size }

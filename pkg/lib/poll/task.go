package poll

// Task 在边缘 goroutine 中执行的一次性阻塞操作
//
// goroutine 把唯一的结果写入容量为 1 的通道并唤醒轮询方，
// 因此投递永远不会阻塞，也不需要轮询方在场。
type Task[T any] struct {
	ch    chan taskResult[T]
	waker AtomicWaker

	done  bool
	value T
	err   error
}

type taskResult[T any] struct {
	value T
	err   error
}

// Go 启动任务
func Go[T any](fn func() (T, error)) *Task[T] {
	t := &Task[T]{ch: make(chan taskResult[T], 1)}
	go func() {
		v, err := fn()
		t.ch <- taskResult[T]{value: v, err: err}
		t.waker.Wake()
	}()
	return t
}

// Poll 检查任务是否完成
//
// 完成后重复调用返回同一结果。
func (t *Task[T]) Poll(cx *Context) (T, bool, error) {
	if t.done {
		return t.value, true, t.err
	}
	select {
	case r := <-t.ch:
		t.done, t.value, t.err = true, r.value, r.err
		return t.value, true, t.err
	default:
	}

	t.waker.Register(cx.Waker())

	// 登记之后再检查一次，避免错过登记前完成的结果
	select {
	case r := <-t.ch:
		t.done, t.value, t.err = true, r.value, r.err
		return t.value, true, t.err
	default:
		var zero T
		return zero, false, nil
	}
}

// Ready 任务是否已完成，不取出结果
//
// 只能在轮询方 goroutine 调用。
func (t *Task[T]) Ready() bool {
	return t.done || len(t.ch) > 0
}

// Done 任务是否已被 Poll 观察到完成
func (t *Task[T]) Done() bool {
	return t.done
}

package state

// DeferredQueue holds packets waiting for a precondition. Order is never changed.
type DeferredQueue[T any] struct {
	items []T
}

func (q *DeferredQueue[T]) Push(v T) {
	q.items = append(q.items, v)
}

func (q *DeferredQueue[T]) Pop() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

func (q *DeferredQueue[T]) Len() int {
	return len(q.items)
}

// Items returns a copy of the queue contents, head first.
func (q *DeferredQueue[T]) Items() []T {
	return append([]T(nil), q.items...)
}

// Drain processes exactly the packets queued when it is called. Anything
// pushed by process lands behind them and waits for the next Drain.
func (q *DeferredQueue[T]) Drain(process func(T)) int {
	n := len(q.items)
	for range n {
		v, _ := q.Pop()
		process(v)
	}
	return n
}

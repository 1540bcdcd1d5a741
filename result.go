package persist

import "context"

// Result carries a storage outcome that settles either immediately or at some
// later point. Storage backends are free to return either shape; consumers
// branch on Peek instead of inspecting runtime types, so both paths stay
// exhaustive and statically checked.
type Result[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newSettled[T any](value T, err error) *Result[T] {
	done := make(chan struct{})
	close(done)
	return &Result[T]{done: done, value: value, err: err}
}

// Immediate returns an already-settled successful result.
func Immediate[T any](value T) *Result[T] {
	return newSettled(value, nil)
}

// Fail returns an already-settled failed result.
func Fail[T any](err error) *Result[T] {
	var zero T
	return newSettled(zero, err)
}

// Defer runs fn on its own goroutine and returns a result that settles with
// fn's outcome. fn runs exactly once.
func Defer[T any](fn func() (T, error)) *Result[T] {
	r := &Result[T]{done: make(chan struct{})}
	go func() {
		defer close(r.done)
		r.value, r.err = fn()
	}()
	return r
}

// Peek reports the outcome without blocking. ok is false while the result is
// still pending. A deferred result that has already settled is
// indistinguishable from an immediate one.
func (r *Result[T]) Peek() (value T, err error, ok bool) {
	select {
	case <-r.done:
		return r.value, r.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// Pending reports whether the result has not settled yet.
func (r *Result[T]) Pending() bool {
	_, _, ok := r.Peek()
	return !ok
}

// Wait blocks until the result settles or ctx is done.
func (r *Result[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

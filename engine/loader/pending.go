package loader

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
)

// Pending is a single-slot cell filled by a background load.
// The loading task stores the result once; the consumer takes it once.
type Pending[T any] struct {
	cell atomic.Pointer[T]
	done chan struct{}
	once sync.Once
	err  error
}

// PendingModel receives a static model from Loader.LoadModel.
type PendingModel = Pending[model.Model]

// PendingAnimatedModel receives an animated model from Loader.LoadAnimatedModel.
type PendingAnimatedModel = Pending[model.AnimatedModel]

func newPending[T any]() *Pending[T] {
	return &Pending[T]{done: make(chan struct{})}
}

// completedPending returns a cell already holding v.
func completedPending[T any](v T) *Pending[T] {
	p := newPending[T]()
	p.complete(v)
	return p
}

// Take swaps the cell with empty. It returns the value and true the first time it is called
// after a successful load, and false before completion, after a failure and on every later call.
func (p *Pending[T]) Take() (T, bool) {
	v := p.cell.Swap(nil)
	if v == nil {
		var zero T
		return zero, false
	}
	return *v, true
}

// Done is closed once the load has succeeded or failed.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Err returns the load error. It is nil until Done is closed, and nil after a success.
func (p *Pending[T]) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the load settles or ctx ends.
//
// Parameters:
//   - ctx: bounds the wait
//
// Returns:
//   - error: the load error, or ctx.Err() when ctx ends first
func (p *Pending[T]) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pending[T]) complete(v T) {
	p.once.Do(func() {
		p.cell.Store(&v)
		close(p.done)
	})
}

func (p *Pending[T]) fail(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

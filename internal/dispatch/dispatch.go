// Package dispatch serializes callbacks coming from discovery and
// session goroutines onto a single goroutine.
package dispatch

import (
	"context"
	"sync"
)

// Poster runs f on the owning goroutine at some later point.
type Poster interface {
	Post(f func())
}

// Inline runs posted functions immediately on the caller's goroutine.
type Inline struct{}

func (Inline) Post(f func()) { f() }

// Func adapts a function such as fyne.Do to a Poster.
type Func func(f func())

func (fn Func) Post(f func()) { fn(f) }

// Loop executes posted functions in order on the goroutine running Run.
// Post never blocks: the queue grows as needed.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
}

func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post enqueues f. Functions posted after Run returned are dropped.
func (l *Loop) Post(f func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, f)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue until ctx is canceled. A function may post more
// work, which runs after everything already queued.
func (l *Loop) Run(ctx context.Context) {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
	}()

	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, f := range batch {
			if ctx.Err() != nil {
				return
			}
			f()
		}

		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}

// Call posts f and waits until it ran, for reading state owned by the
// loop from another goroutine. It returns false if ctx ends first.
func (l *Loop) Call(ctx context.Context, f func()) bool {
	done := make(chan struct{})
	l.Post(func() {
		f()
		close(done)
	})

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

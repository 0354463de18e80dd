// Package errgroup provides synchronization and error propagation for groups of goroutines
// working on subtasks of a common task. Unlike golang.org/x/sync/errgroup, a panic inside
// a subtask is recovered and reported as its error.
package errgroup

import (
	"context"
	"sync"

	"github.com/therne/errorist"
)

type Group struct {
	cancel func()

	wg  sync.WaitGroup
	sem chan struct{}

	errOnce sync.Once
	err     error
}

// WithContext returns a new Group and an associated Context derived from ctx.
// The derived Context is canceled the first time a function passed to Go returns
// a non-nil error or panics, or the first time Wait returns.
func WithContext(ctx context.Context) (*Group, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &Group{cancel: cancel}, ctx
}

// SetLimit limits the number of active goroutines in this group to at most n.
// It must not be called while any goroutines in the group are active.
func (g *Group) SetLimit(n int) {
	if n <= 0 {
		g.sem = nil
		return
	}
	g.sem = make(chan struct{}, n)
}

// Go calls the given function in a new goroutine. It blocks while the group is at its limit.
func (g *Group) Go(f func() error) {
	if g.sem != nil {
		g.sem <- struct{}{}
	}
	g.wg.Add(1)
	go func() {
		defer g.done()

		var err error
		defer func() {
			if panicErr := errorist.WrapPanic(recover()); panicErr != nil {
				err = panicErr
			}
			if err != nil {
				g.setErr(err)
			}
		}()
		err = f()
	}()
}

// Wait blocks until all function calls from the Go method have returned,
// then returns the first non-nil error (if any) from them.
func (g *Group) Wait() error {
	g.wg.Wait()
	if g.cancel != nil {
		g.cancel()
	}
	return g.err
}

func (g *Group) done() {
	if g.sem != nil {
		<-g.sem
	}
	g.wg.Done()
}

func (g *Group) setErr(err error) {
	g.errOnce.Do(func() {
		g.err = err
		if g.cancel != nil {
			g.cancel()
		}
	})
}

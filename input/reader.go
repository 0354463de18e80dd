package input

import (
	"context"

	"go.uber.org/atomic"
)

// Reader is a queue of splits between a feeder and map workers.
type Reader struct {
	C chan Split

	fed    atomic.Int64
	closed atomic.Bool
}

func NewReader(queueLen int) *Reader {
	return &Reader{
		C: make(chan Split, queueLen),
	}
}

// Send enqueues a split, blocking until a worker has room or the context is done.
func (p *Reader) Send(ctx context.Context, s Split) error {
	select {
	case p.C <- s:
		p.fed.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NumFed returns the number of splits sent so far.
func (p *Reader) NumFed() int64 {
	return p.fed.Load()
}

func (p *Reader) Close() {
	if swapped := p.closed.CAS(false, true); !swapped {
		// p.closed was true
		return
	}
	// with CAS, only a goroutine can enter here
	close(p.C)
}

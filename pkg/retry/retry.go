package retry

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Do runs fn until it succeeds or the attempts are exhausted.
func Do(ctx context.Context, fn func() error, opts ...OptionFunc) error {
	_, err := DoWithResult(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	}, opts...)
	return err
}

// DoWithResult do a given function with retry.
// Errors marked with Permanent are returned without retrying.
func DoWithResult[T any](ctx context.Context, fn func() (T, error), opts ...OptionFunc) (T, error) {
	opt := defaultOption()
	for _, o := range opts {
		o(&opt)
	}
	if opt.maxAttempts < 1 {
		opt.maxAttempts = 1
	}

	var attempt int
	for {
		attempt++
		t, err := fn()
		if err == nil {
			return t, nil
		}
		var p *permanentError
		if errors.As(err, &p) {
			return t, p.err
		}
		if attempt >= opt.maxAttempts {
			return t, errors.Wrapf(err, "retry count exceeded: %d", attempt)
		}
		if opt.onRetry != nil {
			opt.onRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			return t, ctx.Err()
		case <-time.After(opt.delay):
		}
	}
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

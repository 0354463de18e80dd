package retry

import "time"

type option struct {
	maxAttempts int
	delay       time.Duration
	onRetry     func(attempt int, err error)
}

func defaultOption() option {
	return option{
		maxAttempts: 3,
		delay:       200 * time.Millisecond,
	}
}

// OptionFunc is a function that sets an option.
type OptionFunc func(*option)

// WithRetryCount sets the maximum number of attempts.
func WithRetryCount(count int) OptionFunc {
	return func(o *option) {
		o.maxAttempts = count
	}
}

// WithDelay sets the delay between attempts.
func WithDelay(delay time.Duration) OptionFunc {
	return func(o *option) {
		o.delay = delay
	}
}

// OnRetry registers a hook called with the failed attempt number before the next attempt.
func OnRetry(fn func(attempt int, err error)) OptionFunc {
	return func(o *option) {
		o.onRetry = fn
	}
}

package testutils

import (
	"context"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

const defaultTimeout = 10 * time.Second

// ContextWithTimeout returns a context canceled when the current convey scope resets.
// A job on the test data finishes far below the default timeout of 10 seconds.
func ContextWithTimeout(overrideTimeout ...time.Duration) context.Context {
	timeout := defaultTimeout
	if len(overrideTimeout) > 0 {
		timeout = overrideTimeout[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	convey.Reset(cancel)
	return ctx
}

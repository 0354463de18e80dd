package output

import (
	"github.com/ab180/merchantagg/lrdd"
	"github.com/samber/lo"
)

// Output receives rows produced by a stage.
type Output interface {
	Write(rows ...*lrdd.Row) error
	Close() error
}

// Discard is an Output which drops every row.
var Discard Output = discard{}

type discard struct{}

func (discard) Write(...*lrdd.Row) error { return nil }
func (discard) Close() error             { return nil }

// Aborter is implemented by outputs which can drop the rows written to them instead of closing.
type Aborter interface {
	Abort()
}

// Abort drops the outputs which support it and closes the others.
func Abort(outputs ...Output) {
	for _, o := range outputs {
		if a, ok := o.(Aborter); ok {
			a.Abort()
			continue
		}
		_ = o.Close()
	}
}

// CloseAll closes outputs in order, those shared through SinkOf last.
// Once one fails, the remaining outputs are aborted.
func CloseAll(outputs ...Output) error {
	isShared := func(o Output, _ int) bool {
		_, ok := o.(*stagedOutput)
		return ok
	}
	ordered := append(lo.Reject(outputs, isShared), lo.Filter(outputs, isShared)...)
	for i, o := range ordered {
		if err := o.Close(); err != nil {
			Abort(ordered[i+1:]...)
			return err
		}
	}
	return nil
}

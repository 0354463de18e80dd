package output

import (
	"sync"

	"github.com/ab180/merchantagg/lrdd"
	"github.com/pkg/errors"
)

// BufferedOutput batches rows so that the wrapped output receives at most
// the buffer length of rows on each Write.
type BufferedOutput struct {
	output Output

	mu  sync.Mutex
	buf []*lrdd.Row
}

// NewBufferedOutput wraps the output. Non-positive length falls back to DefaultOptions.
func NewBufferedOutput(output Output, length int) *BufferedOutput {
	if length <= 0 {
		length = DefaultOptions().BufferLength
	}
	return &BufferedOutput{
		output: output,
		buf:    make([]*lrdd.Row, 0, length),
	}
}

func (b *BufferedOutput) Write(rows ...*lrdd.Row) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(rows) > 0 {
		n := min(len(rows), cap(b.buf)-len(b.buf))
		b.buf = append(b.buf, rows[:n]...)
		rows = rows[n:]
		if len(b.buf) == cap(b.buf) {
			if err := b.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *BufferedOutput) flush() error {
	if len(b.buf) == 0 {
		return nil
	}
	// the wrapped output may keep the slice
	rows := make([]*lrdd.Row, len(b.buf))
	copy(rows, b.buf)
	clear(b.buf)
	b.buf = b.buf[:0]
	return b.output.Write(rows...)
}

// Flush writes buffered rows to the wrapped output.
func (b *BufferedOutput) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flush()
}

// Len returns the number of rows waiting to be flushed.
func (b *BufferedOutput) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

func (b *BufferedOutput) Close() error {
	if err := b.Flush(); err != nil {
		return errors.Wrap(err, "flush")
	}
	return b.output.Close()
}

package lz4

import (
	"io"
	"strings"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// Extension is the file suffix of lz4-framed files.
const Extension = ".lz4"

// IsCompressed reports whether the path names an lz4-framed file.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, Extension)
}

// NewReader returns a pooled reader decompressing r. Closing it returns the reader to the pool;
// the underlying reader is not closed.
func NewReader(r io.Reader) io.ReadCloser {
	zr := readerPool.Get().(*reader)
	zr.Reader.Reset(r)
	return zr
}

// NewWriter returns a pooled writer compressing into w. Close flushes the frame
// and returns the writer to the pool; the underlying writer is not closed.
func NewWriter(w io.Writer) io.WriteCloser {
	zw := writerPool.Get().(*writer)
	zw.Writer.Reset(w)
	return zw
}

type writer struct {
	*lz4.Writer
}

func (w *writer) Close() error {
	defer writerPool.Put(w)
	return w.Writer.Close()
}

type reader struct {
	*lz4.Reader
}

func (z *reader) Close() error {
	z.Reader.Reset(nil)
	readerPool.Put(z)
	return nil
}

var (
	writerPool = sync.Pool{
		New: func() any {
			return &writer{
				Writer: lz4.NewWriter(nil),
			}
		},
	}
	readerPool = sync.Pool{
		New: func() any {
			return &reader{
				Reader: lz4.NewReader(nil),
			}
		},
	}
)

package input

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/therne/errorist"
)

// MaxLineSize is the longest line Scan hands out. Longer lines are reported
// with *LineTooLongError and the rest of the split is still read.
const MaxLineSize = 1 << 20

const readBufferSize = 64 * 1024

// LineTooLongError is passed to the scan callback instead of a line exceeding MaxLineSize.
type LineTooLongError struct {
	// Size is the length of the line including its line ending.
	Size int
}

func (e *LineTooLongError) Error() string {
	return fmt.Sprintf("line too long: %d bytes exceeds %d", e.Size, MaxLineSize)
}

// ScanFunc receives each line of a split with its 1-based line number. lineErr is
// non-nil if the line could not be read whole; line is empty then.
type ScanFunc func(lineNo int, line string, lineErr error) error

// Scan calls fn for each line of the split. A trailing carriage return is stripped.
func Scan(s Split, fn ScanFunc) (err error) {
	r, err := s.Open()
	if err != nil {
		return errors.Wrapf(err, "open %s", s.ID())
	}
	defer errorist.CloseWithErrCapture(r, &err)

	br := bufio.NewReaderSize(r, readBufferSize)
	var buf []byte
	lineNo := 0
	for {
		raw, size, readErr := readLine(br, buf[:0])
		buf = raw
		if size > 0 {
			lineNo++
			line := trimEOL(raw)
			if size > len(raw) || len(line) > MaxLineSize {
				err = fn(lineNo, "", &LineTooLongError{Size: size})
			} else {
				err = fn(lineNo, string(line), nil)
			}
			if err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return errors.Wrapf(readErr, "read %s", s.ID())
		}
	}
}

// readLine reads through the next newline. Fragments past MaxLineSize are dropped;
// size is the full length of the line read.
func readLine(br *bufio.Reader, buf []byte) (line []byte, size int, err error) {
	for {
		frag, err := br.ReadSlice('\n')
		size += len(frag)
		// room for "\r\n" split across fragments
		if len(buf) < MaxLineSize+2 {
			buf = append(buf, frag...)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return buf, size, err
	}
}

func trimEOL(b []byte) []byte {
	n := len(b)
	if n > 0 && b[n-1] == '\n' {
		n--
	}
	if n > 0 && b[n-1] == '\r' {
		n--
	}
	return b[:n]
}

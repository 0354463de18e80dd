package output

import "github.com/ab180/merchantagg/lrdd"

// Sink opens the final output of each reduce partition.
type Sink interface {
	Open(partitionID string) (Output, error)
}

// Committer is implemented by sinks which need to be finalized after every partition succeeded.
type Committer interface {
	Commit() error
}

// SinkOf shares a single output among all partitions. Rows of a partition reach the
// shared output when its partition output is closed, and are dropped if it is aborted.
// Closing a partition output does not close the shared one.
func SinkOf(o Output) Sink {
	return sharedSink{o}
}

type sharedSink struct {
	out Output
}

func (s sharedSink) Open(string) (Output, error) {
	return &stagedOutput{out: s.out}, nil
}

type stagedOutput struct {
	out  Output
	rows []*lrdd.Row
}

func (s *stagedOutput) Write(rows ...*lrdd.Row) error {
	s.rows = append(s.rows, rows...)
	return nil
}

func (s *stagedOutput) Close() error {
	rows := s.rows
	s.rows = nil
	if len(rows) == 0 {
		return nil
	}
	return s.out.Write(rows...)
}

func (s *stagedOutput) Abort() {
	s.rows = nil
}

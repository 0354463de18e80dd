package output

import (
	"sort"

	"github.com/ab180/merchantagg/internal/pool"
	"github.com/ab180/merchantagg/lrdd"
	"github.com/ab180/merchantagg/partitions"
	"github.com/pkg/errors"
)

var rowsPool = pool.NewWithResetter(func() []*lrdd.Row {
	return make([]*lrdd.Row, 0, DefaultOptions().BufferLength)
}, func(rows *[]*lrdd.Row) {
	for i := range *rows {
		(*rows)[i] = nil
	}
	*rows = (*rows)[:0]
})

// Writer routes rows to partition outputs with a partitioner.
// It is not safe for concurrent use; each task owns its Writer.
type Writer struct {
	context     partitions.Context
	partitioner partitions.Partitioner
	outputs     map[string]Output
	buffers     map[string][]*lrdd.Row
	opt         Options
}

func NewWriter(ctx partitions.Context, p partitions.Partitioner, outputs map[string]Output, opt Options) *Writer {
	if opt.BufferLength <= 0 {
		opt.BufferLength = DefaultOptions().BufferLength
	}
	return &Writer{
		context:     ctx,
		partitioner: p,
		outputs:     outputs,
		buffers:     make(map[string][]*lrdd.Row, len(outputs)),
		opt:         opt,
	}
}

func (w *Writer) Write(rows ...*lrdd.Row) error {
	for _, r := range rows {
		id, err := w.partitioner.DeterminePartition(w.context, r, len(w.outputs))
		if err != nil {
			return errors.Wrapf(err, "determine partition of %q", r.Key)
		}
		if _, ok := w.outputs[id]; !ok {
			return errors.Wrapf(partitions.ErrNoOutput, "partition %s", id)
		}
		buf, ok := w.buffers[id]
		if !ok {
			buf = rowsPool.Get()
		}
		buf = append(buf, r)
		w.buffers[id] = buf
		if len(buf) >= w.opt.BufferLength {
			if err := w.flushPartition(id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Writer) flushPartition(id string) error {
	buf := w.buffers[id]
	delete(w.buffers, id)
	defer rowsPool.ResetAndPut(buf)

	if len(buf) == 0 {
		return nil
	}
	if err := w.outputs[id].Write(buf...); err != nil {
		return errors.Wrapf(err, "flush partition %s", id)
	}
	return nil
}

// Flush writes buffered rows to their outputs in partition ID order.
func (w *Writer) Flush() error {
	ids := make([]string, 0, len(w.buffers))
	for id := range w.buffers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := w.flushPartition(id); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes buffered rows. Partition outputs are shared between writers and stay open.
func (w *Writer) Close() error {
	return w.Flush()
}

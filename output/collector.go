package output

import (
	"sync"

	"github.com/ab180/merchantagg/lrdd"
)

// Collector keeps every written row in memory.
type Collector struct {
	mu   sync.Mutex
	rows []*lrdd.Row
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Write(rows ...*lrdd.Row) error {
	c.mu.Lock()
	c.rows = append(c.rows, rows...)
	c.mu.Unlock()
	return nil
}

func (c *Collector) Close() error {
	return nil
}

// Rows returns a copy of the collected rows.
func (c *Collector) Rows() []*lrdd.Row {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows := make([]*lrdd.Row, len(c.rows))
	copy(rows, c.rows)
	return rows
}

package output

import (
	"sync"

	"github.com/ab180/merchantagg/lrdd"
	"github.com/pkg/errors"
)

// Shard is an in-memory shuffle partition. Rows are kept in encoded form
// until the partition is grouped.
type Shard struct {
	ID string

	mu   sync.Mutex
	rows []lrdd.RawRow
}

func NewShard(id string) *Shard {
	return &Shard{ID: id}
}

// Write encodes all rows before appending them, so a failed write leaves the shard untouched.
func (s *Shard) Write(rows ...*lrdd.Row) error {
	encoded := make([]lrdd.RawRow, len(rows))
	for i, r := range rows {
		raw, err := r.Marshal()
		if err != nil {
			return errors.Wrapf(err, "write to shard %s", s.ID)
		}
		encoded[i] = raw
	}

	s.mu.Lock()
	s.rows = append(s.rows, encoded...)
	s.mu.Unlock()
	return nil
}

func (s *Shard) Close() error {
	return nil
}

// Len returns the number of rows written so far.
func (s *Shard) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Rows decodes every row written to the shard, in write order.
func (s *Shard) Rows() ([]*lrdd.Row, error) {
	s.mu.Lock()
	raws := s.rows
	s.mu.Unlock()

	rows := make([]*lrdd.Row, len(raws))
	for i, raw := range raws {
		r, err := raw.Unmarshal()
		if err != nil {
			return nil, errors.Wrapf(err, "read shard %s", s.ID)
		}
		rows[i] = r
	}
	return rows, nil
}

// Shards creates a shard per partition ID.
func Shards(ids []string) map[string]*Shard {
	shards := make(map[string]*Shard, len(ids))
	for _, id := range ids {
		shards[id] = NewShard(id)
	}
	return shards
}

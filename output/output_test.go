package output

import (
	"encoding/binary"
	"strconv"

	"github.com/ab180/merchantagg/lrdd"
	"github.com/pkg/errors"
)

type outputMock struct {
	Rows     []*lrdd.Row
	CloseErr error

	Calls struct {
		Write int
		Close int
	}
}

func (o *outputMock) Write(rows ...*lrdd.Row) error {
	o.Rows = append(o.Rows, rows...)
	o.Calls.Write += 1
	return nil
}

func (o *outputMock) Close() error {
	o.Calls.Close += 1
	return o.CloseErr
}

const rowIDCount lrdd.RowID = 200

// count is a test value encoded as a varint.
type count int64

func (c *count) MarshalMsg(b []byte) ([]byte, error) {
	if *c < 0 {
		return b, errors.New("negative count")
	}
	return binary.AppendVarint(b, int64(*c)), nil
}

func (c *count) UnmarshalMsg(b []byte) ([]byte, error) {
	v, n := binary.Varint(b)
	if n <= 0 {
		return b, errors.New("malformed count")
	}
	*c = count(v)
	return b[n:], nil
}

func (c *count) ID() lrdd.RowID  { return rowIDCount }
func (c *count) String() string { return strconv.FormatInt(int64(*c), 10) }

func init() {
	lrdd.RegisterValue(rowIDCount, func() lrdd.MarshalUnmarshaler { return new(count) })
}

func countRow(key string, v int64) *lrdd.Row {
	c := count(v)
	return lrdd.KeyValue(key, &c)
}

func items(length int) (rr []*lrdd.Row) {
	for i := 0; i < length; i++ {
		rr = append(rr, countRow(strconv.Itoa(i), int64(i)))
	}
	return
}

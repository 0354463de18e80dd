package aggregate

import (
	"encoding/binary"

	"github.com/ab180/merchantagg/lrdd"
	"github.com/pkg/errors"
)

const (
	// RowIDBucket is the row type of *Bucket values.
	RowIDBucket lrdd.RowID = 10

	// WireVersion is the current encoding version of Bucket.
	WireVersion byte = 1

	// WireSize is the encoded size of a Bucket: a version byte and five uint64 counters.
	WireSize = 1 + 5*8
)

var (
	ErrUnknownVersion = errors.New("unknown bucket wire version")
	ErrShortBuffer    = errors.New("buffer too short for bucket")
	ErrInconsistent   = errors.New("bucket total does not match its ranges")
)

// MarshalMsg appends the encoded bucket to b. Counters are written little-endian in the
// order BelowOrEq5000, BelowOrEq10000, BelowOrEq20000, Above20000, Total.
func (b *Bucket) MarshalMsg(buf []byte) ([]byte, error) {
	buf = append(buf, WireVersion)
	for _, c := range b.counters() {
		buf = binary.LittleEndian.AppendUint64(buf, c)
	}
	return buf, nil
}

// UnmarshalMsg decodes a bucket from the head of in and returns the remaining bytes.
func (b *Bucket) UnmarshalMsg(in []byte) ([]byte, error) {
	if len(in) < 1 {
		return in, ErrShortBuffer
	}
	if in[0] != WireVersion {
		return in, errors.Wrapf(ErrUnknownVersion, "version %d", in[0])
	}
	if len(in) < WireSize {
		return in, errors.Wrapf(ErrShortBuffer, "got %d bytes", len(in))
	}
	var decoded Bucket
	for i, c := range decoded.counterRefs() {
		offset := 1 + i*8
		*c = binary.LittleEndian.Uint64(in[offset : offset+8])
	}
	if !decoded.Valid() {
		return in, ErrInconsistent
	}
	*b = decoded
	return in[WireSize:], nil
}

func (b *Bucket) ID() lrdd.RowID {
	return RowIDBucket
}

func (b *Bucket) counters() [5]uint64 {
	return [5]uint64{b.BelowOrEq5000, b.BelowOrEq10000, b.BelowOrEq20000, b.Above20000, b.Total}
}

func (b *Bucket) counterRefs() [5]*uint64 {
	return [5]*uint64{&b.BelowOrEq5000, &b.BelowOrEq10000, &b.BelowOrEq20000, &b.Above20000, &b.Total}
}

func init() {
	lrdd.RegisterValue(RowIDBucket, func() lrdd.MarshalUnmarshaler {
		return new(Bucket)
	})
}

var _ lrdd.MarshalUnmarshaler = (*Bucket)(nil)

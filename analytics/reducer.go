package analytics

import (
	"github.com/ab180/merchantagg/aggregate"
	"github.com/ab180/merchantagg/lrdd"
	"github.com/ab180/merchantagg/transformation"
	"github.com/pkg/errors"
)

// BucketReducer merges order amount buckets of a key.
type BucketReducer struct{}

func (BucketReducer) InitialValue() lrdd.MarshalUnmarshaler {
	b := aggregate.Neutral()
	return &b
}

func (BucketReducer) Reduce(_ transformation.Context, prev, cur lrdd.MarshalUnmarshaler) (lrdd.MarshalUnmarshaler, error) {
	a, ok := prev.(*aggregate.Bucket)
	if !ok {
		return nil, errors.Errorf("expected *aggregate.Bucket, got %T", prev)
	}
	b, ok := cur.(*aggregate.Bucket)
	if !ok {
		return nil, errors.Errorf("expected *aggregate.Bucket, got %T", cur)
	}
	merged := aggregate.Merge(*a, *b)
	return &merged, nil
}

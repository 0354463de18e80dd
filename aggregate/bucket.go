// Package aggregate holds the per-key order counters and the rules to build and merge them.
package aggregate

import "fmt"

// Bucket counts orders by invoice amount range. Total always equals the sum of the four
// range counters.
type Bucket struct {
	BelowOrEq5000  uint64 `json:"belowOrEq5000"`
	BelowOrEq10000 uint64 `json:"belowOrEq10000"`
	BelowOrEq20000 uint64 `json:"belowOrEq20000"`
	Above20000     uint64 `json:"above20000"`
	Total          uint64 `json:"total"`
}

// Neutral returns the identity element of Merge.
func Neutral() Bucket {
	return Bucket{}
}

// Merge sums two buckets counter by counter. It is associative and commutative,
// so partial buckets can be pre-combined in any grouping before the final fold.
func Merge(a, b Bucket) Bucket {
	return Bucket{
		BelowOrEq5000:  a.BelowOrEq5000 + b.BelowOrEq5000,
		BelowOrEq10000: a.BelowOrEq10000 + b.BelowOrEq10000,
		BelowOrEq20000: a.BelowOrEq20000 + b.BelowOrEq20000,
		Above20000:     a.Above20000 + b.Above20000,
		Total:          a.Total + b.Total,
	}
}

// MergeAll folds given buckets starting from Neutral.
func MergeAll(buckets ...Bucket) Bucket {
	acc := Neutral()
	for _, b := range buckets {
		acc = Merge(acc, b)
	}
	return acc
}

// Valid reports whether the total matches the sum of the range counters.
func (b Bucket) Valid() bool {
	return b.Total == b.BelowOrEq5000+b.BelowOrEq10000+b.BelowOrEq20000+b.Above20000
}

// String formats the counters tab-separated, in the wire order.
func (b Bucket) String() string {
	return fmt.Sprintf("%d\t%d\t%d\t%d\t%d",
		b.BelowOrEq5000, b.BelowOrEq10000, b.BelowOrEq20000, b.Above20000, b.Total)
}

package aggregate

import "github.com/shopspring/decimal"

// Kind is one of the four invoice amount ranges.
type Kind int

const (
	BelowOrEq5000 Kind = iota
	BelowOrEq10000
	BelowOrEq20000
	Above20000
)

var (
	limit5000  = decimal.NewFromInt(5000)
	limit10000 = decimal.NewFromInt(10000)
	limit20000 = decimal.NewFromInt(20000)
)

// Classify returns the range of the amount. Upper bounds are inclusive, so an amount of
// exactly 5000 belongs to BelowOrEq5000. Amounts are expected to be non-negative.
func Classify(amount decimal.Decimal) Kind {
	switch {
	case amount.LessThanOrEqual(limit5000):
		return BelowOrEq5000
	case amount.LessThanOrEqual(limit10000):
		return BelowOrEq10000
	case amount.LessThanOrEqual(limit20000):
		return BelowOrEq20000
	default:
		return Above20000
	}
}

// Partial returns the contribution of a single order of given kind.
func Partial(k Kind) Bucket {
	b := Bucket{Total: 1}
	switch k {
	case BelowOrEq5000:
		b.BelowOrEq5000 = 1
	case BelowOrEq10000:
		b.BelowOrEq10000 = 1
	case BelowOrEq20000:
		b.BelowOrEq20000 = 1
	case Above20000:
		b.Above20000 = 1
	default:
		panic("aggregate: unknown kind")
	}
	return b
}

func (k Kind) String() string {
	switch k {
	case BelowOrEq5000:
		return "belowOrEq5000"
	case BelowOrEq10000:
		return "belowOrEq10000"
	case BelowOrEq20000:
		return "belowOrEq20000"
	case Above20000:
		return "above20000"
	}
	return "unknown"
}

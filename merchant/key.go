package merchant

import (
	"strconv"
	"strings"

	"github.com/ab180/merchantagg/transaction"
	"github.com/pkg/errors"
)

// UnknownMerchant is the merchant name used in keys of transactions whose merchant
// is missing from the lookup.
const UnknownMerchant = "unknown-merchant"

const canonicalSeparator = "|"

// GroupKey is the (merchant, day) pair orders are aggregated by.
type GroupKey struct {
	MerchantName string
	Date         string
	Resolved     bool
}

// BuildKey keys the transaction by its merchant name and day.
func BuildKey(tx transaction.Transaction, lookup *Lookup) GroupKey {
	name, ok := lookup.Resolve(strconv.FormatInt(tx.MerchantID, 10))
	if !ok {
		name = UnknownMerchant
	}
	return GroupKey{
		MerchantName: name,
		Date:         tx.Day(),
		Resolved:     ok,
	}
}

// String returns the output form "<merchantName>-<YYYY-MM-DD>".
func (k GroupKey) String() string {
	return k.MerchantName + "-" + k.Date
}

// Canonical returns the form used as a row key and partitioned on.
func (k GroupKey) Canonical() string {
	return k.MerchantName + canonicalSeparator + k.Date
}

// ParseCanonical reverses GroupKey.Canonical. The date never contains the separator,
// so the key is split at its last occurrence.
func ParseCanonical(s string) (GroupKey, error) {
	i := strings.LastIndex(s, canonicalSeparator)
	if i < 0 {
		return GroupKey{}, errors.Errorf("invalid group key %q", s)
	}
	name := s[:i]
	return GroupKey{
		MerchantName: name,
		Date:         s[i+1:],
		Resolved:     name != UnknownMerchant,
	}, nil
}

package partitions

import "github.com/samber/lo"

// Partition is a shard of the key space processed by one reduce unit.
type Partition struct {
	ID string
}

// IDs returns the partition IDs in plan order.
func IDs(pp []Partition) []string {
	return lo.Map(pp, func(p Partition, _ int) string {
		return p.ID
	})
}

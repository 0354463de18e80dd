package partitions

import (
	"strconv"

	"github.com/ab180/merchantagg/lrdd"
	"github.com/pkg/errors"
	"github.com/segmentio/fasthash/fnv1a"
)

// ErrNoOutput is returned by Partitioner.DeterminePartition when there's no
// corresponding partition found with the key of given row.
var ErrNoOutput = errors.New("no output")

type Partitioner interface {
	PlanNext(numShards int) []Partition
	DeterminePartition(c Context, r *lrdd.Row, numOutputs int) (id string, err error)
}

// PlanForNumberOf creates partitions for the number of shards.
// It uses its index number for each partition's ID.
func PlanForNumberOf(numShards int) []Partition {
	pp := make([]Partition, numShards)
	for i := 0; i < numShards; i++ {
		pp[i] = Partition{ID: strconv.Itoa(i)}
	}
	return pp
}

// ShardOf returns the shard index of the key in [0, numShards).
// The result only depends on the key and numShards, so it is stable across runs.
func ShardOf(key string, numShards int) int {
	// uses Fowler–Noll–Vo hash to determine output shard
	return Reduce(fnv1a.HashString64(key), numShards)
}

// Reduce maps a hash value into [0, n). The hash is reduced as unsigned,
// so no hash value can produce a negative index.
func Reduce(hash uint64, n int) int {
	if n <= 0 {
		panic("partitions: number of shards must be positive, got " + strconv.Itoa(n))
	}
	return int(hash % uint64(n))
}

type hashKeyPartitioner struct{}

// NewHashKeyPartitioner routes rows by the hash of their keys,
// so every row with the same key lands on the same shard.
func NewHashKeyPartitioner() Partitioner {
	return &hashKeyPartitioner{}
}

func (h *hashKeyPartitioner) PlanNext(numShards int) []Partition {
	return PlanForNumberOf(numShards)
}

func (h *hashKeyPartitioner) DeterminePartition(_ Context, r *lrdd.Row, numOutputs int) (id string, err error) {
	if numOutputs <= 0 {
		return "", ErrNoOutput
	}
	return strconv.Itoa(ShardOf(r.Key, numOutputs)), nil
}

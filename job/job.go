package job

import (
	"time"

	"github.com/ab180/merchantagg/partitions"
)

const (
	MapStage    = "map"
	ReduceStage = "reduce"
)

type Job struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Partitions are the shuffle partitions, each reduced by one task.
	Partitions []partitions.Partition `json:"partitions"`

	SubmittedAt time.Time `json:"submittedAt"`
}

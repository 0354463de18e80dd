package job

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ab180/merchantagg/metric"
)

// TaskID identifies a unit of work: an input split in the map stage or a partition in the reduce stage.
type TaskID struct {
	JobID       string
	StageName   string
	PartitionID string
}

func (tid TaskID) String() string {
	return fmt.Sprintf("%s/%s/%s", tid.JobID, tid.StageName, url.QueryEscape(tid.PartitionID))
}

type TaskState string

const (
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
)

type TaskStatus struct {
	State       TaskState      `json:"state"`
	Attempts    int            `json:"attempts"`
	Error       string         `json:"error,omitempty"`
	Metrics     metric.Metrics `json:"metrics"`
	CompletedAt time.Time      `json:"completedAt"`
}

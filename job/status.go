package job

import (
	"fmt"
	"time"
)

// Status is a status of the job.
type Status struct {
	Phase       Phase      `json:"phase"`
	SubmittedAt time.Time  `json:"submittedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Errors      []Error    `json:"errors,omitempty"`
}

func newStatus(submittedAt time.Time) *Status {
	return &Status{
		Phase:       Loading,
		SubmittedAt: submittedAt,
		UpdatedAt:   submittedAt,
	}
}

// Error describes a failure of a task.
type Error struct {
	Task       string `json:"task"`
	Message    string `json:"message"`
	Stacktrace string `json:"stacktrace"`
}

func newError(task string, err error) Error {
	return Error{
		Task:       task,
		Message:    err.Error(),
		Stacktrace: fmt.Sprintf("%+v", err),
	}
}

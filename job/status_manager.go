package job

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ab180/merchantagg/coordinator"
	"github.com/ab180/merchantagg/metric"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	jobKeyFmt        = "jobs/%s"
	jobStatusFmt     = "status/jobs/%s"
	taskStatusNsFmt  = "status/tasks/%s/"
	doneTasksFmt     = "status/jobs/%s/stages/%s/doneTasks"
	failedTasksFmt   = "status/jobs/%s/stages/%s/failedTasks"
	errInvalidPhases = "invalid phase transition %s -> %s"
)

// StatusManager records the phase of a job and the results of its tasks in a coordinator.
type StatusManager struct {
	crd coordinator.Coordinator
	job *Job

	mu     sync.Mutex
	status *Status
}

func NewStatusManager(crd coordinator.Coordinator, j *Job) *StatusManager {
	return &StatusManager{
		crd:    crd,
		job:    j,
		status: newStatus(j.SubmittedAt),
	}
}

// Create registers the job in Loading phase.
func (s *StatusManager) Create(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn := coordinator.NewTxn().
		Put(jobKey(s.job.ID), s.job).
		Put(jobStatusKey(s.job.ID), s.status)
	if _, err := s.crd.Commit(ctx, txn); err != nil {
		return errors.Wrapf(err, "create job %s", s.job.ID)
	}
	return nil
}

// Transition moves the job to the next phase.
func (s *StatusManager) Transition(ctx context.Context, next Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(ctx, next, nil)
}

// Fail moves the job to Failed, recording given errors.
func (s *StatusManager) Fail(ctx context.Context, causes ...Error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(ctx, Failed, causes)
}

func (s *StatusManager) transition(ctx context.Context, next Phase, causes []Error) error {
	prev := s.status.Phase
	if !prev.CanTransitionTo(next) {
		return errors.Errorf(errInvalidPhases, prev, next)
	}
	updated := *s.status
	updated.Phase = next
	updated.UpdatedAt = time.Now()
	if next.IsTerminal() {
		completedAt := updated.UpdatedAt
		updated.CompletedAt = &completedAt
	}
	updated.Errors = append(append([]Error(nil), s.status.Errors...), causes...)

	if err := s.crd.Put(ctx, jobStatusKey(s.job.ID), &updated); err != nil {
		return errors.Wrapf(err, "update status of job %s", s.job.ID)
	}
	s.status = &updated

	log.Debug().
		Str("job_id", s.job.ID).
		Str("from", string(prev)).
		Str("to", string(next)).
		Msg("phase changed")
	return nil
}

// Phase returns the current phase.
func (s *StatusManager) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.Phase
}

// MarkTaskAsSucceed records the task result and returns the number of finished tasks in its stage.
func (s *StatusManager) MarkTaskAsSucceed(ctx context.Context, tid TaskID, attempts int, metrics metric.Metrics) (doneTasks int64, err error) {
	ts := TaskStatus{
		State:       TaskSucceeded,
		Attempts:    attempts,
		Metrics:     metrics,
		CompletedAt: time.Now(),
	}
	results, err := s.crd.Commit(ctx, coordinator.NewTxn().
		Put(taskStatusKey(tid), ts).
		IncrementCounter(doneTasksKey(tid)))
	if err != nil {
		return 0, errors.Wrapf(err, "report success of task %s", tid)
	}
	return results[1].Counter, nil
}

// MarkTaskAsFailed records the task failure and adds it to the errors of the job.
func (s *StatusManager) MarkTaskAsFailed(ctx context.Context, tid TaskID, attempts int, cause error) error {
	ts := TaskStatus{
		State:       TaskFailed,
		Attempts:    attempts,
		Error:       cause.Error(),
		CompletedAt: time.Now(),
	}
	_, err := s.crd.Commit(ctx, coordinator.NewTxn().
		Put(taskStatusKey(tid), ts).
		IncrementCounter(failedTasksKey(tid)))
	if err != nil {
		return errors.Wrapf(err, "report failure of task %s", tid)
	}

	s.mu.Lock()
	s.status.Errors = append(s.status.Errors, newError(tid.String(), cause))
	s.mu.Unlock()
	return nil
}

// Status reads the job status from the coordinator.
func (s *StatusManager) Status(ctx context.Context) (*Status, error) {
	return GetStatus(ctx, s.crd, s.job.ID)
}

// CollectMetrics sums metrics of succeeded tasks, prefixed with their stage name.
func (s *StatusManager) CollectMetrics(ctx context.Context) (metric.Metrics, error) {
	prefix := fmt.Sprintf(taskStatusNsFmt, s.job.ID)
	items, err := s.crd.Scan(ctx, prefix)
	if err != nil {
		return nil, errors.Wrap(err, "scan task statuses")
	}
	collected := make(metric.Metrics)
	for _, item := range items {
		var ts TaskStatus
		if err := item.Unmarshal(&ts); err != nil {
			return nil, errors.Wrapf(err, "unmarshal %s", item.Key)
		}
		if ts.State != TaskSucceeded {
			continue
		}
		stageName := strings.SplitN(strings.TrimPrefix(item.Key, prefix), "/", 2)[0]
		collected.Add(ts.Metrics.AddPrefix(stageName + "/"))
	}
	return collected, nil
}

// GetStatus reads the status of a job.
func GetStatus(ctx context.Context, crd coordinator.Coordinator, jobID string) (*Status, error) {
	var st Status
	if err := crd.Get(ctx, jobStatusKey(jobID), &st); err != nil {
		return nil, errors.Wrapf(err, "get status of job %s", jobID)
	}
	return &st, nil
}

func jobKey(jobID string) string {
	return fmt.Sprintf(jobKeyFmt, jobID)
}

func jobStatusKey(jobID string) string {
	return fmt.Sprintf(jobStatusFmt, jobID)
}

func taskStatusKey(tid TaskID) string {
	return fmt.Sprintf(taskStatusNsFmt, tid.JobID) + tid.StageName + "/" + url.QueryEscape(tid.PartitionID)
}

func doneTasksKey(tid TaskID) string {
	return fmt.Sprintf(doneTasksFmt, tid.JobID, tid.StageName)
}

func failedTasksKey(tid TaskID) string {
	return fmt.Sprintf(failedTasksFmt, tid.JobID, tid.StageName)
}

package merchantagg

import (
	"context"
	"sync"

	"github.com/ab180/merchantagg/coordinator"
	"github.com/ab180/merchantagg/driver"
	"github.com/ab180/merchantagg/job"
	"github.com/rs/zerolog/log"
)

// RunningJob is a handle of a job started by Pipeline.Run.
type RunningJob struct {
	*job.Job
	crd    coordinator.Coordinator
	cancel context.CancelFunc

	done   chan struct{}
	result *driver.CollectResult
	err    error

	abortOnce sync.Once
}

func startJob(ctx context.Context, j *job.Job, crd coordinator.Coordinator, d driver.Driver, closeCrd bool) *RunningJob {
	ctx, cancel := context.WithCancel(ctx)
	r := &RunningJob{
		Job:    j,
		crd:    crd,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		defer cancel()

		r.result, r.err = d.RunSync(ctx)
		if closeCrd {
			if err := crd.Close(); err != nil {
				log.Warn().Err(err).Str("job_id", j.ID).Msg("failed to close coordinator")
			}
		}
	}()
	return r
}

// Wait blocks until the job finishes and returns its result.
func (r *RunningJob) Wait() (*driver.CollectResult, error) {
	<-r.done
	return r.result, r.err
}

// Done is closed after the job finishes.
func (r *RunningJob) Done() <-chan struct{} {
	return r.done
}

// Abort cancels the job. The job fails with context.Canceled unless it has already finished.
func (r *RunningJob) Abort() {
	r.abortOnce.Do(func() {
		log.Info().Str("job_id", r.ID).Msg("aborting job")
		r.cancel()
	})
}

// Status reads the recorded status of the job. It is not available after the job has
// finished on a coordinator owned by the pipeline.
func (r *RunningJob) Status(ctx context.Context) (*job.Status, error) {
	return job.GetStatus(ctx, r.crd, r.ID)
}

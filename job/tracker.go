package job

import (
	"context"

	"github.com/ab180/merchantagg/coordinator"
	"github.com/rs/zerolog/log"
)

// Track calls the callback on every status update of the job until it reaches a terminal phase
// or ctx is done. The returned channel is closed when tracking stops.
func Track(ctx context.Context, crd coordinator.Coordinator, jobID string, callback func(*Status)) <-chan struct{} {
	stopped := make(chan struct{})
	ctx, cancel := context.WithCancel(ctx)
	key := jobStatusKey(jobID)
	events := crd.Watch(ctx, key)

	go func() {
		defer close(stopped)
		defer cancel()

		for ev := range events {
			if ev.Type != coordinator.PutEvent || ev.Item.Key != key {
				continue
			}
			var st Status
			if err := ev.Item.Unmarshal(&st); err != nil {
				log.Warn().Err(err).Str("job_id", jobID).Msg("unable to unmarshal job status")
				continue
			}
			callback(&st)
			if st.Phase.IsTerminal() {
				return
			}
		}
	}()
	return stopped
}

//go:build !linux
// +build !linux

package cpuaffinity

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Scheduler is no-op on non-linux systems.
type Scheduler struct{}

var warnOnce sync.Once

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) Occupy(string) interface{} {
	warnOnce.Do(func() {
		log.Warn().Msg("CPU affinity scheduling is disabled on non-linux systems")
	})
	return nil
}

func (s *Scheduler) Release(interface{}) {}

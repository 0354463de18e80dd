// Inspired by https://github.com/jandos/gofine
//go:build linux
// +build linux

package cpuaffinity

import (
	"math"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// maxNumCPUs value ported from gofine
const maxNumCPUs = 1 << 10

// Scheduler pins map workers to the least busy CPU core.
type Scheduler struct {
	originalAffinity unix.CPUSet
	availableCores   []*core
	mu               sync.Mutex
}

type core struct {
	id              int
	numTasksRunning int
	disableSchedule bool
}

// NewScheduler creates a new CPU scheduler.
// It may panic if a system call to read current CPU core / affinity information fails.
func NewScheduler() *Scheduler {
	var currentCPUs unix.CPUSet
	if err := unix.SchedGetaffinity(0, &currentCPUs); err != nil {
		panic("initialize cpuaffinity.Scheduler: read current affinity: " + err.Error())
	}

	availableCores := make([]*core, 0, currentCPUs.Count())
	for coreID := 0; coreID < maxNumCPUs; coreID++ {
		if currentCPUs.IsSet(coreID) {
			availableCores = append(availableCores, &core{id: coreID})
		}
	}

	// reserve core #0 for go runtime, unless it is the only one
	if len(availableCores) > 1 {
		availableCores[0].disableSchedule = true
	}

	return &Scheduler{
		originalAffinity: currentCPUs,
		availableCores:   availableCores,
	}
}

// Occupy locks the calling goroutine to its OS thread and sticks the thread to the freest core.
// The returned occupation must be passed to Release.
func (s *Scheduler) Occupy(name string) (occupation interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runtime.LockOSThread()

	freestCore, minNumTasksRunning := (*core)(nil), math.MaxInt32
	for _, c := range s.availableCores {
		if c.disableSchedule {
			continue
		}
		if c.numTasksRunning < minNumTasksRunning {
			freestCore = c
			minNumTasksRunning = c.numTasksRunning
		}
	}
	if freestCore == nil {
		return nil
	}

	var stickToCore unix.CPUSet
	stickToCore.Set(freestCore.id)

	if err := unix.SchedSetaffinity(0, &stickToCore); err != nil {
		log.Debug().Err(err).Int("core", freestCore.id).Msg("failed to set affinity")
		return nil
	}
	freestCore.numTasksRunning++
	log.Debug().
		Str("worker", name).
		Int("core", freestCore.id).
		Int("running", freestCore.numTasksRunning).
		Msg("occupied CPU")
	return freestCore
}

// Release restores the original affinity and unlocks the goroutine from its OS thread.
func (s *Scheduler) Release(occupation interface{}) {
	defer runtime.UnlockOSThread()

	if occupiedCore, ok := occupation.(*core); ok && occupiedCore != nil {
		s.mu.Lock()
		occupiedCore.numTasksRunning--
		s.mu.Unlock()

		if err := unix.SchedSetaffinity(0, &s.originalAffinity); err != nil {
			log.Debug().Err(err).Int("core", occupiedCore.id).Msg("failed to recover affinity")
		}
	}
}

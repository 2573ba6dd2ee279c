package resumepdf

import (
	"sync"
	"sync/atomic"
	"time"
)

// StageState is the state of a pipeline stage.
type StageState int

const (
	StageIdle StageState = iota
	StageRunning
	StageSucceeded
	StageFailed
)

func (s StageState) String() string {
	switch s {
	case StageRunning:
		return "running"
	case StageSucceeded:
		return "succeeded"
	case StageFailed:
		return "failed"
	}
	return "idle"
}

// MarshalText encodes s by name.
func (s StageState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a snapshot of the pipeline stage flags. Callers use it to
// disable controls while a stage is in flight.
type Status struct {
	Generate StageState `json:"generate"`
	Render   StageState `json:"render"`
}

// Busy reports whether any stage is running.
func (s Status) Busy() bool {
	return s.Generate == StageRunning || s.Render == StageRunning
}

// stage guards a single pipeline stage. At most one run is in flight; a
// trigger while running is rejected with ErrBusy rather than queued.
type stage struct {
	running atomic.Bool

	mu   sync.Mutex
	last StageState
}

// run executes fn with the stage flag held. The flag is cleared on every
// path, including a panic in fn.
func (s *stage) run(fn func() error) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.running.Store(false)

	err := fn()

	s.mu.Lock()
	if err != nil {
		s.last = StageFailed
	} else {
		s.last = StageSucceeded
	}
	s.mu.Unlock()
	return err
}

// state reports StageRunning while a run is in flight, otherwise the
// outcome of the last run (StageIdle if none).
func (s *stage) state() StageState {
	if s.running.Load() {
		return StageRunning
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func since(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}

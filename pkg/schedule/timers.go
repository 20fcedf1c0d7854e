package schedule

import (
	"sync"
	"time"
)

// Timers arms one-shot callbacks keyed by schedule id.
type Timers interface {
	// Arm replaces any timer armed for id.
	Arm(id string, at time.Time, fire func())
	Cancel(id string)
}

// NoTimers never fires. A service built on it only persists schedules,
// leaving the firing to another process.
type NoTimers struct{}

func (NoTimers) Arm(string, time.Time, func()) {}

func (NoTimers) Cancel(string) {}

type armed struct {
	timer      *time.Timer
	generation uint64
}

// LocalTimers keeps at most one in-process timer per schedule id.
type LocalTimers struct {
	mu         sync.Mutex
	timers     map[string]armed
	generation uint64
	now        func() time.Time
}

func NewLocalTimers() *LocalTimers {
	return &LocalTimers{
		timers: make(map[string]armed),
		now:    time.Now,
	}
}

func (t *LocalTimers) Arm(id string, at time.Time, fire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked(id)

	t.generation++
	generation := t.generation

	delay := max(at.Sub(t.now()), 0)

	timer := time.AfterFunc(delay, func() {
		t.mu.Lock()
		current, ok := t.timers[id]
		// A timer stopped too late still runs; only the current one may fire.
		if !ok || current.generation != generation {
			t.mu.Unlock()

			return
		}

		delete(t.timers, id)
		t.mu.Unlock()

		fire()
	})

	t.timers[id] = armed{timer: timer, generation: generation}
}

func (t *LocalTimers) Cancel(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked(id)
}

func (t *LocalTimers) cancelLocked(id string) {
	if current, ok := t.timers[id]; ok {
		current.timer.Stop()
		delete(t.timers, id)
	}
}

// Len returns the number of armed timers.
func (t *LocalTimers) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.timers)
}

// Stop cancels every armed timer.
func (t *LocalTimers) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id := range t.timers {
		t.cancelLocked(id)
	}
}

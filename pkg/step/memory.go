package step

import (
	"context"
	"sync"
	"time"
)

// DefaultMemoryTTL is how long a run's entries outlive its last recorded step.
const DefaultMemoryTTL = 24 * time.Hour

type memoryRun struct {
	entries map[string][]byte
	touched time.Time
}

// MemoryJournal keeps step results in process memory. A run's entries are
// evicted once the run has recorded nothing for the journal's TTL.
type MemoryJournal struct {
	mu   sync.RWMutex
	runs map[string]*memoryRun
	ttl  time.Duration
	now  func() time.Time
}

type MemoryOption func(*MemoryJournal)

// WithTTL sets the idle time after which a run's entries are dropped.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *MemoryJournal) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *MemoryJournal) {
		m.now = now
	}
}

func NewMemoryJournal(opts ...MemoryOption) *MemoryJournal {
	m := &MemoryJournal{
		runs: make(map[string]*memoryRun),
		ttl:  DefaultMemoryTTL,
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *MemoryJournal) Load(_ context.Context, runID, name string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[runID]
	if !ok || m.expired(run, m.now()) {
		return nil, false, nil
	}

	payload, ok := run.entries[name]

	return payload, ok, nil
}

func (m *MemoryJournal) Save(_ context.Context, runID, name string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.evict(now)

	run, ok := m.runs[runID]
	if !ok {
		run = &memoryRun{entries: make(map[string][]byte)}
		m.runs[runID] = run
	}

	stored := make([]byte, len(payload))
	copy(stored, payload)
	run.entries[name] = stored
	run.touched = now

	return nil
}

// Len returns the number of recorded entries.
func (m *MemoryJournal) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, run := range m.runs {
		n += len(run.entries)
	}

	return n
}

func (m *MemoryJournal) expired(run *memoryRun, now time.Time) bool {
	return now.Sub(run.touched) > m.ttl
}

func (m *MemoryJournal) evict(now time.Time) {
	for id, run := range m.runs {
		if m.expired(run, now) {
			delete(m.runs, id)
		}
	}
}

// Package file stores schedules in a single JSON document on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/persistence"
	"github.com/dukex/nodeflow/pkg/schedule"
)

const schedulesFile = "schedules.json"

// Persistence keeps every schedule in memory and rewrites schedules.json on
// each mutation.
type Persistence struct {
	dataDir   string
	mu        sync.RWMutex
	schedules map[string]*models.Schedule
}

var _ schedule.Persistence = (*Persistence)(nil)

// NewPersistence loads dataDir/schedules.json, creating dataDir if needed.
func NewPersistence(dataDir string) (*Persistence, error) {
	dataDir = strings.TrimPrefix(dataDir, "file://")

	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	p := &Persistence{
		dataDir:   dataDir,
		schedules: make(map[string]*models.Schedule),
	}

	if err := p.load(); err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}

	return p, nil
}

func (p *Persistence) Upsert(_ context.Context, s *models.Schedule) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, existing := range p.schedules {
		if id != s.ID && existing.WorkflowID == s.WorkflowID && existing.NodeID == s.NodeID {
			delete(p.schedules, id)
		}
	}

	stored := *s
	p.schedules[s.ID] = &stored

	return p.flush()
}

func (p *Persistence) ByNode(_ context.Context, workflowID, nodeID string) (*models.Schedule, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, s := range p.schedules {
		if s.WorkflowID == workflowID && s.NodeID == nodeID {
			found := *s

			return &found, nil
		}
	}

	return nil, persistence.NewScheduleError("ByNode", workflowID+"/"+nodeID, persistence.ErrScheduleNotFound)
}

func (p *Persistence) ByID(_ context.Context, id string) (*models.Schedule, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.schedules[id]
	if !ok {
		return nil, persistence.NewScheduleError("ByID", id, persistence.ErrScheduleNotFound)
	}

	found := *s

	return &found, nil
}

func (p *Persistence) Delete(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.schedules[id]; !ok {
		return persistence.NewScheduleError("Delete", id, persistence.ErrScheduleNotFound)
	}

	delete(p.schedules, id)

	return p.flush()
}

func (p *Persistence) SetEnabled(_ context.Context, id string, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.schedules[id]
	if !ok {
		return persistence.NewScheduleError("SetEnabled", id, persistence.ErrScheduleNotFound)
	}

	s.Enabled = enabled
	if !enabled {
		s.NextRunAt = nil
	}

	return p.flush()
}

// Enabled returns enabled schedules ordered by next run.
func (p *Persistence) Enabled(_ context.Context) ([]*models.Schedule, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var enabled []*models.Schedule

	for _, s := range p.schedules {
		if s.Enabled {
			found := *s
			enabled = append(enabled, &found)
		}
	}

	sort.Slice(enabled, func(i, j int) bool {
		a, b := enabled[i].NextRunAt, enabled[j].NextRunAt
		if a == nil || b == nil {
			return b == nil && a != nil
		}

		return a.Before(*b)
	})

	return enabled, nil
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.dataDir); os.IsNotExist(err) {
		return fmt.Errorf("data directory does not exist: %s", p.dataDir)
	}

	return nil
}

func (p *Persistence) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.flush()
}

func (p *Persistence) load() error {
	data, err := os.ReadFile(filepath.Join(p.dataDir, schedulesFile)) // #nosec G304 -- path built from the configured data dir
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to read schedules file: %w", err)
	}

	var schedules []*models.Schedule
	if err := json.Unmarshal(data, &schedules); err != nil {
		return fmt.Errorf("failed to unmarshal schedules: %w", err)
	}

	for _, s := range schedules {
		p.schedules[s.ID] = s
	}

	return nil
}

func (p *Persistence) flush() error {
	schedules := make([]*models.Schedule, 0, len(p.schedules))
	for _, s := range p.schedules {
		schedules = append(schedules, s)
	}

	sort.Slice(schedules, func(i, j int) bool { return schedules[i].ID < schedules[j].ID })

	data, err := json.MarshalIndent(schedules, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schedules: %w", err)
	}

	path := filepath.Join(p.dataDir, schedulesFile)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write schedules file: %w", err)
	}

	return os.Rename(tmp, path)
}

package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/joshuarebo/insmile-ai/internal/application"
	domain "github.com/joshuarebo/insmile-ai/internal/domain/analysis"
)

// Memory is the process-lifetime job registry. All state dies with the
// process; a restart starts clean. Every method takes the lock once, so
// each call is atomic per job id, and reads hand out snapshots.
type Memory struct {
	mu    sync.RWMutex
	jobs  map[domain.JobID]*domain.Job
	clock application.Clock
}

func NewMemory(clock application.Clock) *Memory {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Memory{jobs: make(map[domain.JobID]*domain.Job), clock: clock}
}

func (m *Memory) Create(id domain.JobID, patientID string, scanType domain.ScanType) (*domain.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.jobs[id]; ok && !existing.Status.Terminal() {
		return snapshot(existing), false
	}
	now := m.clock.Now()
	job := &domain.Job{
		ID:        id,
		PatientID: patientID,
		ScanType:  scanType,
		Status:    domain.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.jobs[id] = job
	return snapshot(job), true
}

func (m *Memory) Get(id domain.JobID) (*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return snapshot(job), nil
}

func (m *Memory) Transition(id domain.JobID, from, to domain.Status, upd domain.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status != from {
		return fmt.Errorf("%w: %s is %s, expected %s", domain.ErrConflict, id, job.Status, from)
	}
	job.Status = to
	if upd.Progress != nil && *upd.Progress > job.Progress {
		job.Progress = clampProgress(*upd.Progress)
	}
	if upd.Result != nil {
		job.Result = upd.Result
	}
	if upd.Error != nil {
		job.Error = *upd.Error
	}
	if upd.Source != nil {
		job.Source = *upd.Source
	}
	job.UpdatedAt = m.clock.Now()
	return nil
}

func (m *Memory) SetProgress(id domain.JobID, progress int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status.Terminal() || progress <= job.Progress {
		return
	}
	job.Progress = clampProgress(progress)
	job.UpdatedAt = m.clock.Now()
}

func (m *Memory) ListByPatient(patientID string) []*domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Job
	for _, job := range m.jobs {
		if job.PatientID == patientID {
			out = append(out, snapshot(job))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// CountByStatus reports how many jobs sit in each state. Feeds the
// metrics endpoint.
func (m *Memory) CountByStatus() map[domain.Status]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[domain.Status]int, 4)
	for _, job := range m.jobs {
		out[job.Status]++
	}
	return out
}

// CountBySource reports how many jobs were served from each source, so
// the metrics endpoint can show how often mock data stood in for the
// provider.
func (m *Memory) CountBySource() map[domain.Source]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[domain.Source]int, 2)
	for _, job := range m.jobs {
		if job.Source != "" {
			out[job.Source]++
		}
	}
	return out
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// snapshot copies the job so readers never observe later writes. The
// Result pointer is shared; results are never mutated once attached.
func snapshot(job *domain.Job) *domain.Job {
	cp := *job
	return &cp
}

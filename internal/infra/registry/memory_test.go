package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/joshuarebo/insmile-ai/internal/domain/analysis"
)

// fakeClock hands out strictly increasing times.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func TestCreate_LiveJobIsNotReplaced(t *testing.T) {
	m := NewMemory(&fakeClock{})

	first, created := m.Create("scan-1", "p1", domain.ScanPanoramic)
	require.True(t, created)
	assert.Equal(t, domain.StatusQueued, first.Status)

	again, created := m.Create("scan-1", "p1", domain.ScanPanoramic)
	assert.False(t, created)
	assert.Equal(t, first.CreatedAt, again.CreatedAt)
}

func TestCreate_TerminalJobIsReplaced(t *testing.T) {
	m := NewMemory(&fakeClock{})
	m.Create("scan-1", "p1", domain.ScanBitewing)
	require.NoError(t, m.Transition("scan-1", domain.StatusQueued, domain.StatusFailed, domain.Update{}))

	job, created := m.Create("scan-1", "p1", domain.ScanBitewing)
	assert.True(t, created)
	assert.Equal(t, domain.StatusQueued, job.Status)
	assert.Empty(t, job.Error)
}

func TestGet_Unknown(t *testing.T) {
	m := NewMemory(nil)

	_, err := m.Get("nope")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestTransition_FullLifecycle(t *testing.T) {
	m := NewMemory(&fakeClock{})
	m.Create("scan-1", "p1", domain.ScanPanoramic)

	p := 5
	require.NoError(t, m.Transition("scan-1", domain.StatusQueued, domain.StatusProcessing, domain.Update{Progress: &p}))

	res := domain.MockResult(domain.ScanPanoramic)
	done := 100
	src := domain.SourceProvider
	require.NoError(t, m.Transition("scan-1", domain.StatusProcessing, domain.StatusCompleted, domain.Update{
		Progress: &done, Result: res, Source: &src,
	}))

	job, err := m.Get("scan-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, domain.SourceProvider, job.Source)
	require.NotNil(t, job.Result)
}

func TestTransition_TerminalStatesAbsorb(t *testing.T) {
	m := NewMemory(&fakeClock{})
	m.Create("scan-1", "p1", domain.ScanPanoramic)
	require.NoError(t, m.Transition("scan-1", domain.StatusQueued, domain.StatusProcessing, domain.Update{}))
	require.NoError(t, m.Transition("scan-1", domain.StatusProcessing, domain.StatusCompleted, domain.Update{}))

	err := m.Transition("scan-1", domain.StatusCompleted, domain.StatusFailed, domain.Update{})
	assert.ErrorIs(t, err, domain.ErrConflict)

	err = m.Transition("scan-1", domain.StatusProcessing, domain.StatusFailed, domain.Update{})
	assert.ErrorIs(t, err, domain.ErrConflict)

	job, _ := m.Get("scan-1")
	assert.Equal(t, domain.StatusCompleted, job.Status)
}

func TestTransition_UnknownJob(t *testing.T) {
	m := NewMemory(nil)

	err := m.Transition("ghost", domain.StatusQueued, domain.StatusProcessing, domain.Update{})
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestSetProgress_MonotonicAndBounded(t *testing.T) {
	m := NewMemory(&fakeClock{})
	m.Create("scan-1", "p1", domain.ScanPanoramic)
	require.NoError(t, m.Transition("scan-1", domain.StatusQueued, domain.StatusProcessing, domain.Update{}))

	m.SetProgress("scan-1", 40)
	m.SetProgress("scan-1", 30) // lower, ignored
	job, _ := m.Get("scan-1")
	assert.Equal(t, 40, job.Progress)

	m.SetProgress("scan-1", 150)
	job, _ = m.Get("scan-1")
	assert.Equal(t, 100, job.Progress)

	require.NoError(t, m.Transition("scan-1", domain.StatusProcessing, domain.StatusFailed, domain.Update{}))
	m.SetProgress("scan-1", 100)
	job, _ = m.Get("scan-1")
	assert.Equal(t, 100, job.Progress, "terminal jobs ignore progress writes")
}

func TestListByPatient_NewestFirst(t *testing.T) {
	m := NewMemory(&fakeClock{})
	m.Create("scan-1", "p1", domain.ScanPanoramic)
	m.Create("scan-2", "p1", domain.ScanBitewing)
	m.Create("scan-3", "p2", domain.ScanCBCT)

	jobs := m.ListByPatient("p1")
	require.Len(t, jobs, 2)
	assert.Equal(t, domain.JobID("scan-2"), jobs[0].ID)
	assert.Equal(t, domain.JobID("scan-1"), jobs[1].ID)

	assert.Empty(t, m.ListByPatient("p9"))
}

func TestGet_SnapshotIsolation(t *testing.T) {
	m := NewMemory(&fakeClock{})
	m.Create("scan-1", "p1", domain.ScanPanoramic)

	job, _ := m.Get("scan-1")
	job.Status = domain.StatusFailed
	job.Progress = 99

	fresh, _ := m.Get("scan-1")
	assert.Equal(t, domain.StatusQueued, fresh.Status)
	assert.Equal(t, 0, fresh.Progress)
}

func TestCountByStatus(t *testing.T) {
	m := NewMemory(&fakeClock{})
	m.Create("scan-1", "p1", domain.ScanPanoramic)
	m.Create("scan-2", "p1", domain.ScanBitewing)
	m.Create("scan-3", "p2", domain.ScanCBCT)
	require.NoError(t, m.Transition("scan-1", domain.StatusQueued, domain.StatusProcessing, domain.Update{}))
	require.NoError(t, m.Transition("scan-1", domain.StatusProcessing, domain.StatusCompleted, domain.Update{}))

	counts := m.CountByStatus()
	assert.Equal(t, 1, counts[domain.StatusCompleted])
	assert.Equal(t, 2, counts[domain.StatusQueued])
	assert.Equal(t, 0, counts[domain.StatusProcessing])
}

func TestCountBySource(t *testing.T) {
	m := NewMemory(&fakeClock{})
	mock := domain.SourceMock
	provider := domain.SourceProvider
	m.Create("scan-1", "p1", domain.ScanPanoramic)
	m.Create("scan-2", "p1", domain.ScanBitewing)
	m.Create("scan-3", "p2", domain.ScanCBCT)
	require.NoError(t, m.Transition("scan-1", domain.StatusQueued, domain.StatusProcessing, domain.Update{}))
	require.NoError(t, m.Transition("scan-1", domain.StatusProcessing, domain.StatusCompleted, domain.Update{Source: &mock}))
	require.NoError(t, m.Transition("scan-2", domain.StatusQueued, domain.StatusProcessing, domain.Update{}))
	require.NoError(t, m.Transition("scan-2", domain.StatusProcessing, domain.StatusCompleted, domain.Update{Source: &provider}))

	sources := m.CountBySource()
	assert.Equal(t, 1, sources[domain.SourceMock])
	assert.Equal(t, 1, sources[domain.SourceProvider])
	assert.Equal(t, 2, len(sources), "untagged jobs are not counted")
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	m := NewMemory(&fakeClock{})
	m.Create("scan-1", "p1", domain.ScanPanoramic)
	require.NoError(t, m.Transition("scan-1", domain.StatusQueued, domain.StatusProcessing, domain.Update{}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for p := 1; p <= 99; p++ {
			m.SetProgress("scan-1", p)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := 0
			for i := 0; i < 200; i++ {
				job, err := m.Get("scan-1")
				require.NoError(t, err)
				assert.GreaterOrEqual(t, job.Progress, last)
				last = job.Progress
			}
		}()
	}
	wg.Wait()

	job, _ := m.Get("scan-1")
	assert.Equal(t, 99, job.Progress)
}

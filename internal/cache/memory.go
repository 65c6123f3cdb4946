package cache

import (
	"context"
	"sync"
	"time"

	"github.com/tastyfund/backend/internal/models"
)

type memEntry struct {
	summary models.FundingSummary
	expires time.Time
}

// Memory is a process-local SummaryCache for single-instance deployments.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memEntry
	gens    map[string]int64
}

func NewMemory(ttl time.Duration) *Memory {
	return NewMemoryWithClock(ttl, time.Now)
}

func NewMemoryWithClock(ttl time.Duration, now func() time.Time) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]memEntry),
		gens:    make(map[string]int64),
	}
}

func (m *Memory) Get(_ context.Context, campaignID string) (models.FundingSummary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[campaignID]
	if !ok {
		return models.FundingSummary{}, false
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, campaignID)
		return models.FundingSummary{}, false
	}
	return e.summary, true
}

func (m *Memory) Generation(_ context.Context, campaignID string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[campaignID], true
}

func (m *Memory) SetIfCurrent(_ context.Context, campaignID string, gen int64, s models.FundingSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gens[campaignID] != gen || m.ttl <= 0 {
		return
	}
	m.entries[campaignID] = memEntry{summary: s, expires: m.now().Add(m.ttl)}
}

func (m *Memory) Invalidate(_ context.Context, campaignID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gens[campaignID]++
	delete(m.entries, campaignID)
}

package integration_cache

import (
	"sync"
	"time"

	"github.com/telephony/integration-connector/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type CacheEntry struct {
	Integrations domain.Integrations
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

type CacheEntryView struct {
	Integrations domain.Integrations `json:"integrations"`
	CreatedAt    float64             `json:"created_at"`
	ExpiresAt    float64             `json:"expires_at"`
	AgeSeconds   float64             `json:"age_seconds"`
}

func (e CacheEntry) View(now time.Time) CacheEntryView {
	return CacheEntryView{
		Integrations: e.Integrations,
		CreatedAt:    unixSeconds(e.CreatedAt),
		ExpiresAt:    unixSeconds(e.ExpiresAt),
		AgeSeconds:   now.Sub(e.CreatedAt).Seconds(),
	}
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Store is the tenant -> integrations matrix.  Entries expire after ttl and
// the least recently used ones are evicted beyond maxEntries.  A full
// refresh reloads the matrix under the write lock so readers never see a
// half built one.
type Store struct {
	mu         sync.RWMutex
	entries    *expirable.LRU[domain.TenantID, CacheEntry]
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	// generations is bumped on every Remove so a load that started
	// before an invalidation cannot put its stale result back.
	generationMu sync.Mutex
	generations  map[domain.TenantID]uint64
}

func NewStore(maxEntries int, ttl time.Duration) *Store {
	if maxEntries <= 0 {
		maxEntries = 100000
	}

	return &Store{
		entries:    expirable.NewLRU[domain.TenantID, CacheEntry](maxEntries, nil, ttl),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,

		generations: make(map[domain.TenantID]uint64),
	}
}

func (s *Store) newEntry(integrations domain.Integrations) CacheEntry {
	now := s.now()
	if integrations == nil {
		integrations = make(domain.Integrations)
	}
	return CacheEntry{
		Integrations: integrations,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}
}

func (s *Store) Get(tenant domain.TenantID) (CacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries.Get(tenant)
	if !ok {
		return CacheEntry{}, false
	}

	if !s.now().Before(entry.ExpiresAt) {
		s.entries.Remove(tenant)
		return CacheEntry{}, false
	}

	return entry, true
}

func (s *Store) Add(tenant domain.TenantID, integrations domain.Integrations) CacheEntry {
	entry := s.newEntry(integrations)

	s.mu.RLock()
	s.entries.Add(tenant, entry)
	s.mu.RUnlock()

	return entry
}

// AddIfUnchanged caches integrations only if tenant has not been removed
// since Generation returned generation.
func (s *Store) AddIfUnchanged(tenant domain.TenantID, integrations domain.Integrations, generation uint64) (CacheEntry, bool) {
	entry := s.newEntry(integrations)

	s.generationMu.Lock()
	defer s.generationMu.Unlock()

	if s.generations[tenant] != generation {
		return entry, false
	}

	s.mu.RLock()
	s.entries.Add(tenant, entry)
	s.mu.RUnlock()

	return entry, true
}

func (s *Store) Generation(tenant domain.TenantID) uint64 {
	s.generationMu.Lock()
	defer s.generationMu.Unlock()
	return s.generations[tenant]
}

func (s *Store) Remove(tenant domain.TenantID) bool {
	s.generationMu.Lock()
	defer s.generationMu.Unlock()

	s.generations[tenant]++

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries.Remove(tenant)
}

// Replace swaps the whole matrix in one step.
func (s *Store) Replace(matrix map[domain.TenantID]domain.Integrations) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries.Purge()
	for tenant, integrations := range matrix {
		s.entries.Add(tenant, s.newEntry(integrations))
	}
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries.Len()
}

func (s *Store) Entries() map[domain.TenantID]CacheEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	snapshot := make(map[domain.TenantID]CacheEntry)
	for _, tenant := range s.entries.Keys() {
		if entry, ok := s.entries.Peek(tenant); ok && now.Before(entry.ExpiresAt) {
			snapshot[tenant] = entry
		}
	}

	return snapshot
}

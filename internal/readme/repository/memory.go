package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/readme-readyou/readme-readyou/internal/readme"
)

type recordKey struct {
	identifier string
	mode       readme.Mode
}

// MemoryRepo is an in-memory Store used for unit tests and for running the service
// without MongoDB.
type MemoryRepo struct {
	mu       sync.RWMutex
	records  map[recordKey]*readme.Record
	profiles map[string]*readme.Profile
	now      func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		records:  make(map[recordKey]*readme.Record),
		profiles: make(map[string]*readme.Profile),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryRepo) Find(_ context.Context, identifier string, mode readme.Mode) (*readme.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.records[recordKey{identifier, mode}]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: no %s readme for %q", readme.ErrNotFound, mode, identifier)
}

func (m *MemoryRepo) FindAny(ctx context.Context, identifier string) (*readme.Record, error) {
	if r, err := m.Find(ctx, identifier, readme.ModeStandard); err == nil {
		return r, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var oldest *readme.Record
	for k, r := range m.records {
		if k.identifier != identifier {
			continue
		}
		if oldest == nil || r.CreatedAt.Before(oldest.CreatedAt) {
			oldest = r
		}
	}
	if oldest == nil {
		return nil, fmt.Errorf("%w: no readme for %q", readme.ErrNotFound, identifier)
	}
	cp := *oldest
	return &cp, nil
}

func (m *MemoryRepo) Upsert(_ context.Context, rec *readme.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := recordKey{rec.Identifier, rec.Mode}
	now := m.now()
	cur, ok := m.records[k]
	if !ok {
		cur = &readme.Record{
			ID:         fmt.Sprintf("%s:%s", rec.Identifier, rec.Mode),
			Identifier: rec.Identifier,
			Mode:       rec.Mode,
			CreatedAt:  now,
		}
		m.records[k] = cur
	} else if !now.After(cur.UpdatedAt) {
		// keep UpdatedAt strictly increasing on coarse clocks
		now = cur.UpdatedAt.Add(time.Nanosecond)
	}
	cur.Content = rec.Content
	cur.UpdatedAt = now
	rec.ID, rec.CreatedAt, rec.UpdatedAt = cur.ID, cur.CreatedAt, cur.UpdatedAt
	return nil
}

func (m *MemoryRepo) DefaultMode(_ context.Context, identifier string) (readme.Mode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.profiles[identifier]; ok {
		return p.DefaultMode, nil
	}
	return "", nil
}

func (m *MemoryRepo) SetDefaultMode(_ context.Context, identifier string, mode readme.Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := false
	for k := range m.records {
		if k.identifier == identifier {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: no readme for %q", readme.ErrNotFound, identifier)
	}
	m.profiles[identifier] = &readme.Profile{Identifier: identifier, DefaultMode: mode, UpdatedAt: m.now()}
	return nil
}

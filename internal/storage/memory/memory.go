// Package memory implements an in-memory reading repository for development
// and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"vitalog/internal/metric"
)

// Repo is a mutex-guarded in-memory reading store.
type Repo struct {
	mu       sync.Mutex
	readings map[string]metric.Reading
	now      func() time.Time
}

// Ensure the contract is met.
var _ metric.Repository = (*Repo)(nil)

// New creates an empty in-memory repository.
func New() *Repo {
	return &Repo{
		readings: make(map[string]metric.Reading),
		now:      time.Now,
	}
}

// SetClock overrides the repository clock; tests use it to pin RecordedAt.
func (m *Repo) SetClock(now func() time.Time) {
	m.now = now
}

// Create assigns id and repository timestamps and stores a copy.
func (m *Repo) Create(ctx context.Context, r *metric.Reading) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	r.ID = uuid.NewString()
	r.RecordedAt = now
	r.UpdatedAt = now
	m.readings[r.ID] = cloneReading(*r)
	return r.ID, nil
}

// ListByOwner returns the owner's readings for one family, newest first
// unless ascending is requested.
func (m *Repo) ListByOwner(ctx context.Context, ownerID string, family metric.Family, f metric.ListFilter) ([]metric.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []metric.Reading
	for _, r := range m.readings {
		if r.OwnerID != ownerID || r.Family != family {
			continue
		}
		if f.Subtype != metric.SubtypeNone && r.Subtype != f.Subtype {
			continue
		}
		if !f.From.IsZero() && r.CapturedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && r.CapturedAt.After(f.To) {
			continue
		}
		out = append(out, cloneReading(r))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if f.Ascending {
			return out[i].CapturedAt.Before(out[j].CapturedAt)
		}
		return out[i].CapturedAt.After(out[j].CapturedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// UpdateOne replaces all mutable fields of the reading owned by ownerID in
// r's family.
func (m *Repo) UpdateOne(ctx context.Context, id, ownerID string, r *metric.Reading) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.readings[id]
	if !ok || existing.OwnerID != ownerID || existing.Family != r.Family {
		return false, nil
	}

	updated := cloneReading(*r)
	updated.ID = existing.ID
	updated.OwnerID = existing.OwnerID
	updated.Family = existing.Family
	updated.RecordedAt = existing.RecordedAt
	updated.UpdatedAt = m.now().UTC()
	m.readings[id] = updated

	*r = cloneReading(updated)
	return true, nil
}

// DeleteOne removes the reading owned by ownerID in the given family.
func (m *Repo) DeleteOne(ctx context.Context, id, ownerID string, family metric.Family) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.readings[id]
	if !ok || existing.OwnerID != ownerID || existing.Family != family {
		return false, nil
	}
	delete(m.readings, id)
	return true, nil
}

func cloneReading(r metric.Reading) metric.Reading {
	values := make(map[metric.Field]float64, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	r.Values = values
	return r
}

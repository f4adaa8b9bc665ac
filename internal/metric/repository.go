package metric

import (
	"context"
	"time"
)

// ListFilter narrows a ListByOwner query. Zero values mean "no constraint".
// From is an inclusive lower bound on CapturedAt; To an inclusive upper bound.
type ListFilter struct {
	Subtype   Subtype
	From      time.Time
	To        time.Time
	Limit     int
	Ascending bool
}

// Repository is the storage contract the engine requires. Every operation is
// owner- and family-scoped: implementations must conjoin both into each query
// so that a reading belonging to another owner, or stored under another
// family, can neither be returned nor mutated.
//
// UpdateOne and DeleteOne report matched=false — not an error — when no
// reading with that id belongs to that owner under that family; callers
// surface this uniformly as not-found.
type Repository interface {
	// Create assigns ID, RecordedAt and UpdatedAt, then persists the reading.
	Create(ctx context.Context, r *Reading) (string, error)

	// ListByOwner returns readings sorted by CapturedAt descending unless
	// the filter requests ascending.
	ListByOwner(ctx context.Context, ownerID string, family Family, f ListFilter) ([]Reading, error)

	// UpdateOne replaces all mutable fields and refreshes UpdatedAt. The
	// match is scoped to r.Family.
	UpdateOne(ctx context.Context, id, ownerID string, r *Reading) (bool, error)

	// DeleteOne removes the reading owned by ownerID with the given id in
	// the given family.
	DeleteOne(ctx context.Context, id, ownerID string, family Family) (bool, error)
}

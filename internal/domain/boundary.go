package domain

import "context"

// BoundaryResolver looks up the outline of a region by name.
type BoundaryResolver interface {
	// Boundary returns the region's outline. A nil boundary with a nil error
	// means the provider knows no such region.
	Boundary(ctx context.Context, region string) (*Boundary, error)
}

// DefaultExcludedRegions are left off the choropleth: the two non-contiguous
// states and the island territory.
var DefaultExcludedRegions = []string{"Alaska", "Hawaii", "Puerto Rico", "AK", "HI", "PR"}

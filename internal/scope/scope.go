// Package scope decides which regions a run visits.
package scope

import (
	"context"

	"github.com/yairfalse/inventa/internal/errsink"
)

// RegionLister lists the regions enabled for an account.
type RegionLister interface {
	ListRegions(ctx context.Context) ([]string, error)
}

// Request selects regions either explicitly or by discovery.
type Request struct {
	Explicit []string
	Discover bool
}

// Regions expands req into an ordered region list. Explicit regions are
// returned as given, duplicates included. Discovery asks anchor once.
// Errors are always *errsink.ScopeError and end the run.
func Regions(ctx context.Context, req Request, anchor RegionLister) ([]string, error) {
	if !req.Discover {
		if len(req.Explicit) == 0 {
			return nil, &errsink.ScopeError{Reason: "no regions given and discovery not requested"}
		}
		out := make([]string, len(req.Explicit))
		copy(out, req.Explicit)
		return out, nil
	}

	if anchor == nil {
		return nil, &errsink.ScopeError{Reason: "region discovery requested but no usable session"}
	}

	regions, err := anchor.ListRegions(ctx)
	if err != nil {
		return nil, &errsink.ScopeError{Reason: "describe regions", Err: err}
	}
	if len(regions) == 0 {
		return nil, &errsink.ScopeError{Reason: "region discovery returned no regions"}
	}
	return regions, nil
}

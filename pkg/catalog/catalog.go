// Package catalog discovers source granules from an external metadata service.
//
// Discovery yields a deduplicated candidate list, sorted by temporal
// coverage ascending, truncated to the requested limit. The catalog does not
// retry on its own: retry policy belongs to the invocation wrapper.
package catalog

import (
	"context"
	"time"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/model"
)

// Catalog knows how to discover candidate granules newer than a given instant
type Catalog interface {
	// Discover returns granules whose temporal coverage starts strictly
	// after the given instant. When limit is > 0, at most limit granules
	// are returned.
	Discover(ctx context.Context, after time.Time, limit int) (model.GranuleDescriptors, error)
}

// GranuleFilter decides the eligibility of a discovered granule, e.g. to
// restrict discovery to final processing versions of a collection
type GranuleFilter func(model.GranuleDescriptor) bool

// prepare normalizes raw discovery results: drop granules whose coverage does
// not start strictly after the cutoff, filter, dedupe, sort, truncate.
//
// The cutoff check is client-side on purpose: the catalog query keys on update
// time, and a reprocessed granule may carry a late update time over old
// temporal coverage. The input slice is left untouched so callers may prepare
// incrementally while paging.
func prepare(raw model.GranuleDescriptors, after time.Time, filter GranuleFilter, limit int) model.GranuleDescriptors {
	granules := make(model.GranuleDescriptors, 0, len(raw))
	for _, g := range raw {
		if !g.TimeStart.After(after) {
			continue
		}
		if filter != nil && !filter(g) {
			continue
		}
		granules = append(granules, g)
	}
	granules = granules.Dedupe()
	if limit > 0 && len(granules) > limit {
		granules = granules[:limit]
	}
	return granules
}

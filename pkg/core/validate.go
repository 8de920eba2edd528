package core

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/model"
)

// validate checks built candidates against the session tip, in discovery
// order.
//
// Acceptance is a prefix operation: candidates are accepted until the first
// schema or ordering rejection; the rejected candidate and everything after
// it are deferred to a future invocation. This preserves append
// contiguity without out-of-order insertion, and lets a transiently bad
// granule unblock itself on a later run.
func (u *Updater) validate(tip *model.CommitDescriptor, built []model.GranuleRefs) (accepted []model.GranuleRefs, skipped []model.SkipRecord) {
	lastTime := tip.MaxTime

	for i, g := range built {
		if mismatches := tip.Schema.Diff(g.Schema); len(mismatches) > 0 {
			u.l.Warn("schema mismatch, deferring granule and the rest of the batch",
				zap.String("granule_id", g.Granule.ID),
				zap.Strings("fields", mismatches))
			skipped = append(skipped, model.SkipRecord{
				ID:     g.Granule.ID,
				Reason: model.SkipSchema,
				Detail: strings.Join(mismatches, "; "),
			})
			skipped = append(skipped, deferRest(built[i+1:])...)
			return accepted, skipped
		}

		min := g.MinTime()
		if !min.After(lastTime) {
			u.l.Warn("ordering violation, deferring granule and the rest of the batch",
				zap.String("granule_id", g.Granule.ID),
				zap.Time("min_coord", min),
				zap.Time("tip_max", lastTime))
			skipped = append(skipped, model.SkipRecord{
				ID:     g.Granule.ID,
				Reason: model.SkipOrdering,
				Detail: "min append coordinate " + min.Format(time.RFC3339) + " not after " + lastTime.Format(time.RFC3339),
			})
			skipped = append(skipped, deferRest(built[i+1:])...)
			return accepted, skipped
		}

		accepted = append(accepted, g)
		lastTime = g.MaxTime()
	}
	return accepted, skipped
}

func deferRest(rest []model.GranuleRefs) []model.SkipRecord {
	out := make([]model.SkipRecord, 0, len(rest))
	for _, g := range rest {
		out = append(out, model.SkipRecord{
			ID:     g.Granule.ID,
			Reason: model.SkipDeferred,
			Detail: "an earlier granule in the batch was rejected",
		})
	}
	return out
}

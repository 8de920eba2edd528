// Package core implements the append pipeline: discovery, reference
// construction, validation, staged transaction, optional verification and
// commit with conflict handling.
//
// A run is a single sequential control flow. The only serialization point
// with concurrent runs is the optimistic commit of the reference store: a
// lost race re-validates against the new tip before retrying, within a
// bounded number of attempts.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	units "github.com/docker/go-units"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/auth"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/builder"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/catalog"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/core/status"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/dlogger"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/errors"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/model"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/vstore"
	vstatus "github.com/developmentseed/mursst-icechunk-updater/pkg/vstore/status"
)

// run states, for observability only: the externally visible outcomes are
// the returned summary and error
const (
	stateDiscovering = "discovering"
	stateBuilding    = "building"
	stateValidating  = "validating"
	stateStaged      = "staged"
	stateVerifying   = "verifying"
	stateCommitting  = "committing"
	stateCommitted   = "committed"
	stateDiscarded   = "discarded"
	stateFailed      = "failed"
)

// DefaultBranch is the branch appended to when none is configured
const DefaultBranch = "main"

// Updater runs the append pipeline on a branch
type Updater struct {
	branch   string
	catalog  catalog.Catalog
	headers  builder.HeaderReader
	repo     *vstore.Repository
	resolver builder.Resolver
	creds    auth.Provider
	settings Settings
	l        *zap.Logger
}

// New builds an updater with some options
func New(opts ...Option) *Updater {
	u := &Updater{
		branch:   DefaultBranch,
		settings: defaultSettings(),
		l:        dlogger.MustGetLogger(dlogger.LogLevelInfo),
	}
	for _, apply := range opts {
		apply(u)
	}
	return u
}

// Run executes one invocation of the append pipeline.
//
// It always terminates with a summary, possibly reporting zero change, or a
// classified error. In every failure mode the branch pointer is unchanged:
// atomicity is scoped to the commit call, not the invocation.
func (u *Updater) Run(ctx context.Context) (model.RunSummary, error) {
	summary := model.RunSummary{
		RunID:  ksuid.New().String(),
		Branch: u.branch,
		DryRun: u.settings.DryRun,
	}
	logger := u.l.With(zap.String("run_id", summary.RunID), zap.String("branch", u.branch))

	// pure read: schema and tip coverage, no write access needed yet
	tip, err := u.repo.Tip(ctx, u.branch)
	if err != nil {
		return summary, err
	}

	logger.Info("run state", zap.String("state", stateDiscovering), zap.Time("after", tip.MaxTime))
	granules, err := u.catalog.Discover(ctx, tip.MaxTime, u.settings.LimitGranules)
	if err != nil {
		return summary, err
	}
	summary.GranulesConsidered = len(granules)
	if len(granules) == 0 {
		logger.Info("no new granule available, nothing to append")
		return summary, nil
	}

	logger.Info("run state", zap.String("state", stateBuilding), zap.Int("num_granules", len(granules)))
	b := builder.New(u.headers,
		builder.ConcurrentFetches(u.settings.ConcurrentFetches),
		builder.Logger(logger),
	)
	built, unreadable := b.Build(ctx, granules)
	summary.GranulesSkipped = append(summary.GranulesSkipped, unreadable...)
	if len(built) == 0 {
		logger.Warn("no readable granule in batch")
		return summary, nil
	}

	return u.commitLoop(ctx, logger, summary, built)
}

// commitLoop validates, stages, verifies and commits, re-validating against
// the new tip after every lost commit race, with exponential backoff between
// bounded attempts.
func (u *Updater) commitLoop(ctx context.Context, logger *zap.Logger, summary model.RunSummary, built []model.GranuleRefs) (model.RunSummary, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = u.settings.RetryInterval

	var lastConflict error
	for attempt := 1; attempt <= u.settings.MaxCommitAttempts; attempt++ {
		summary.CommitAttempts = attempt

		session, err := u.repo.Open(ctx, u.branch)
		if err != nil {
			return summary, err
		}

		logger.Info("run state", zap.String("state", stateValidating),
			zap.Int("attempt", attempt), zap.String("tip", session.Tip().ID))
		accepted, skipped := u.validate(session.Tip(), built)
		mergedSkips := append(append([]model.SkipRecord{}, summary.GranulesSkipped...), skipped...)

		if len(accepted) == 0 {
			logger.Info("no valid granule prefix, nothing to append",
				zap.Int("deferred", len(skipped)))
			summary.GranulesSkipped = mergedSkips
			return summary, nil
		}

		staged, err := session.Stage(accepted)
		if err != nil {
			logger.Error("run state", zap.String("state", stateFailed), zap.Error(err))
			return summary, err
		}
		logger.Info("run state", zap.String("state", stateStaged),
			zap.Int("num_refs", len(staged.Refs())),
			zap.String("bytes_referenced", units.BytesSize(float64(staged.BytesReferenced()))))

		if u.settings.RunTests {
			logger.Info("run state", zap.String("state", stateVerifying))
			if err := u.verify(ctx, staged, accepted); err != nil {
				logger.Error("run state", zap.String("state", stateDiscarded), zap.Error(err))
				return summary, err
			}
		}

		appended := make([]string, len(staged.Granules()))
		copy(appended, staged.Granules())

		if u.settings.DryRun {
			logger.Info("run state", zap.String("state", stateDiscarded),
				zap.Int("would_append", len(appended)))
			summary.GranulesAppended = appended
			summary.GranulesSkipped = mergedSkips
			summary.BytesReferenced = staged.BytesReferenced()
			return summary, nil
		}

		// make sure write credentials are fresh before the commit call;
		// the refreshing provider renews expired ones transparently
		if u.creds != nil {
			if _, err := u.creds.Credentials(ctx); err != nil {
				return summary, err
			}
		}

		logger.Info("run state", zap.String("state", stateCommitting))
		commitID, err := session.Commit(ctx, staged, commitMessage(summary.RunID, appended))
		if err != nil {
			if errors.Is(err, vstatus.ErrCommitConflict) {
				lastConflict = err
				wait := bo.NextBackOff()
				logger.Warn("commit conflict, re-validating against new tip",
					zap.Int("attempt", attempt), zap.Duration("backoff", wait))
				select {
				case <-ctx.Done():
					return summary, status.ErrInterrupted.Wrap(ctx.Err())
				case <-time.After(wait):
				}
				continue
			}
			logger.Error("run state", zap.String("state", stateFailed), zap.Error(err))
			return summary, err
		}

		logger.Info("run state", zap.String("state", stateCommitted), zap.String("commit", commitID))
		summary.GranulesAppended = appended
		summary.GranulesSkipped = mergedSkips
		summary.NewCommitID = commitID
		summary.BytesReferenced = staged.BytesReferenced()
		return summary, nil
	}

	return summary, status.ErrCommitGivenUp.Wrap(lastConflict)
}

func commitMessage(runID string, appended []string) string {
	if len(appended) == 1 {
		return fmt.Sprintf("append %s (run %s)", appended[0], runID)
	}
	return fmt.Sprintf("append %d granules %s..%s (run %s)",
		len(appended), appended[0], appended[len(appended)-1], runID)
}

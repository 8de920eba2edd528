// Package vstore persists the versioned reference dataset: immutable
// commits with chunk reference manifests, and branch pointers which only
// ever advance to a descendant commit.
//
// The store relies on a plain K/V object store. Optimistic concurrency is
// obtained from exclusive creates: for every (branch, parent commit) pair a
// single guard object can be created, so at most one commit per parent
// succeeds; all other writers observe a conflict.
package vstore

import (
	"bytes"
	"context"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/dlogger"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/errors"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/model"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/storage"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/vstore/status"
)

// entriesPerManifest bounds the size of a single manifest file
const entriesPerManifest = 1000

// Repository gives access to the versioned dataset metadata
type Repository struct {
	meta storage.Store
	l    *zap.Logger
}

// Option is a functor to build a repository with some options
type Option func(*Repository)

// Logger injects a logging facility into repository operations
func Logger(l *zap.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.l = l
		}
	}
}

// New builds a repository on a metadata store
func New(meta storage.Store, opts ...Option) *Repository {
	r := &Repository{
		meta: meta,
		l:    dlogger.MustGetLogger(dlogger.LogLevelInfo),
	}
	for _, apply := range opts {
		apply(r)
	}
	return r
}

// Init creates a root commit holding the dataset schema and points a new
// branch at it. Intended for bootstrap and tests: regular runs only ever
// append to an existing branch.
func (r *Repository) Init(ctx context.Context, branch string, schema model.ArraySchema, message string) (*model.CommitDescriptor, error) {
	exists, err := r.meta.Has(ctx, model.GetPathToBranch(branch))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, storage.ErrExists
	}

	commit := &model.CommitDescriptor{
		ID:        ksuid.New().String(),
		Message:   message,
		Timestamp: model.GetCommitTimeStamp(),
		Schema:    schema,
	}
	if err := r.putCommit(ctx, commit); err != nil {
		return nil, err
	}
	if err := r.putBranch(ctx, branch, commit.ID); err != nil {
		return nil, err
	}
	r.l.Info("initialized branch", zap.String("branch", branch), zap.String("commit", commit.ID))
	return commit, nil
}

// Tip resolves the current tip of a branch. This is a pure read: no
// credentials for source data and no write access are needed.
func (r *Repository) Tip(ctx context.Context, branch string) (*model.CommitDescriptor, error) {
	buf, err := storage.ReadObject(ctx, r.meta, model.GetPathToBranch(branch))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, status.ErrBranchNotFound.WrapMessage("branch %q", branch)
		}
		return nil, err
	}
	desc, err := model.UnmarshalBranch(buf)
	if err != nil {
		return nil, err
	}
	return r.GetCommit(ctx, desc.CommitID)
}

// GetCommit fetches a commit descriptor by id
func (r *Repository) GetCommit(ctx context.Context, commitID string) (*model.CommitDescriptor, error) {
	buf, err := storage.ReadObject(ctx, r.meta, model.GetPathToCommit(commitID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, status.ErrCommitNotFound.WrapMessage("commit %q", commitID)
		}
		return nil, err
	}
	return model.UnmarshalCommit(buf)
}

// ListCommits walks the parent chain from the branch tip, most recent first,
// up to limit commits (limit <= 0 walks the full history)
func (r *Repository) ListCommits(ctx context.Context, branch string, limit int) ([]*model.CommitDescriptor, error) {
	tip, err := r.Tip(ctx, branch)
	if err != nil {
		return nil, err
	}
	var out []*model.CommitDescriptor
	for c := tip; ; {
		out = append(out, c)
		if c.Parent == "" || (limit > 0 && len(out) == limit) {
			break
		}
		c, err = r.GetCommit(ctx, c.Parent)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Manifests fetches all chunk references of a commit, in key order
func (r *Repository) Manifests(ctx context.Context, commit *model.CommitDescriptor) ([]model.ChunkRef, error) {
	refs := make([]model.ChunkRef, 0, commit.NumRefs)
	for i := 0; i < commit.Manifests; i++ {
		buf, err := storage.ReadObject(ctx, r.meta, model.GetPathToManifest(commit.ID, i))
		if err != nil {
			return nil, err
		}
		m, err := model.UnmarshalManifest(buf)
		if err != nil {
			return nil, err
		}
		refs = append(refs, m.Entries...)
	}
	return refs, nil
}

// Open binds a write session to the current branch tip. A session observes
// one immutable parent; the commit only succeeds if the branch still points
// there when it lands.
//
// Open also completes a commit interrupted between guard creation and
// pointer advance: the guard winner is unique, so rolling the pointer
// forward is safe.
func (r *Repository) Open(ctx context.Context, branch string) (*Session, error) {
	tip, err := r.Tip(ctx, branch)
	if err != nil {
		return nil, err
	}

	recovered, err := r.recoverDanglingGuard(ctx, branch, tip)
	if err != nil {
		return nil, err
	}
	if recovered != nil {
		tip = recovered
	}

	return &Session{
		repo:   r,
		branch: branch,
		tip:    tip,
		l:      r.l.With(zap.String("branch", branch), zap.String("tip", tip.ID)),
	}, nil
}

func (r *Repository) recoverDanglingGuard(ctx context.Context, branch string, tip *model.CommitDescriptor) (*model.CommitDescriptor, error) {
	guard := model.GetPathToCommitGuard(branch, tip.ID)
	has, err := r.meta.Has(ctx, guard)
	if err != nil || !has {
		return nil, err
	}
	buf, err := storage.ReadObject(ctx, r.meta, guard)
	if err != nil {
		return nil, err
	}
	winner := string(bytes.TrimSpace(buf))
	commit, err := r.GetCommit(ctx, winner)
	if err != nil {
		// guard written but commit metadata incomplete: nothing to roll forward
		r.l.Warn("dangling commit guard without a complete commit",
			zap.String("branch", branch), zap.String("guard_commit", winner))
		return nil, nil
	}
	if commit.Parent != tip.ID {
		return nil, nil
	}
	if err := r.putBranch(ctx, branch, commit.ID); err != nil {
		return nil, err
	}
	r.l.Info("completed interrupted commit",
		zap.String("branch", branch), zap.String("commit", commit.ID))
	return commit, nil
}

func (r *Repository) putCommit(ctx context.Context, commit *model.CommitDescriptor) error {
	buf, err := model.MarshalCommit(commit)
	if err != nil {
		return err
	}
	return r.meta.Put(ctx, model.GetPathToCommit(commit.ID), bytes.NewReader(buf), storage.NoOverWrite)
}

func (r *Repository) putBranch(ctx context.Context, branch, commitID string) error {
	desc := &model.BranchDescriptor{
		Name:      branch,
		CommitID:  commitID,
		Timestamp: model.GetCommitTimeStamp(),
	}
	buf, err := model.MarshalBranch(desc)
	if err != nil {
		return err
	}
	return r.meta.Put(ctx, model.GetPathToBranch(branch), bytes.NewReader(buf), storage.OverWrite)
}

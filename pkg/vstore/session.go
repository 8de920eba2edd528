package vstore

import (
	"bytes"
	"context"
	"strings"
	"time"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/errors"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/model"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/storage"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/vstore/status"
)

// Session is a write session bound to the branch tip observed at open time
type Session struct {
	repo   *Repository
	branch string
	tip    *model.CommitDescriptor
	l      *zap.Logger
}

// Tip yields the parent commit this session is rooted on
func (s *Session) Tip() *model.CommitDescriptor {
	return s.tip
}

// Branch yields the branch this session writes to
func (s *Session) Branch() string {
	return s.branch
}

// Staged is a purely in-memory working snapshot: the accepted references
// merged on top of the session tip. It never touches the branch pointer.
type Staged struct {
	parent      *model.CommitDescriptor
	refs        []model.ChunkRef // rebased, in key order
	granules    []string
	timeCoords  []time.Time
	chunksAdded int64
	bytesRefd   int64
}

// Parent yields the commit the stage is rooted on
func (st *Staged) Parent() *model.CommitDescriptor { return st.parent }

// Refs yields the staged references in key order
func (st *Staged) Refs() []model.ChunkRef { return st.refs }

// Granules yields the ids of granules staged, in append order
func (st *Staged) Granules() []string { return st.granules }

// TimeCoords yields the staged append coordinates in append order
func (st *Staged) TimeCoords() []time.Time { return st.timeCoords }

// Schema yields the schema of the staged snapshot, which is the parent
// schema: appends never alter it
func (st *Staged) Schema() *model.ArraySchema { return &st.parent.Schema }

// BytesReferenced yields the total payload bytes referenced by the stage
func (st *Staged) BytesReferenced() int64 { return st.bytesRefd }

// Stage merges the accepted granule references into a working snapshot
// rooted at the session tip.
//
// This is a defensive re-check, independent from upstream validation: the
// accepted set taken together must keep append chunks contiguous and
// non-overlapping, and append coordinates strictly increasing past the tip.
// Any violation refuses the whole batch and nothing is persisted.
func (s *Session) Stage(accepted []model.GranuleRefs) (*Staged, error) {
	if len(accepted) == 0 {
		return nil, status.ErrEmptyStage
	}

	axis := s.tip.Schema.AppendAxis()
	if axis < 0 {
		return nil, status.ErrStagingViolation.WrapMessage("schema has no append dimension")
	}

	// committed chunk keys are owned by ancestor commits: the merge index
	// starts empty and only staged keys may collide with each other, since
	// rebasing places every staged chunk past the committed extent
	index := iradix.New()
	st := &Staged{parent: s.tip}

	offset := s.tip.AppendChunks
	lastTime := s.tip.MaxTime

	for _, g := range accepted {
		extent, err := localAppendExtent(g.Refs, axis)
		if err != nil {
			return nil, status.ErrStagingViolation.WrapMessage("granule %s: %v", g.Granule.ID, err)
		}

		for _, t := range g.TimeCoords {
			if !t.After(lastTime) {
				return nil, status.ErrStagingViolation.WrapMessage(
					"granule %s: append coordinate %s does not increase past %s",
					g.Granule.ID, t.Format(time.RFC3339), lastTime.Format(time.RFC3339))
			}
			lastTime = t
			st.timeCoords = append(st.timeCoords, t)
		}

		for _, ref := range g.Refs {
			rebased := ref.Rebased(axis, offset)
			key := []byte(rebased.Key())
			var found bool
			index, _, found = index.Insert(key, rebased)
			if found {
				return nil, status.ErrStagingViolation.WrapMessage(
					"granule %s: chunk %s overlaps an already staged chunk",
					g.Granule.ID, rebased.Key())
			}
			st.bytesRefd += rebased.Length
		}

		offset += extent
		st.chunksAdded += extent
		st.granules = append(st.granules, g.Granule.ID)
	}

	// dump the merged index in key order
	st.refs = make([]model.ChunkRef, 0, index.Len())
	iterator := index.Root().Iterator()
	for _, obj, ok := iterator.Next(); ok; _, obj, ok = iterator.Next() {
		st.refs = append(st.refs, obj.(model.ChunkRef))
	}

	s.l.Info("staged references",
		zap.Int("num_granules", len(st.granules)),
		zap.Int("num_refs", len(st.refs)),
		zap.Int64("append_chunks_added", st.chunksAdded))
	return st, nil
}

// localAppendExtent verifies that a granule's own chunk indices along the
// append axis form a contiguous run starting at zero, and returns its length
func localAppendExtent(refs []model.ChunkRef, axis int) (int64, error) {
	seen := make(map[int64]struct{})
	var max int64 = -1
	for _, ref := range refs {
		if axis >= len(ref.Coord) {
			return 0, status.ErrStagingViolation.WrapMessage("chunk %s has no append axis coordinate", ref.Key())
		}
		ix := ref.Coord[axis]
		if ix < 0 {
			return 0, status.ErrStagingViolation.WrapMessage("chunk %s has a negative append index", ref.Key())
		}
		seen[ix] = struct{}{}
		if ix > max {
			max = ix
		}
	}
	if int64(len(seen)) != max+1 {
		return 0, status.ErrStagingViolation.WrapMessage("append indices are not contiguous from zero")
	}
	return max + 1, nil
}

// Commit persists the staged snapshot and attempts to advance the branch
// pointer, conditionally on the tip being unchanged since the session was
// opened. A lost race surfaces as status.ErrCommitConflict and leaves the
// branch untouched.
func (s *Session) Commit(ctx context.Context, staged *Staged, message string) (string, error) {
	if staged == nil || len(staged.refs) == 0 {
		return "", status.ErrEmptyStage
	}

	commit := &model.CommitDescriptor{
		ID:           ksuid.New().String(),
		Parent:       s.tip.ID,
		Message:      message,
		Timestamp:    model.GetCommitTimeStamp(),
		Schema:       s.tip.Schema,
		AppendChunks: s.tip.AppendChunks + staged.chunksAdded,
		MaxTime:      staged.timeCoords[len(staged.timeCoords)-1],
		NumRefs:      int64(len(staged.refs)),
		Granules:     staged.granules,
		BytesRefd:    s.tip.BytesRefd + staged.bytesRefd,
	}
	// the append dimension is the only one allowed to grow; copy dimensions
	// so the in-memory tip is left untouched
	dims := make([]model.Dimension, len(s.tip.Schema.Dimensions))
	copy(dims, s.tip.Schema.Dimensions)
	commit.Schema.Dimensions = dims
	axis := commit.Schema.AppendAxis()
	commit.Schema.Dimensions[axis].Size += int64(len(staged.timeCoords))

	// immutable metadata first: unreferenced objects from a lost race are
	// harmless garbage
	for i := 0; i*entriesPerManifest < len(staged.refs); i++ {
		hi := (i + 1) * entriesPerManifest
		if hi > len(staged.refs) {
			hi = len(staged.refs)
		}
		m := &model.ManifestEntries{Entries: staged.refs[i*entriesPerManifest : hi]}
		buf, err := model.MarshalManifest(m)
		if err != nil {
			return "", err
		}
		if err := s.repo.meta.Put(ctx, model.GetPathToManifest(commit.ID, i), bytes.NewReader(buf), storage.NoOverWrite); err != nil {
			return "", err
		}
		commit.Manifests++
	}
	if err := s.repo.putCommit(ctx, commit); err != nil {
		return "", err
	}

	// serialization point: a single guard per (branch, parent) can ever be
	// created, so at most one commit succeeds on this parent
	guard := model.GetPathToCommitGuard(s.branch, s.tip.ID)
	err := s.repo.meta.Put(ctx, guard, strings.NewReader(commit.ID), storage.NoOverWrite)
	if err != nil {
		if isExists(err) {
			s.l.Info("lost commit race", zap.String("parent", s.tip.ID))
			return "", status.ErrCommitConflict.WrapMessage("parent %s already committed on", s.tip.ID)
		}
		return "", err
	}

	if err := s.repo.putBranch(ctx, s.branch, commit.ID); err != nil {
		return "", err
	}

	s.l.Info("commit successful",
		zap.String("commit", commit.ID),
		zap.Int64("num_refs", commit.NumRefs),
		zap.Time("max_time", commit.MaxTime))
	return commit.ID, nil
}

func isExists(err error) bool {
	return errors.Is(err, storage.ErrExists)
}

package vstore

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/dlogger"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/model"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/storage"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/storage/localfs"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/vstore/status"
)

var epoch = time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

func testSchema() model.ArraySchema {
	return model.ArraySchema{
		Version: model.CurrentSchemaVersion,
		Dimensions: []model.Dimension{
			{Name: "time", Size: 0, Chunk: 1},
			{Name: "lat", Size: 100, Chunk: 50},
			{Name: "lon", Size: 200, Chunk: 100},
		},
		AppendDim:   "time",
		ElementType: "int16",
		FillValue:   "-32768",
	}
}

func testRepo(t *testing.T) (*Repository, storage.Store) {
	t.Helper()
	meta := localfs.New(afero.NewMemMapFs())
	return New(meta, Logger(dlogger.MustGetLogger(dlogger.LogLevelNone))), meta
}

// granuleRefs builds a one-timestep granule: 2 lat x 2 lon chunks of the main
// variable, local append index zero
func granuleRefs(id string, at time.Time) model.GranuleRefs {
	uri := "s3://podaac/" + id + ".nc"
	refs := make([]model.ChunkRef, 0, 4)
	for lat := int64(0); lat < 2; lat++ {
		for lon := int64(0); lon < 2; lon++ {
			refs = append(refs, model.ChunkRef{
				Variable: "analysed_sst",
				Coord:    []int64{0, lat, lon},
				URI:      uri,
				Offset:   (lat*2 + lon) * 512,
				Length:   512,
			})
		}
	}
	return model.GranuleRefs{
		Granule:    model.GranuleDescriptor{ID: id, TimeStart: at, SourceURI: uri},
		Refs:       refs,
		TimeCoords: []time.Time{at},
	}
}

func TestInitAndTip(t *testing.T) {
	ctx := context.Background()
	repo, _ := testRepo(t)

	root, err := repo.Init(ctx, "main", testSchema(), "initial dataset")
	require.NoError(t, err)
	require.NotEmpty(t, root.ID)
	assert.Empty(t, root.Parent)

	tip, err := repo.Tip(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, root.ID, tip.ID)
	assert.Equal(t, int64(0), tip.AppendChunks)

	// a branch can only be initialized once
	_, err = repo.Init(ctx, "main", testSchema(), "again")
	require.ErrorIs(t, err, storage.ErrExists)
}

func TestTipUnknownBranch(t *testing.T) {
	repo, _ := testRepo(t)
	_, err := repo.Tip(context.Background(), "nosuchbranch")
	require.ErrorIs(t, err, status.ErrBranchNotFound)
}

func TestGetCommitUnknown(t *testing.T) {
	repo, _ := testRepo(t)
	_, err := repo.GetCommit(context.Background(), "nosuchcommit")
	require.ErrorIs(t, err, status.ErrCommitNotFound)
}

func TestStageAndCommit(t *testing.T) {
	ctx := context.Background()
	repo, _ := testRepo(t)

	root, err := repo.Init(ctx, "main", testSchema(), "initial dataset")
	require.NoError(t, err)

	session, err := repo.Open(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, root.ID, session.Tip().ID)
	assert.Equal(t, "main", session.Branch())

	accepted := []model.GranuleRefs{
		granuleRefs("g1", epoch),
		granuleRefs("g2", epoch.Add(24*time.Hour)),
	}
	staged, err := session.Stage(accepted)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, staged.Granules())
	assert.Len(t, staged.Refs(), 8)
	assert.Equal(t, int64(8*512), staged.BytesReferenced())

	commitID, err := session.Commit(ctx, staged, "append 2 granules")
	require.NoError(t, err)
	require.NotEmpty(t, commitID)

	tip, err := repo.Tip(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, commitID, tip.ID)
	assert.Equal(t, root.ID, tip.Parent)
	assert.Equal(t, int64(2), tip.AppendChunks)
	assert.Equal(t, int64(8), tip.NumRefs)
	assert.True(t, tip.MaxTime.Equal(epoch.Add(24*time.Hour)))
	assert.Equal(t, []string{"g1", "g2"}, tip.Granules)

	// only the append dimension grew
	assert.Equal(t, int64(2), tip.Schema.Dimensions[0].Size)
	assert.Equal(t, int64(100), tip.Schema.Dimensions[1].Size)

	// the in-memory parent observed by the session is untouched
	assert.Equal(t, int64(0), session.Tip().Schema.Dimensions[0].Size)

	// manifests hold the rebased references in key order
	refs, err := repo.Manifests(ctx, tip)
	require.NoError(t, err)
	require.Len(t, refs, 8)
	assert.Equal(t, []int64{0, 0, 0}, refs[0].Coord)
	assert.Equal(t, []int64{1, 1, 1}, refs[7].Coord)
	for i := 1; i < len(refs); i++ {
		assert.Less(t, refs[i-1].Key(), refs[i].Key())
	}
}

func TestCommitChains(t *testing.T) {
	ctx := context.Background()
	repo, _ := testRepo(t)

	root, err := repo.Init(ctx, "main", testSchema(), "initial dataset")
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 3; i++ {
		session, err := repo.Open(ctx, "main")
		require.NoError(t, err)
		staged, err := session.Stage([]model.GranuleRefs{
			granuleRefs(fmt.Sprintf("g%d", i), epoch.Add(time.Duration(i)*24*time.Hour)),
		})
		require.NoError(t, err)
		id, err := session.Commit(ctx, staged, fmt.Sprintf("append g%d", i))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	tip, err := repo.Tip(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, int64(3), tip.AppendChunks)
	assert.Equal(t, int64(3), tip.Schema.Dimensions[0].Size)

	// rebasing continued from the committed extent
	refs, err := repo.Manifests(ctx, tip)
	require.NoError(t, err)
	require.Len(t, refs, 4)
	assert.Equal(t, []int64{2, 0, 0}, refs[0].Coord)

	// most recent first, down to the root
	commits, err := repo.ListCommits(ctx, "main", 0)
	require.NoError(t, err)
	require.Len(t, commits, 4)
	assert.Equal(t, ids[2], commits[0].ID)
	assert.Equal(t, ids[1], commits[1].ID)
	assert.Equal(t, ids[0], commits[2].ID)
	assert.Equal(t, root.ID, commits[3].ID)

	limited, err := repo.ListCommits(ctx, "main", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestStageViolations(t *testing.T) {
	ctx := context.Background()
	repo, _ := testRepo(t)
	_, err := repo.Init(ctx, "main", testSchema(), "initial dataset")
	require.NoError(t, err)

	session, err := repo.Open(ctx, "main")
	require.NoError(t, err)

	t.Run("empty stage", func(t *testing.T) {
		_, err := session.Stage(nil)
		require.ErrorIs(t, err, status.ErrEmptyStage)
	})

	t.Run("time does not increase", func(t *testing.T) {
		_, err := session.Stage([]model.GranuleRefs{
			granuleRefs("g2", epoch.Add(24*time.Hour)),
			granuleRefs("g1", epoch), // goes backwards
		})
		require.ErrorIs(t, err, status.ErrStagingViolation)
	})

	t.Run("duplicate time coordinate", func(t *testing.T) {
		_, err := session.Stage([]model.GranuleRefs{
			granuleRefs("g1", epoch),
			granuleRefs("g1bis", epoch),
		})
		require.ErrorIs(t, err, status.ErrStagingViolation)
	})

	t.Run("append indices not contiguous", func(t *testing.T) {
		g := granuleRefs("g1", epoch)
		for i := range g.Refs {
			g.Refs[i].Coord[0] = 5 // local indices must start at zero
		}
		_, err := session.Stage([]model.GranuleRefs{g})
		require.ErrorIs(t, err, status.ErrStagingViolation)
	})

	t.Run("overlapping chunks", func(t *testing.T) {
		g := granuleRefs("g1", epoch)
		g.Refs = append(g.Refs, g.Refs[0])
		_, err := session.Stage([]model.GranuleRefs{g})
		require.ErrorIs(t, err, status.ErrStagingViolation)
	})

	t.Run("no append dimension", func(t *testing.T) {
		schema := testSchema()
		schema.AppendDim = "depth"
		_, err := repo.Init(ctx, "broken", schema, "broken dataset")
		require.NoError(t, err)
		broken, err := repo.Open(ctx, "broken")
		require.NoError(t, err)
		_, err = broken.Stage([]model.GranuleRefs{granuleRefs("g1", epoch)})
		require.ErrorIs(t, err, status.ErrStagingViolation)
	})
}

func TestCommitConflict(t *testing.T) {
	ctx := context.Background()
	repo, _ := testRepo(t)
	_, err := repo.Init(ctx, "main", testSchema(), "initial dataset")
	require.NoError(t, err)

	// two writers race from the same observed tip
	sessionA, err := repo.Open(ctx, "main")
	require.NoError(t, err)
	sessionB, err := repo.Open(ctx, "main")
	require.NoError(t, err)

	stagedA, err := sessionA.Stage([]model.GranuleRefs{granuleRefs("gA", epoch)})
	require.NoError(t, err)
	stagedB, err := sessionB.Stage([]model.GranuleRefs{granuleRefs("gB", epoch)})
	require.NoError(t, err)

	winner, err := sessionA.Commit(ctx, stagedA, "append gA")
	require.NoError(t, err)

	_, err = sessionB.Commit(ctx, stagedB, "append gB")
	require.ErrorIs(t, err, status.ErrCommitConflict)

	// the loser left the branch untouched
	tip, err := repo.Tip(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, winner, tip.ID)
	assert.Equal(t, []string{"gA"}, tip.Granules)
}

func TestOpenRecoversDanglingGuard(t *testing.T) {
	ctx := context.Background()
	repo, meta := testRepo(t)
	root, err := repo.Init(ctx, "main", testSchema(), "initial dataset")
	require.NoError(t, err)

	session, err := repo.Open(ctx, "main")
	require.NoError(t, err)
	staged, err := session.Stage([]model.GranuleRefs{granuleRefs("g1", epoch)})
	require.NoError(t, err)
	commitID, err := session.Commit(ctx, staged, "append g1")
	require.NoError(t, err)

	// simulate a crash between guard creation and pointer advance by
	// rewinding the branch pointer to the parent
	require.NoError(t, repo.putBranch(ctx, "main", root.ID))

	recovered, err := repo.Open(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, commitID, recovered.Tip().ID)

	tip, err := repo.Tip(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, commitID, tip.ID)

	// a guard pointing at metadata which never landed is ignored
	require.NoError(t, meta.Put(ctx, model.GetPathToCommitGuard("main", commitID),
		strings.NewReader("neverlanded"), storage.NoOverWrite))
	session, err = repo.Open(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, commitID, session.Tip().ID)
}

func TestCommitManifestPagination(t *testing.T) {
	ctx := context.Background()
	repo, _ := testRepo(t)
	_, err := repo.Init(ctx, "main", testSchema(), "initial dataset")
	require.NoError(t, err)

	// one granule contributing more references than a single manifest holds
	uri := "s3://podaac/big.nc"
	refs := make([]model.ChunkRef, 0, 1200)
	for lon := int64(0); lon < 1200; lon++ {
		refs = append(refs, model.ChunkRef{
			Variable: "analysed_sst",
			Coord:    []int64{0, 0, lon},
			URI:      uri,
			Offset:   lon * 512,
			Length:   512,
		})
	}
	g := model.GranuleRefs{
		Granule:    model.GranuleDescriptor{ID: "big", SourceURI: uri},
		Refs:       refs,
		TimeCoords: []time.Time{epoch},
	}

	session, err := repo.Open(ctx, "main")
	require.NoError(t, err)
	staged, err := session.Stage([]model.GranuleRefs{g})
	require.NoError(t, err)
	_, err = session.Commit(ctx, staged, "append big")
	require.NoError(t, err)

	tip, err := repo.Tip(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 2, tip.Manifests)

	all, err := repo.Manifests(ctx, tip)
	require.NoError(t, err)
	assert.Len(t, all, 1200)
}

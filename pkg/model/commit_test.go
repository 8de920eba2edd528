package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitRoundTrip(t *testing.T) {
	in := &CommitDescriptor{
		ID:           "2AqyiK4m",
		Parent:       "1zzzzzzz",
		Message:      "append 2 granules",
		Timestamp:    time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Schema:       *testSchema(),
		AppendChunks: 102,
		MaxTime:      time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
		NumRefs:      6,
		Manifests:    1,
		Granules:     []string{"g1", "g2"},
		BytesRefd:    2048,
	}
	buf, err := MarshalCommit(in)
	require.NoError(t, err)

	out, err := UnmarshalCommit(buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = UnmarshalCommit([]byte("\tnot yaml"))
	require.Error(t, err)
}

func TestBranchRoundTrip(t *testing.T) {
	in := &BranchDescriptor{
		Name:      "main",
		CommitID:  "2AqyiK4m",
		Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	buf, err := MarshalBranch(in)
	require.NoError(t, err)

	out, err := UnmarshalBranch(buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestManifestRoundTrip(t *testing.T) {
	in := &ManifestEntries{
		Entries: []ChunkRef{
			{Variable: "analysed_sst", Coord: []int64{0, 0, 0}, URI: "s3://podaac/g1.nc", Offset: 512, Length: 4096},
		},
	}
	buf, err := MarshalManifest(in)
	require.NoError(t, err)

	out, err := UnmarshalManifest(buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestGetCommitTimeStamp(t *testing.T) {
	stamp := GetCommitTimeStamp()
	_, offset := stamp.Zone()
	assert.Equal(t, 0, offset)
}

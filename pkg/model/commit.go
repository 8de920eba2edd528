package model

import (
	"time"

	"gopkg.in/yaml.v2"
)

// CommitDescriptor represents an immutable snapshot of the dataset: the
// schema at commit time, the extent reached on the append dimension, and a
// pointer to the parent commit, forming a linear history.
type CommitDescriptor struct {
	ID           string      `json:"id" yaml:"id"`
	Parent       string      `json:"parent,omitempty" yaml:"parent,omitempty"`
	Message      string      `json:"message" yaml:"message"`
	Timestamp    time.Time   `json:"timestamp" yaml:"timestamp"`
	Schema       ArraySchema `json:"schema" yaml:"schema"`
	AppendChunks int64       `json:"appendChunks" yaml:"appendChunks"` // chunk count reached along the append dimension
	MaxTime      time.Time   `json:"maxTime" yaml:"maxTime"`           // largest committed append coordinate
	NumRefs      int64       `json:"numRefs" yaml:"numRefs"`
	Manifests    int         `json:"manifests" yaml:"manifests"` // number of manifest files for this commit
	Granules     []string    `json:"granules,omitempty" yaml:"granules,omitempty"`
	BytesRefd    int64       `json:"bytesReferenced" yaml:"bytesReferenced"`
	_            struct{}
}

// BranchDescriptor names the current tip of a branch. The pointer only ever
// advances to a descendant commit.
type BranchDescriptor struct {
	Name      string    `json:"name" yaml:"name"`
	CommitID  string    `json:"commit" yaml:"commit"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	_         struct{}
}

// ManifestEntries is the serialized form of one manifest file: a batch of
// chunk references belonging to a commit.
type ManifestEntries struct {
	Entries []ChunkRef `json:"entries" yaml:"entries"`
	_       struct{}
}

// MarshalCommit serializes a commit descriptor
func MarshalCommit(c *CommitDescriptor) ([]byte, error) {
	return yaml.Marshal(c)
}

// UnmarshalCommit deserializes a commit descriptor
func UnmarshalCommit(b []byte) (*CommitDescriptor, error) {
	var c CommitDescriptor
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// MarshalBranch serializes a branch descriptor
func MarshalBranch(b *BranchDescriptor) ([]byte, error) {
	return yaml.Marshal(b)
}

// UnmarshalBranch deserializes a branch descriptor
func UnmarshalBranch(buf []byte) (*BranchDescriptor, error) {
	var b BranchDescriptor
	if err := yaml.Unmarshal(buf, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// MarshalManifest serializes a manifest file
func MarshalManifest(m *ManifestEntries) ([]byte, error) {
	return yaml.Marshal(m)
}

// UnmarshalManifest deserializes a manifest file
func UnmarshalManifest(b []byte) (*ManifestEntries, error) {
	var m ManifestEntries
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetCommitTimeStamp returns a normalized UTC timestamp for new commits
func GetCommitTimeStamp() time.Time {
	return time.Now().UTC()
}

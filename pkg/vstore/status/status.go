// Package status exports errors produced by the vstore package.
package status

import (
	"github.com/developmentseed/mursst-icechunk-updater/pkg/errors"
)

var (
	// ErrBranchNotFound indicates the branch pointer does not exist
	ErrBranchNotFound = errors.New("branch not found")

	// ErrCommitNotFound indicates a commit descriptor is missing
	ErrCommitNotFound = errors.New("commit not found")

	// ErrStagingViolation indicates the accepted reference set, taken
	// together, breaks contiguity or ordering relative to the session tip.
	// The whole batch is refused and nothing is persisted.
	ErrStagingViolation = errors.New("staged references violate append invariants")

	// ErrCommitConflict indicates the branch tip moved since the session
	// was opened: another invocation won the commit on this parent
	ErrCommitConflict = errors.New("commit conflict: branch tip moved")

	// ErrEmptyStage indicates an attempt to commit a stage with no references
	ErrEmptyStage = errors.New("nothing staged")
)

// Package status exports errors produced by the core package.
package status

import (
	"github.com/developmentseed/mursst-icechunk-updater/pkg/errors"
)

var (
	// ErrVerificationFailed indicates the pre-commit read back of the
	// staged region failed. The transaction is discarded, the branch
	// pointer is untouched.
	ErrVerificationFailed = errors.New("verification of staged snapshot failed")

	// ErrCommitGivenUp indicates commit retries were exhausted on
	// conflicts. The branch is unchanged; a later run may succeed.
	ErrCommitGivenUp = errors.New("commit given up after repeated conflicts")

	// ErrInterrupted signals that the run was cancelled before commit
	ErrInterrupted = errors.New("run interrupted")
)

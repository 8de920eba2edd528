package model

// Skip reasons recorded in the run summary
const (
	SkipUnreadable = "unreadable"
	SkipSchema     = "schema"
	SkipOrdering   = "ordering"
	SkipDeferred   = "deferred" // skipped because an earlier granule in the batch was rejected
)

// SkipRecord explains why a discovered granule was not appended by a run
type SkipRecord struct {
	ID     string `json:"id" yaml:"id"`
	Reason string `json:"reason" yaml:"reason"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
	_      struct{}
}

// RunSummary is the structured outcome of one updater invocation.
//
// A run always terminates with a summary (possibly reporting zero change) or
// with a classified error; a summary with an empty NewCommitID means the
// branch pointer did not move.
type RunSummary struct {
	RunID              string       `json:"runId" yaml:"runId"`
	Branch             string       `json:"branch" yaml:"branch"`
	GranulesConsidered int          `json:"granulesConsidered" yaml:"granulesConsidered"`
	GranulesAppended   []string     `json:"granulesAppended" yaml:"granulesAppended"`
	GranulesSkipped    []SkipRecord `json:"granulesSkipped,omitempty" yaml:"granulesSkipped,omitempty"`
	NewCommitID        string       `json:"newCommitId,omitempty" yaml:"newCommitId,omitempty"`
	DryRun             bool         `json:"dryRun" yaml:"dryRun"`
	BytesReferenced    int64        `json:"bytesReferenced" yaml:"bytesReferenced"`
	CommitAttempts     int          `json:"commitAttempts,omitempty" yaml:"commitAttempts,omitempty"`
	_                  struct{}
}

// Appended is true when the run moved the branch pointer
func (r *RunSummary) Appended() bool {
	return r.NewCommitID != ""
}

package model

import (
	"fmt"
	"strings"
)

const (
	// descriptor files (object metadata)
	commitDescriptorFile = "commit.yaml"
	branchDescriptorFile = "branch.yaml"

	// manifest files
	manifestFilePrefix = "manifest-"
)

// StorePathComponents defines the unique path parts to locate a metadata file
// in the reference store
type StorePathComponents struct {
	CommitID        string
	BranchName      string
	ArchiveFileName string
	GuardParent     string
}

// GetPathToCommit yields the archive path to a commit descriptor
//
//	commits/{commit}/commit.yaml
func GetPathToCommit(commitID string) string {
	return fmt.Sprint("commits/", commitID, "/", commitDescriptorFile)
}

// GetPathToManifest yields the archive path to the index-th manifest file of a commit
//
//	commits/{commit}/manifest-{index}.yaml
func GetPathToManifest(commitID string, index int) string {
	return fmt.Sprint("commits/", commitID, "/", manifestFilePrefix, index, ".yaml")
}

// GetPathToBranch yields the archive path to a branch pointer
//
//	branches/{branch}/branch.yaml
func GetPathToBranch(branch string) string {
	return fmt.Sprint("branches/", branch, "/", branchDescriptorFile)
}

// GetPathToCommitGuard yields the create-only guard object which serializes
// concurrent commits on the same parent
//
//	casguards/{branch}/{parent}
func GetPathToCommitGuard(branch, parent string) string {
	if parent == "" {
		parent = "root"
	}
	return fmt.Sprint("casguards/", branch, "/", parent)
}

// GetPathPrefixToCommits yields the prefix under which all commit metadata lives
func GetPathPrefixToCommits() string {
	return "commits/"
}

// GetStorePathComponents yields metadata components from a parsed archive path
func GetStorePathComponents(archivePath string) (StorePathComponents, error) {
	cs := strings.Split(archivePath, "/")
	if len(cs) != 3 {
		return StorePathComponents{}, fmt.Errorf("invalid store path %q", archivePath)
	}
	switch cs[0] {
	case "commits":
		return StorePathComponents{CommitID: cs[1], ArchiveFileName: cs[2]}, nil
	case "branches":
		return StorePathComponents{BranchName: cs[1], ArchiveFileName: cs[2]}, nil
	case "casguards":
		return StorePathComponents{BranchName: cs[1], GuardParent: cs[2]}, nil
	default:
		return StorePathComponents{}, fmt.Errorf("invalid store path %q", archivePath)
	}
}

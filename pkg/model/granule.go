package model

import (
	"sort"
	"time"
)

// GranuleDescriptor describes an immutable source data file covering a time interval.
//
// Granules are ephemeral: they are produced by a catalog discovery and
// discarded once the run which discovered them terminates.
type GranuleDescriptor struct {
	ID        string    `json:"id" yaml:"id"`
	TimeStart time.Time `json:"timeStart" yaml:"timeStart"`
	TimeEnd   time.Time `json:"timeEnd" yaml:"timeEnd"`
	SourceURI string    `json:"sourceUri" yaml:"sourceUri"`
	Size      int64     `json:"size,omitempty" yaml:"size,omitempty"` // declared byte length of the source object
	_         struct{}
}

// GranuleDescriptors is a sortable collection of granules, ordered by
// temporal coverage then by ID
type GranuleDescriptors []GranuleDescriptor

func (g GranuleDescriptors) Len() int {
	return len(g)
}

func (g GranuleDescriptors) Swap(i, j int) {
	g[i], g[j] = g[j], g[i]
}

func (g GranuleDescriptors) Less(i, j int) bool {
	if g[i].TimeStart.Equal(g[j].TimeStart) {
		return g[i].ID < g[j].ID
	}
	return g[i].TimeStart.Before(g[j].TimeStart)
}

// Dedupe sorts granules by temporal coverage and removes duplicate IDs,
// keeping the first occurrence
func (g GranuleDescriptors) Dedupe() GranuleDescriptors {
	sort.Sort(g)
	out := g[:0]
	seen := make(map[string]struct{}, len(g))
	for _, granule := range g {
		if _, ok := seen[granule.ID]; ok {
			continue
		}
		seen[granule.ID] = struct{}{}
		out = append(out, granule)
	}
	return out
}

package model

import (
	"fmt"
)

// CurrentSchemaVersion is the version stamped on array schemas written by this release.
const CurrentSchemaVersion = 1

// Dimension describes one dimension of the target array
type Dimension struct {
	Name  string `json:"name" yaml:"name"`
	Size  int64  `json:"size" yaml:"size"`   // full extent; grows over time on the append dimension
	Chunk int64  `json:"chunk" yaml:"chunk"` // chunk shape along this dimension
	_     struct{}
}

// ArraySchema is the authoritative structural description of the dataset.
//
// There is exactly one instance per dataset. It is immutable across appends,
// except for growth of the append dimension size.
type ArraySchema struct {
	Version     uint64            `json:"version" yaml:"version"`
	Dimensions  []Dimension       `json:"dimensions" yaml:"dimensions"`
	AppendDim   string            `json:"appendDim" yaml:"appendDim"`
	ElementType string            `json:"elementType" yaml:"elementType"`
	FillValue   string            `json:"fillValue" yaml:"fillValue"`
	CoordAttrs  map[string]string `json:"coordAttrs,omitempty" yaml:"coordAttrs,omitempty"`
	_           struct{}
}

// AppendAxis yields the index of the append dimension, or -1 when the schema
// has no such dimension
func (s *ArraySchema) AppendAxis() int {
	for i, d := range s.Dimensions {
		if d.Name == s.AppendDim {
			return i
		}
	}
	return -1
}

// Diff compares a candidate schema against the authoritative schema, field by
// field, and reports the mismatching fields. Growth along the append dimension
// is not a mismatch. An empty result means the schemas are compatible.
func (s *ArraySchema) Diff(candidate *ArraySchema) []string {
	var mismatches []string

	if candidate == nil {
		return []string{"schema: missing"}
	}
	if s.AppendDim != candidate.AppendDim {
		mismatches = append(mismatches, fmt.Sprintf("appendDim: %q != %q", s.AppendDim, candidate.AppendDim))
	}
	if s.ElementType != candidate.ElementType {
		mismatches = append(mismatches, fmt.Sprintf("elementType: %q != %q", s.ElementType, candidate.ElementType))
	}
	if s.FillValue != candidate.FillValue {
		mismatches = append(mismatches, fmt.Sprintf("fillValue: %q != %q", s.FillValue, candidate.FillValue))
	}
	if len(s.Dimensions) != len(candidate.Dimensions) {
		mismatches = append(mismatches, fmt.Sprintf("dimensions: %d != %d", len(s.Dimensions), len(candidate.Dimensions)))
		return mismatches
	}
	for i, d := range s.Dimensions {
		c := candidate.Dimensions[i]
		if d.Name != c.Name {
			mismatches = append(mismatches, fmt.Sprintf("dimensions[%d].name: %q != %q", i, d.Name, c.Name))
			continue
		}
		if d.Chunk != c.Chunk {
			mismatches = append(mismatches, fmt.Sprintf("dimensions[%d].chunk: %d != %d", i, d.Chunk, c.Chunk))
		}
		if d.Name != s.AppendDim && d.Size != c.Size {
			mismatches = append(mismatches, fmt.Sprintf("dimensions[%d].size: %d != %d", i, d.Size, c.Size))
		}
	}
	for k, v := range s.CoordAttrs {
		if cv, ok := candidate.CoordAttrs[k]; !ok || cv != v {
			mismatches = append(mismatches, fmt.Sprintf("coordAttrs[%s]: %q != %q", k, v, candidate.CoordAttrs[k]))
		}
	}
	return mismatches
}

// Equal is true when Diff reports no mismatch
func (s *ArraySchema) Equal(candidate *ArraySchema) bool {
	return len(s.Diff(candidate)) == 0
}

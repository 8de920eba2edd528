package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ChunkRef is a virtual chunk reference: a logical chunk coordinate in the
// target array, pointing at a byte range inside an immutable source granule.
//
// References are created by the builder and staged into a transaction.
// They are never mutated after creation.
type ChunkRef struct {
	Variable string  `json:"variable" yaml:"variable"`
	Coord    []int64 `json:"coord" yaml:"coord"` // chunk grid coordinate, same dimension order as the schema
	URI      string  `json:"uri" yaml:"uri"`
	Offset   int64   `json:"offset" yaml:"offset"`
	Length   int64   `json:"length" yaml:"length"`
	_        struct{}
}

// Key yields the canonical merge index key for this reference.
// Coordinates are fixed-width encoded so keys sort in grid order.
func (c ChunkRef) Key() string {
	parts := make([]string, 0, len(c.Coord)+1)
	parts = append(parts, c.Variable)
	for _, x := range c.Coord {
		parts = append(parts, fmt.Sprintf("%012d", x))
	}
	return strings.Join(parts, "/")
}

// Rebased returns a copy of the reference with its coordinate shifted by
// offset chunks along the given axis
func (c ChunkRef) Rebased(axis int, offset int64) ChunkRef {
	coord := make([]int64, len(c.Coord))
	copy(coord, c.Coord)
	if axis >= 0 && axis < len(coord) {
		coord[axis] += offset
	}
	out := c
	out.Coord = coord
	return out
}

// ParseChunkKey decodes a key produced by ChunkRef.Key
func ParseChunkKey(key string) (variable string, coord []int64, err error) {
	parts := strings.Split(key, "/")
	if len(parts) < 2 {
		return "", nil, fmt.Errorf("invalid chunk key %q", key)
	}
	variable = parts[0]
	coord = make([]int64, 0, len(parts)-1)
	for _, p := range parts[1:] {
		x, e := strconv.ParseInt(p, 10, 64)
		if e != nil {
			return "", nil, fmt.Errorf("invalid chunk key %q: %w", key, e)
		}
		coord = append(coord, x)
	}
	return variable, coord, nil
}

// GranuleRefs binds a discovered granule to the references and candidate
// schema extracted from its structural metadata
type GranuleRefs struct {
	Granule    GranuleDescriptor
	Schema     *ArraySchema
	Refs       []ChunkRef
	TimeCoords []time.Time // append dimension coordinate values contributed by this granule, in order
}

// MinTime yields the smallest append coordinate contributed by this granule
func (g GranuleRefs) MinTime() time.Time {
	if len(g.TimeCoords) == 0 {
		return time.Time{}
	}
	min := g.TimeCoords[0]
	for _, t := range g.TimeCoords[1:] {
		if t.Before(min) {
			min = t
		}
	}
	return min
}

// MaxTime yields the largest append coordinate contributed by this granule
func (g GranuleRefs) MaxTime() time.Time {
	if len(g.TimeCoords) == 0 {
		return time.Time{}
	}
	max := g.TimeCoords[0]
	for _, t := range g.TimeCoords[1:] {
		if t.After(max) {
			max = t
		}
	}
	return max
}

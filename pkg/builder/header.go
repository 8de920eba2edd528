package builder

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/builder/status"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/model"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/storage"
)

// IndexSuffix is the key suffix of the chunk index document accompanying
// each granule. The index is produced by the upstream virtualization scan
// and holds the granule's variable layout and chunk byte ranges.
const IndexSuffix = ".vindex.yaml"

// indexDocument is the serialized structural metadata of one granule
type indexDocument struct {
	Schema     model.ArraySchema `yaml:"schema"`
	Size       int64             `yaml:"size,omitempty"` // declared byte length of the granule object
	TimeCoords []time.Time       `yaml:"timeCoords"`
	Variables  []indexVariable   `yaml:"variables"`
}

type indexVariable struct {
	Name   string       `yaml:"name"`
	Chunks []indexChunk `yaml:"chunks"`
}

type indexChunk struct {
	Coord  []int64 `yaml:"coord"`
	Offset int64   `yaml:"offset"`
	Length int64   `yaml:"length"`
}

// NewIndexHeaderReader builds the production header reading capability: it
// fetches the granule's companion chunk index through the resolver and
// translates it into chunk references pointing into the granule itself.
// Only the index document is transferred, never granule payload.
func NewIndexHeaderReader(resolver Resolver) HeaderReader {
	return &indexHeaderReader{resolver: resolver}
}

type indexHeaderReader struct {
	resolver Resolver
}

func (r *indexHeaderReader) ReadHeader(ctx context.Context, granule model.GranuleDescriptor) (*model.ArraySchema, []model.ChunkRef, []time.Time, error) {
	store, key, err := r.resolver.Resolve(granule.SourceURI)
	if err != nil {
		return nil, nil, nil, err
	}

	buf, err := storage.ReadObject(ctx, store, key+IndexSuffix)
	if err != nil {
		return nil, nil, nil, status.ErrGranuleUnreadable.WrapMessage("fetching index for %s: %v", granule.ID, err)
	}

	var doc indexDocument
	if err := yaml.Unmarshal(buf, &doc); err != nil {
		return nil, nil, nil, status.ErrGranuleUnreadable.WrapMessage("parsing index for %s: %v", granule.ID, err)
	}
	if err := validateIndex(granule, &doc); err != nil {
		return nil, nil, nil, status.ErrGranuleUnreadable.Wrap(err)
	}

	refs := make([]model.ChunkRef, 0, len(doc.Variables)*len(doc.TimeCoords))
	for _, v := range doc.Variables {
		for _, c := range v.Chunks {
			coord := make([]int64, len(c.Coord))
			copy(coord, c.Coord)
			refs = append(refs, model.ChunkRef{
				Variable: v.Name,
				Coord:    coord,
				URI:      granule.SourceURI,
				Offset:   c.Offset,
				Length:   c.Length,
			})
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Key() < refs[j].Key() })

	coords := make([]time.Time, len(doc.TimeCoords))
	for i, t := range doc.TimeCoords {
		coords[i] = t.UTC()
	}

	schema := doc.Schema
	return &schema, refs, coords, nil
}

func validateIndex(granule model.GranuleDescriptor, doc *indexDocument) error {
	if len(doc.Variables) == 0 {
		return fmt.Errorf("index for %s declares no variable", granule.ID)
	}
	if len(doc.TimeCoords) == 0 {
		return fmt.Errorf("index for %s declares no append coordinate", granule.ID)
	}
	if doc.Size > 0 && granule.Size > 0 && doc.Size != granule.Size {
		return fmt.Errorf("index for %s declares size %d, catalog declares %d", granule.ID, doc.Size, granule.Size)
	}
	ndims := len(doc.Schema.Dimensions)
	for _, v := range doc.Variables {
		if len(v.Chunks) == 0 {
			return fmt.Errorf("index for %s variable %s has no chunk", granule.ID, v.Name)
		}
		for _, c := range v.Chunks {
			if len(c.Coord) != ndims {
				return fmt.Errorf("index for %s variable %s has a %d-d chunk coordinate, schema has %d dimensions",
					granule.ID, v.Name, len(c.Coord), ndims)
			}
			if c.Offset < 0 || c.Length <= 0 {
				return fmt.Errorf("index for %s variable %s has an invalid byte range [%d, %d)",
					granule.ID, v.Name, c.Offset, c.Offset+c.Length)
			}
		}
	}
	return nil
}

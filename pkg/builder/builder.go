// Package builder turns discovered granules into virtual chunk references.
//
// For each granule, only structural metadata is opened (variable layout and
// chunk index): no bulk payload bytes are ever transferred. Metadata fetches
// may proceed with bounded concurrency, but results are reassembled in
// discovery order before validation.
package builder

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/builder/status"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/dlogger"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/model"
)

const defaultConcurrentFetches = 4

// HeaderReader is the capability to read the structural metadata of a remote
// granule: its candidate schema, its chunk layout and its declared size
type HeaderReader interface {
	ReadHeader(ctx context.Context, granule model.GranuleDescriptor) (*model.ArraySchema, []model.ChunkRef, []time.Time, error)
}

// Builder builds reference entries for a batch of granules
type Builder struct {
	headers     HeaderReader
	concurrency int
	l           *zap.Logger
}

// Option is a functor to build a Builder with some options
type Option func(*Builder)

// ConcurrentFetches tunes the level of concurrency of metadata fetches
func ConcurrentFetches(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// Logger injects a logging facility into the builder
func Logger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.l = l
		}
	}
}

// New builds a Builder on top of a header reading capability
func New(headers HeaderReader, opts ...Option) *Builder {
	b := &Builder{
		headers:     headers,
		concurrency: defaultConcurrentFetches,
		l:           dlogger.MustGetLogger(dlogger.LogLevelInfo),
	}
	for _, apply := range opts {
		apply(b)
	}
	return b
}

// buildResult holds the outcome for one granule, at its discovery position
type buildResult struct {
	refs model.GranuleRefs
	err  error
}

// Build produces reference entries for all granules. Unreadable granules do
// not fail the batch: they come back in the skipped list and the run resumes
// with the remainder.
//
// Results preserve discovery order regardless of fetch completion order.
func (b *Builder) Build(ctx context.Context, granules model.GranuleDescriptors) ([]model.GranuleRefs, []model.SkipRecord) {
	if len(granules) == 0 {
		return nil, nil
	}

	results := make([]buildResult, len(granules))
	indexC := make(chan int, len(granules))
	for i := range granules {
		indexC <- i
	}
	close(indexC)

	var wg sync.WaitGroup
	workers := b.concurrency
	if workers > len(granules) {
		workers = len(granules)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexC {
				results[i] = b.buildOne(ctx, granules[i])
			}
		}()
	}
	wg.Wait()

	built := make([]model.GranuleRefs, 0, len(granules))
	var skipped []model.SkipRecord
	for i, res := range results {
		if res.err != nil {
			b.l.Warn("granule metadata unreadable",
				zap.String("granule_id", granules[i].ID),
				zap.Error(res.err))
			skipped = append(skipped, model.SkipRecord{
				ID:     granules[i].ID,
				Reason: model.SkipUnreadable,
				Detail: res.err.Error(),
			})
			continue
		}
		built = append(built, res.refs)
	}
	return built, skipped
}

func (b *Builder) buildOne(ctx context.Context, granule model.GranuleDescriptor) buildResult {
	schema, refs, coords, err := b.headers.ReadHeader(ctx, granule)
	if err != nil {
		return buildResult{err: status.ErrGranuleUnreadable.Wrap(err)}
	}

	b.l.Debug("built references",
		zap.String("granule_id", granule.ID),
		zap.Int("num_refs", len(refs)))

	return buildResult{refs: model.GranuleRefs{
		Granule:    granule,
		Schema:     schema,
		Refs:       refs,
		TimeCoords: coords,
	}}
}

package builder

import (
	"net/url"
	"strings"
	"sync"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/builder/status"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/storage"
)

// Resolver maps a source URI to the object store holding it and the object key
type Resolver interface {
	Resolve(uri string) (storage.Store, string, error)
}

// StoreFactory builds a store for a bucket, e.g. an S3 client scoped with
// short lived credentials
type StoreFactory func(bucket string) (storage.Store, error)

// NewResolver builds a resolver dispatching on URI scheme. Stores are built
// once per bucket and cached for the lifetime of the resolver, i.e. one run.
func NewResolver(factories map[string]StoreFactory) Resolver {
	return &schemeResolver{
		factories: factories,
		stores:    make(map[string]storage.Store),
	}
}

type schemeResolver struct {
	mu        sync.Mutex
	factories map[string]StoreFactory
	stores    map[string]storage.Store
}

func (r *schemeResolver) Resolve(uri string) (storage.Store, string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, "", status.ErrUnsupportedScheme.Wrap(err)
	}
	scheme := parsed.Scheme
	if scheme == "" {
		scheme = "file"
	}
	factory, ok := r.factories[scheme]
	if !ok {
		return nil, "", status.ErrUnsupportedScheme.WrapMessage("scheme %q in %q", scheme, uri)
	}

	bucket := parsed.Host
	key := strings.TrimPrefix(parsed.Path, "/")
	if scheme == "file" {
		bucket = ""
		key = parsed.Path
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cacheKey := scheme + "://" + bucket
	store, ok := r.stores[cacheKey]
	if !ok {
		store, err = factory(bucket)
		if err != nil {
			return nil, "", err
		}
		r.stores[cacheKey] = store
	}
	return store, key, nil
}

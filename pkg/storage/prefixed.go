package storage

import (
	"context"
	"io"
	"strings"
)

// Prefixed scopes a store under a key prefix, e.g. to host the dataset
// metadata under a sub-tree of a shared bucket
func Prefixed(store Store, prefix string) Store {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return store
	}
	return &prefixed{store: store, prefix: prefix + "/"}
}

type prefixed struct {
	store  Store
	prefix string
}

func (p *prefixed) String() string {
	return p.store.String() + "/" + strings.TrimSuffix(p.prefix, "/")
}

func (p *prefixed) Has(ctx context.Context, key string) (bool, error) {
	return p.store.Has(ctx, p.prefix+key)
}

func (p *prefixed) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return p.store.Get(ctx, p.prefix+key)
}

func (p *prefixed) GetAt(ctx context.Context, key string) (io.ReaderAt, error) {
	return p.store.GetAt(ctx, p.prefix+key)
}

func (p *prefixed) Put(ctx context.Context, key string, rdr io.Reader, overwrite bool) error {
	return p.store.Put(ctx, p.prefix+key, rdr, overwrite)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.store.Delete(ctx, p.prefix+key)
}

func (p *prefixed) Keys(ctx context.Context) ([]string, error) {
	keys, err := p.store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, p.prefix) {
			out = append(out, strings.TrimPrefix(k, p.prefix))
		}
	}
	return out, nil
}

func (p *prefixed) KeysPrefix(ctx context.Context, token, prefix, delimiter string, count int) ([]string, string, error) {
	if token != "" {
		token = p.prefix + token
	}
	keys, next, err := p.store.KeysPrefix(ctx, token, p.prefix+prefix, delimiter, count)
	if err != nil {
		return nil, "", err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, p.prefix))
	}
	return out, strings.TrimPrefix(next, p.prefix), nil
}

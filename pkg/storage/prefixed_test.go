package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a minimal in-memory Store used to exercise the prefix wrapper
// without importing a backend package (which would cycle).
type memStore struct {
	objects map[string]string
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string]string)}
}

func (m *memStore) String() string { return "mem" }

func (m *memStore) Has(_ context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	v, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(strings.NewReader(v)), nil
}

func (m *memStore) GetAt(_ context.Context, key string) (io.ReaderAt, error) {
	v, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return strings.NewReader(v), nil
}

func (m *memStore) Put(_ context.Context, key string, rdr io.Reader, overwrite bool) error {
	if _, ok := m.objects[key]; ok && !overwrite {
		return ErrExists
	}
	b, err := io.ReadAll(rdr)
	if err != nil {
		return err
	}
	m.objects[key] = string(b)
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memStore) Keys(_ context.Context) ([]string, error) {
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *memStore) KeysPrefix(_ context.Context, _, prefix, _ string, _ int) ([]string, string, error) {
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, "", nil
}

func TestPrefixed(t *testing.T) {
	ctx := context.Background()
	inner := newMemStore()
	s := Prefixed(inner, "datasets/mursst")

	require.NoError(t, s.Put(ctx, "branches/main/branch.yaml", strings.NewReader("tip"), NoOverWrite))

	// the inner store sees the scoped key
	_, ok := inner.objects["datasets/mursst/branches/main/branch.yaml"]
	assert.True(t, ok)

	// the wrapper does not
	has, err := s.Has(ctx, "branches/main/branch.yaml")
	require.NoError(t, err)
	assert.True(t, has)

	b, err := ReadObject(ctx, s, "branches/main/branch.yaml")
	require.NoError(t, err)
	assert.Equal(t, "tip", string(b))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"branches/main/branch.yaml"}, keys)

	keys, _, err = s.KeysPrefix(ctx, "", "branches/", "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"branches/main/branch.yaml"}, keys)

	assert.Equal(t, "mem/datasets/mursst", s.String())
}

func TestPrefixedNoop(t *testing.T) {
	inner := newMemStore()
	assert.Equal(t, inner, Prefixed(inner, "/"))
	assert.Equal(t, inner, Prefixed(inner, ""))
}

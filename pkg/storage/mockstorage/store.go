// Package mockstorage provides a func-field mock of storage.Store for tests.
package mockstorage

import (
	"context"
	"io"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/storage"
)

var _ storage.Store = &StoreMock{}

// StoreMock mocks a storage.Store. Set only the funcs your test exercises:
// calling an unset func returns storage.ErrNotSupported rather than panicking.
type StoreMock struct {
	StringFunc     func() string
	HasFunc        func(ctx context.Context, key string) (bool, error)
	GetFunc        func(ctx context.Context, key string) (io.ReadCloser, error)
	GetAtFunc      func(ctx context.Context, key string) (io.ReaderAt, error)
	PutFunc        func(ctx context.Context, key string, rdr io.Reader, overwrite bool) error
	DeleteFunc     func(ctx context.Context, key string) error
	KeysFunc       func(ctx context.Context) ([]string, error)
	KeysPrefixFunc func(ctx context.Context, token, prefix, delimiter string, count int) ([]string, string, error)
}

func (s *StoreMock) String() string {
	if s.StringFunc != nil {
		return s.StringFunc()
	}
	return "mock"
}

func (s *StoreMock) Has(ctx context.Context, key string) (bool, error) {
	if s.HasFunc != nil {
		return s.HasFunc(ctx, key)
	}
	return false, storage.ErrNotSupported
}

func (s *StoreMock) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.GetFunc != nil {
		return s.GetFunc(ctx, key)
	}
	return nil, storage.ErrNotSupported
}

func (s *StoreMock) GetAt(ctx context.Context, key string) (io.ReaderAt, error) {
	if s.GetAtFunc != nil {
		return s.GetAtFunc(ctx, key)
	}
	return nil, storage.ErrNotSupported
}

func (s *StoreMock) Put(ctx context.Context, key string, rdr io.Reader, overwrite bool) error {
	if s.PutFunc != nil {
		return s.PutFunc(ctx, key, rdr, overwrite)
	}
	return storage.ErrNotSupported
}

func (s *StoreMock) Delete(ctx context.Context, key string) error {
	if s.DeleteFunc != nil {
		return s.DeleteFunc(ctx, key)
	}
	return storage.ErrNotSupported
}

func (s *StoreMock) Keys(ctx context.Context) ([]string, error) {
	if s.KeysFunc != nil {
		return s.KeysFunc(ctx)
	}
	return nil, storage.ErrNotSupported
}

func (s *StoreMock) KeysPrefix(ctx context.Context, token, prefix, delimiter string, count int) ([]string, string, error) {
	if s.KeysPrefixFunc != nil {
		return s.KeysPrefixFunc(ctx, token, prefix, delimiter, count)
	}
	return nil, "", storage.ErrNotSupported
}

// Package storage provides an abstraction over K/V object stores
// (local file system, S3, GCS) used to persist dataset metadata.
package storage

import (
	"context"
	"io"
)

type errString string

func (e errString) Error() string { return string(e) }

const (
	ErrNotFound     errString = "not found"
	ErrForbidden    errString = "forbidden"
	ErrNotSupported errString = "not supported"
	ErrExists       errString = "exists already"
)

// Put semantics regarding already existing objects
const (
	// OverWrite an existing object with the same key
	OverWrite = true

	// NoOverWrite makes Put fail with ErrExists when the key is already
	// present. Backends with conditional writes make this atomic; it is the
	// primitive on which optimistic commits rely.
	NoOverWrite = false
)

// Store implementations know how to write entries to a K/V store.
//
// Typically this is something file system-like. Examples are S3, GCS, local FS.
// Implementations of this interface are assumed to be fairly simple.
type Store interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	// GetAt returns a random access reader on an object, suitable for
	// bounded ranged reads without transferring the whole payload
	GetAt(context.Context, string) (io.ReaderAt, error)
	Put(ctx context.Context, key string, rdr io.Reader, overwrite bool) error
	Delete(context.Context, string) error
	Keys(context.Context) ([]string, error)
	// KeysPrefix returns a page of keys under prefix, with a continuation token
	KeysPrefix(ctx context.Context, token, prefix, delimiter string, count int) ([]string, string, error)
}

// PipeIO copies a reader out to a writer
func PipeIO(writer io.Writer, reader io.Reader) (n int64, err error) {
	return io.Copy(writer, reader)
}

// ReadObject fetches an object into memory
func ReadObject(ctx context.Context, store Store, key string) ([]byte, error) {
	rdr, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()
	return io.ReadAll(rdr)
}

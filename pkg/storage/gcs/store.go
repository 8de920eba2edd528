// Package gcs implements storage.Store on Google Cloud Storage.
package gcs

import (
	"context"
	"io"

	gcsStorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/storage"
)

type gcs struct {
	client         *gcsStorage.Client
	readOnlyClient *gcsStorage.Client
	bucket         string
}

// New builds a gcs storage object. When credFile is empty, the ambient
// GOOGLE_APPLICATION_CREDENTIALS are used.
func New(ctx context.Context, bucket string, credFile string) (storage.Store, error) {
	googleStore := new(gcs)
	googleStore.bucket = bucket

	roOpts := []option.ClientOption{option.WithScopes(gcsStorage.ScopeReadOnly)}
	rwOpts := []option.ClientOption{option.WithScopes(gcsStorage.ScopeFullControl)}
	if credFile != "" {
		roOpts = append(roOpts, option.WithCredentialsFile(credFile))
		rwOpts = append(rwOpts, option.WithCredentialsFile(credFile))
	}

	var err error
	googleStore.readOnlyClient, err = gcsStorage.NewClient(ctx, roOpts...)
	if err != nil {
		return nil, err
	}
	googleStore.client, err = gcsStorage.NewClient(ctx, rwOpts...)
	if err != nil {
		return nil, err
	}
	return googleStore, nil
}

func (g *gcs) String() string {
	return "gcs@" + g.bucket
}

func (g *gcs) Has(ctx context.Context, objectName string) (bool, error) {
	_, err := g.readOnlyClient.Bucket(g.bucket).Object(objectName).Attrs(ctx)
	if err != nil {
		if err == gcsStorage.ErrObjectNotExist {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (g *gcs) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	objectReader, err := g.readOnlyClient.Bucket(g.bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		if err == gcsStorage.ErrObjectNotExist {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return objectReader, nil
}

// Put writes an object. With NoOverWrite, the write is conditional on the
// object not existing yet: GCS preconditions make this an atomic exclusive
// create, which the commit guard relies on.
func (g *gcs) Put(ctx context.Context, objectName string, reader io.Reader, overwrite bool) error {
	obj := g.client.Bucket(g.bucket).Object(objectName)
	if !overwrite {
		obj = obj.If(gcsStorage.Conditions{DoesNotExist: true})
	}
	writer := obj.NewWriter(ctx)
	_, err := io.Copy(writer, reader)
	if err != nil {
		_ = writer.Close()
		return err
	}
	if err = writer.Close(); err != nil {
		if apiErr, ok := err.(interface{ HTTPCode() int }); ok && apiErr.HTTPCode() == 412 {
			return storage.ErrExists
		}
		return err
	}
	return nil
}

func (g *gcs) Delete(ctx context.Context, objectName string) error {
	return g.client.Bucket(g.bucket).Object(objectName).Delete(ctx)
}

func (g *gcs) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	objectsIterator := g.readOnlyClient.Bucket(g.bucket).Objects(ctx, nil)
	for {
		attrs, err := objectsIterator.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func (g *gcs) KeysPrefix(ctx context.Context, token, prefix, delimiter string, count int) ([]string, string, error) {
	itr := g.readOnlyClient.Bucket(g.bucket).Objects(ctx, &gcsStorage.Query{Prefix: prefix, Delimiter: delimiter})

	var keys []string
	next := ""
	started := token == ""
	for {
		attrs, err := itr.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, "", err
		}
		if !started {
			if attrs.Name == token {
				started = true
			} else {
				continue
			}
		}
		if count > 0 && len(keys) == count {
			next = attrs.Name
			break
		}
		keys = append(keys, attrs.Name)
	}
	return keys, next, nil
}

// GetAt returns a random access reader issuing ranged reads against the object
func (g *gcs) GetAt(ctx context.Context, objectName string) (io.ReaderAt, error) {
	return &rangeReader{ctx: ctx, obj: g.readOnlyClient.Bucket(g.bucket).Object(objectName)}, nil
}

type rangeReader struct {
	ctx context.Context
	obj *gcsStorage.ObjectHandle
}

func (r *rangeReader) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	rdr, err := r.obj.NewRangeReader(r.ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer rdr.Close()
	n, err := io.ReadFull(rdr, p)
	if err == io.ErrUnexpectedEOF {
		return n, io.EOF
	}
	return n, err
}

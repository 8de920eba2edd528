// Package sthree implements storage.Store on AWS S3.
package sthree

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/model"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/storage"
)

const PageSize = 1000

type Option func(*s3FS)

func Bucket(bucket string) Option {
	return func(fs *s3FS) {
		fs.bucket = bucket
	}
}

func AWSConfig(cfg *aws.Config) Option {
	return func(fs *s3FS) {
		fs.awsConfig = cfg
	}
}

// Credentials sets static session credentials, e.g. short lived ones handed
// out by a credential provider
func Credentials(creds model.Credentials) Option {
	return func(fs *s3FS) {
		fs.creds = credentials.NewStaticCredentials(creds.AccessKey, creds.SecretKey, creds.SessionToken)
	}
}

func New(option Option, options ...Option) storage.Store {
	fs := new(s3FS)
	option(fs)
	for _, apply := range options {
		apply(fs)
	}

	if fs.awsConfig == nil {
		fs.awsConfig = aws.NewConfig()
	}
	if fs.creds != nil {
		fs.awsConfig = fs.awsConfig.WithCredentials(fs.creds)
	}
	fs.s3 = s3.New(session.Must(session.NewSession(fs.awsConfig)))
	fs.uploader = s3manager.NewUploaderWithClient(fs.s3)
	return fs
}

type s3FS struct {
	bucket    string
	awsConfig *aws.Config
	creds     *credentials.Credentials
	s3        *s3.S3
	uploader  *s3manager.Uploader
}

func (s *s3FS) Has(ctx context.Context, key string) (bool, error) {
	_, err := s.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	if err != nil {
		if rerr, ok := err.(awserr.RequestFailure); ok && rerr.StatusCode() == 404 {
			return false, nil
		}
		return false, fmt.Errorf("failed to get head request: %v", err)
	}
	return true, nil
}

func (s *s3FS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	if err != nil {
		if rerr, ok := err.(awserr.RequestFailure); ok && rerr.StatusCode() == 404 {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return obj.Body, nil
}

// Put writes an object.
//
// S3 has no exclusive create on this API version: NoOverWrite is emulated
// with a Has check first, which leaves a race window between check and
// write. The commit guard relies on exclusive create, so metadata buckets
// should prefer the gcs or localfs backends where contention is expected.
func (s *s3FS) Put(ctx context.Context, key string, rdr io.Reader, overwrite bool) error {
	if !overwrite {
		has, err := s.Has(ctx, key)
		if err != nil {
			return err
		}
		if has {
			return storage.ErrExists
		}
	}
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   rdr,
	})
	return err
}

func (s *s3FS) Delete(ctx context.Context, key string) error {
	_, err := s.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *s3FS) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	eachPage := func(page *s3.ListObjectsOutput, more bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			if key != "" {
				keys = append(keys, key)
			}
		}
		return more
	}
	params := &s3.ListObjectsInput{Bucket: aws.String(s.bucket)}

	err := s.s3.ListObjectsPagesWithContext(ctx, params, eachPage)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *s3FS) KeysPrefix(ctx context.Context, token, prefix, delimiter string, count int) ([]string, string, error) {
	var keys []string
	var isTruncated bool

	eachPage := func(page *s3.ListObjectsOutput, more bool) bool {
		isTruncated = aws.BoolValue(page.IsTruncated)

		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			if key != "" {
				keys = append(keys, key)
			}
		}
		return more
	}

	if count <= 0 || count > PageSize {
		count = PageSize
	}
	params := &s3.ListObjectsInput{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String(delimiter),
		MaxKeys:   aws.Int64(int64(count)),
		Marker:    aws.String(token),
	}

	err := s.s3.ListObjectsPagesWithContext(ctx, params, eachPage)
	if err != nil {
		return nil, "", err
	}

	next := ""
	if isTruncated && len(keys) > 0 {
		next = keys[len(keys)-1]
	}
	return keys, next, nil
}

func (s *s3FS) String() string {
	return "s3@" + s.bucket
}

// GetAt returns a random access reader issuing ranged GETs against the
// object. Only the requested byte windows are transferred.
func (s *s3FS) GetAt(ctx context.Context, objectName string) (io.ReaderAt, error) {
	return &rangeReader{ctx: ctx, s3: s.s3, bucket: s.bucket, key: objectName}, nil
}

type rangeReader struct {
	ctx    context.Context
	s3     *s3.S3
	bucket string
	key    string
}

func (r *rangeReader) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	rng := fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1)
	obj, err := r.s3.GetObjectWithContext(r.ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
		Range:  aws.String(rng),
	})
	if err != nil {
		return 0, err
	}
	defer obj.Body.Close()
	n, err := io.ReadFull(obj.Body, p)
	if err == io.ErrUnexpectedEOF {
		// short object tail
		return n, io.EOF
	}
	return n, err
}

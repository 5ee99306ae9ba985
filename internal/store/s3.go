package store

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
)

// S3Options configures an S3-compatible tier such as Cloudflare R2.
type S3Options struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
	Transport http.RoundTripper
}

// S3Blob stores blobs as objects in one bucket.
type S3Blob struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3 builds a client using path-style addressing.
func NewS3(opts S3Options) (*S3Blob, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       opts.UseSSL,
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupPath,
		Transport:    opts.Transport,
	})
	if err != nil {
		return nil, eris.Wrap(err, "s3: create client")
	}
	return &S3Blob{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

func (s *S3Blob) Name() string { return "s3" }

func (s *S3Blob) object(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func (s *S3Blob) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.object(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, eris.Wrapf(err, "s3: get %s", key)
	}
	defer obj.Close() //nolint:errcheck

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "s3: read %s", key)
	}
	return data, nil
}

func (s *S3Blob) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.object(key), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "text/csv"})
	return eris.Wrapf(err, "s3: put %s", key)
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

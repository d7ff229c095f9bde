package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/emnt/spacesync/internal/settings"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioBackend is an alternative to S3Backend selected with the minio driver.
type MinioBackend struct {
	client *minio.Client
	bucket string
}

func NewMinioBackend(client *minio.Client, bucket string) *MinioBackend {
	return &MinioBackend{client: client, bucket: bucket}
}

func NewMinioBackendFromSettings(s settings.Settings) (*MinioBackend, error) {
	u, err := url.Parse(s.EndpointURL())
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	client, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(s.AccessKey, s.SecretKey, ""),
		Secure: u.Scheme == "https",
		Region: s.Region,
	})
	if err != nil {
		return nil, err
	}
	return NewMinioBackend(client, s.SpaceName), nil
}

func (b *MinioBackend) Bucket() string {
	return b.bucket
}

func (b *MinioBackend) Put(ctx context.Context, params *PutObjectParams) error {
	size := params.Size
	if size <= 0 {
		size = -1
	}
	opts := minio.PutObjectOptions{ContentType: params.ContentType}
	if params.ACL != "" {
		opts.UserMetadata = map[string]string{"x-amz-acl": params.ACL}
	}

	if _, err := b.client.PutObject(ctx, b.bucket, params.Key, params.Body, size, opts); err != nil {
		return newError("put", b.bucket, params.Key, err)
	}
	return nil
}

func (b *MinioBackend) Get(ctx context.Context, key string, w io.Writer) (int64, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return 0, newError("get", b.bucket, key, minioErr(err))
	}
	defer obj.Close()

	n, err := io.Copy(w, obj)
	if err != nil {
		return n, newError("get", b.bucket, key, minioErr(err))
	}
	return n, nil
}

func (b *MinioBackend) Head(ctx context.Context, key string) (bool, error) {
	_, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return false, nil
		}
		return false, newError("head", b.bucket, key, err)
	}
	return true, nil
}

func (b *MinioBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return newError("delete", b.bucket, key, err)
	}
	return nil
}

func (b *MinioBackend) List(ctx context.Context, prefix, marker string, maxKeys int32) (*ListResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:     prefix,
		StartAfter: marker,
		Recursive:  true,
		MaxKeys:    int(maxKeys),
	})

	result := &ListResult{Keys: make([]string, 0, maxKeys)}
	for obj := range objects {
		if obj.Err != nil {
			return nil, newError("list", b.bucket, prefix, obj.Err)
		}
		if int32(len(result.Keys)) == maxKeys {
			result.Truncated = true
			break
		}
		result.Keys = append(result.Keys, obj.Key)
	}
	return result, nil
}

func isMinioNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" || resp.Code == "NotFound"
}

func minioErr(err error) error {
	if isMinioNotFound(err) {
		return ErrObjectNotFound
	}
	return err
}

var _ ObjectStore = (*MinioBackend)(nil)

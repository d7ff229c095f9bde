// Package storage talks to the S3-compatible Space that media is offloaded to.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

const ACLPublicRead = "public-read"

var (
	// ErrNotConfigured is returned instead of a client while settings are incomplete.
	ErrNotConfigured  = errors.New("storage: not configured")
	ErrObjectNotFound = errors.New("storage: object not found")
	ErrUnknownDriver  = errors.New("storage: unknown driver")
)

// ObjectStore is bound to a single bucket.
type ObjectStore interface {
	Put(ctx context.Context, params *PutObjectParams) error
	// Get streams the object into w and returns the number of bytes written.
	Get(ctx context.Context, key string, w io.Writer) (int64, error)
	// Head reports whether key exists. A missing object is (false, nil).
	Head(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// List returns up to maxKeys keys under prefix that sort strictly after marker.
	List(ctx context.Context, prefix, marker string, maxKeys int32) (*ListResult, error)
	Bucket() string
}

type PutObjectParams struct {
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
	ACL         string
}

type ListResult struct {
	Keys      []string
	Truncated bool
}

// Error carries the failed operation and object.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("storage.%s %s: %v", e.Op, e.Bucket, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, bucket, key string, err error) *Error {
	return &Error{Op: op, Bucket: bucket, Key: key, Err: err}
}

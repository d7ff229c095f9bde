package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/emnt/spacesync/internal/settings"
)

// S3API is the subset of the s3 client used here, so tests can mock it.
type S3API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjects(ctx context.Context, params *s3.ListObjectsInput, optFns ...func(*s3.Options)) (*s3.ListObjectsOutput, error)
}

type S3Backend struct {
	client   S3API
	uploader *manager.Uploader
	bucket   string
}

func NewS3Backend(client S3API, bucket string) *S3Backend {
	return &S3Backend{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
	}
}

// NewS3BackendFromSettings builds a client for a Spaces endpoint.
func NewS3BackendFromSettings(ctx context.Context, s settings.Settings) (*S3Backend, error) {
	// buildable so the SDK can still apply AWS_CA_BUNDLE
	httpClient := awshttp.NewBuildableClient().
		WithTransportOptions(func(tr *http.Transport) {
			tr.Proxy = http.ProxyFromEnvironment
			tr.MaxIdleConns = 50
			tr.MaxIdleConnsPerHost = 20
			tr.IdleConnTimeout = 90 * time.Second
			tr.TLSHandshakeTimeout = 10 * time.Second
			tr.ExpectContinueTimeout = 1 * time.Second
			tr.ForceAttemptHTTP2 = true
		}).
		WithTimeout(5 * time.Minute)

	// Spaces ignores the signing region but the SDK requires one
	region := s.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKey, s.SecretKey, ""),
		),
		config.WithRegion(region),
		config.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.EndpointURL())
		// custom endpoints are usually minio or localstack
		o.UsePathStyle = s.Endpoint != ""
		// Spaces rejects the default CRC32 trailer checksums
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return NewS3Backend(client, s.SpaceName), nil
}

func (b *S3Backend) Bucket() string {
	return b.bucket
}

func (b *S3Backend) Put(ctx context.Context, params *PutObjectParams) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(params.Key),
		Body:   params.Body,
	}
	if params.ContentType != "" {
		input.ContentType = aws.String(params.ContentType)
	}
	if params.ACL != "" {
		input.ACL = types.ObjectCannedACL(params.ACL)
	}

	if _, err := b.uploader.Upload(ctx, input); err != nil {
		return newError("put", b.bucket, params.Key, err)
	}
	return nil
}

func (b *S3Backend) Get(ctx context.Context, key string, w io.Writer) (int64, error) {
	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			err = ErrObjectNotFound
		}
		return 0, newError("get", b.bucket, key, err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, newError("get", b.bucket, key, err)
	}
	return n, nil
}

func (b *S3Backend) Head(ctx context.Context, key string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, newError("head", b.bucket, key, err)
	}
	return true, nil
}

func (b *S3Backend) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return newError("delete", b.bucket, key, err)
	}
	return nil
}

// List uses ListObjects (v1) since Spaces pages by Marker.
func (b *S3Backend) List(ctx context.Context, prefix, marker string, maxKeys int32) (*ListResult, error) {
	input := &s3.ListObjectsInput{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(maxKeys),
	}
	if marker != "" {
		input.Marker = aws.String(marker)
	}

	resp, err := b.client.ListObjects(ctx, input)
	if err != nil {
		return nil, newError("list", b.bucket, prefix, err)
	}

	keys := make([]string, 0, len(resp.Contents))
	for _, obj := range resp.Contents {
		keys = append(keys, aws.ToString(obj.Key))
	}
	return &ListResult{Keys: keys, Truncated: aws.ToBool(resp.IsTruncated)}, nil
}

func isS3NotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "NotFound") || strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "StatusCode: 404")
}

var _ ObjectStore = (*S3Backend)(nil)

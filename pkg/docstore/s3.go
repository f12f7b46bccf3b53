package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

// StatusMetadataKey is the object metadata key an external processor may
// set to "pending" or "failed". Objects without it are ready once visible.
const StatusMetadataKey = "processing-status"

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store keeps documents in an S3 bucket. References have the form
// s3://bucket/key.
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

var _ Store = (*S3Store)(nil)

// S3Config configures NewS3StoreFromConfig.
type S3Config struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint overrides the S3 endpoint (MinIO, LocalStack). Path-style
	// addressing is used when set.
	Endpoint string
}

// NewS3Store creates a store over an existing client.
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// NewS3StoreFromConfig loads the default AWS credential chain and creates a
// store for cfg.Bucket.
func NewS3StoreFromConfig(ctx context.Context, cfg S3Config) (*S3Store, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Store(client, cfg.Bucket, cfg.Prefix), nil
}

// Upload implements Store.
func (s *S3Store) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := path.Join(s.prefix, uuid.NewString(), path.Base(name))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

// Poll implements Store. A missing object is pending: S3 may not yet list
// an object right after it was written by another process.
func (s *S3Store) Poll(ctx context.Context, ref string) (Status, error) {
	bucket, key, err := parseS3Ref(ref)
	if err != nil {
		return StatusPending, err
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return StatusPending, nil
		}
		return StatusPending, fmt.Errorf("head %s: %w", ref, err)
	}

	switch strings.ToLower(out.Metadata[StatusMetadataKey]) {
	case "failed":
		return StatusFailed, nil
	case "pending", "processing":
		return StatusPending, nil
	default:
		return StatusReady, nil
	}
}

// Fetch implements Store.
func (s *S3Store) Fetch(ctx context.Context, ref string) ([]byte, error) {
	bucket, key, err := parseS3Ref(ref)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	return data, nil
}

// Delete implements Store.
func (s *S3Store) Delete(ctx context.Context, ref string) error {
	bucket, key, err := parseS3Ref(ref)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}

func parseS3Ref(ref string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(ref, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 reference: %q", ref)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 reference: %q", ref)
	}
	return bucket, key, nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

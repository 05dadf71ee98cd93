package publish

import (
	"context"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/assetkit/internal/config"
	"github.com/vango-dev/assetkit/internal/errors"
)

// DefaultRegion is used when neither the config nor AWS_REGION sets one.
const DefaultRegion = "us-east-1"

// ObjectMeta holds the HTTP metadata stored with an object.
type ObjectMeta struct {
	ContentType     string
	CacheControl    string
	ContentEncoding string
}

// ObjectStore stores published objects.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, meta ObjectMeta) error
}

// S3Store stores objects in an S3 bucket.
//
// Example usage:
//
//	client := publish.NewS3Client(cfg.Publish)
//	store := publish.NewS3Store(client, cfg.Publish.Bucket)
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store creates a store writing to bucket.
func NewS3Store(client *s3.Client, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

// Put uploads one object.
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, meta ObjectMeta) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if meta.ContentType != "" {
		input.ContentType = aws.String(meta.ContentType)
	}
	if meta.CacheControl != "" {
		input.CacheControl = aws.String(meta.CacheControl)
	}
	if meta.ContentEncoding != "" {
		input.ContentEncoding = aws.String(meta.ContentEncoding)
	}
	_, err := s.client.PutObject(ctx, input)
	return err
}

// NewS3Client creates an S3 client from the publish settings. Credentials
// are read from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and
// AWS_SESSION_TOKEN when a request is signed.
func NewS3Client(cfg config.PublishConfig) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = DefaultRegion
	}

	opts := s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(envCredentials()),
	}
	if cfg.Endpoint != "" {
		// S3-compatible servers generally lack virtual-host bucket routing.
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

func envCredentials() aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		id := os.Getenv("AWS_ACCESS_KEY_ID")
		secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
		if id == "" || secret == "" {
			return aws.Credentials{}, errors.New(errors.CodePublishFailed).
				WithDetail("AWS credentials not found in the environment").
				WithSuggestion("Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY")
		}
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "Environment",
		}, nil
	})
}

package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/trungse123/review-backend/internal/storage"
)

// ObjectAPI is the subset of the S3 client used by Storage.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Config holds S3 media settings.
type Config struct {
	Bucket    string
	Region    string
	CDNDomain string
	// Endpoint overrides the S3 endpoint, e.g. for MinIO.
	Endpoint string
}

// Storage implements storage.Storage on an S3 bucket.
type Storage struct {
	client    ObjectAPI
	bucket    string
	region    string
	cdnDomain string
}

var _ storage.Storage = (*Storage)(nil)

// New loads the default AWS credential chain and returns an S3 storage.
func New(ctx context.Context, cfg Config) (*Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, cfg), nil
}

// NewWithClient returns an S3 storage over an existing client.
func NewWithClient(client ObjectAPI, cfg Config) *Storage {
	return &Storage{
		client:    client,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		cdnDomain: cfg.CDNDomain,
	}
}

// Upload puts the object into the bucket.
func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	if !storage.ValidKey(input.Key) {
		return nil, fmt.Errorf("invalid media key %q", input.Key)
	}

	put := &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(input.Key),
		Body:         input.Data,
		ContentType:  aws.String(input.ContentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	}
	if input.Size > 0 {
		put.ContentLength = aws.Int64(input.Size)
	}

	if _, err := s.client.PutObject(ctx, put); err != nil {
		return nil, fmt.Errorf("upload to s3: %w", err)
	}

	return &storage.UploadResult{
		Key: input.Key,
		URL: s.generateURL(input.Key),
	}, nil
}

// Delete removes the object from the bucket.
func (s *Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete from s3: %w", err)
	}
	return nil
}

// GetURL returns the public URL of an existing object.
func (s *Storage) GetURL(ctx context.Context, key string) (string, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return "", fmt.Errorf("%w: %s", storage.ErrNotFound, key)
		}
		return "", fmt.Errorf("head s3 object: %w", err)
	}
	return s.generateURL(key), nil
}

func (s *Storage) generateURL(key string) string {
	if s.cdnDomain != "" {
		return storage.JoinURL("https://"+s.cdnDomain, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

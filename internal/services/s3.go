package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrObjectNotFound is returned when the requested key does not exist
var ErrObjectNotFound = errors.New("s3 object not found")

// s3GetObjectAPI is the part of the S3 client used here
type s3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Client reads shared configuration objects from S3
type S3Client struct {
	client     s3GetObjectAPI
	bucketName string
	region     string
}

// S3Config holds configuration for S3 client
type S3Config struct {
	BucketName string
	Region     string
	Profile    string // AWS profile to use
}

// NewS3Client creates an S3 client with AWS SDK v2 default credentials
func NewS3Client(ctx context.Context, s3Config S3Config) (*S3Client, error) {
	if s3Config.BucketName == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}

	var optFns []func(*config.LoadOptions) error
	if s3Config.Profile != "" {
		optFns = append(optFns, config.WithSharedConfigProfile(s3Config.Profile))
	}
	if s3Config.Region != "" {
		optFns = append(optFns, config.WithRegion(s3Config.Region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Client{
		client:     s3.NewFromConfig(cfg),
		bucketName: s3Config.BucketName,
		region:     cfg.Region,
	}, nil
}

// GetBucketName returns the bucket name
func (s *S3Client) GetBucketName() string {
	return s.bucketName
}

// GetRegion returns the AWS region
func (s *S3Client) GetRegion() string {
	return s.region
}

// DownloadObject returns the body of the object at key
func (s *S3Client) DownloadObject(ctx context.Context, key string) ([]byte, error) {
	key = strings.TrimPrefix(key, "/")

	getInput := &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}

	result, err := s.client.GetObject(ctx, getInput)
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("s3://%s/%s: %w", s.bucketName, key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}

	return data, nil
}

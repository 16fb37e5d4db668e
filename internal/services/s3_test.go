package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string]string
	err     error
	lastKey string
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastKey = aws.ToString(params.Key)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[f.lastKey]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3Client_DownloadObject(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{"config/domains.toml": `target_domains = ["lu.ma"]`}}
	client := &S3Client{client: fake, bucketName: "speaker-config"}

	data, err := client.DownloadObject(context.Background(), "/config/domains.toml")

	require.NoError(t, err)
	assert.Equal(t, `target_domains = ["lu.ma"]`, string(data))
	assert.Equal(t, "config/domains.toml", fake.lastKey)
}

func TestS3Client_DownloadObjectMissing(t *testing.T) {
	client := &S3Client{client: &fakeS3{}, bucketName: "speaker-config"}

	_, err := client.DownloadObject(context.Background(), "missing.toml")

	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Contains(t, err.Error(), "s3://speaker-config/missing.toml")
}

func TestS3Client_DownloadObjectFailure(t *testing.T) {
	client := &S3Client{client: &fakeS3{err: errors.New("access denied")}, bucketName: "speaker-config"}

	_, err := client.DownloadObject(context.Background(), "domains.toml")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrObjectNotFound)
	assert.Contains(t, err.Error(), "access denied")
}

func TestNewS3Client_RequiresBucket(t *testing.T) {
	_, err := NewS3Client(context.Background(), S3Config{})
	assert.Error(t, err)
}

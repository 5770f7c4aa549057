package fsxs3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/TryAwesome/CVibe-sub002/pkg/fsx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Client is the subset of the S3 API the file system needs.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3FileSystem stores files under a key prefix of a single bucket
type S3FileSystem struct {
	client Client
	bucket string
	prefix string
}

var _ fsx.FileSystem = (*S3FileSystem)(nil)

// NewS3FileSystem creates a new S3-backed file system
func NewS3FileSystem(client Client, bucket, prefix string) *S3FileSystem {
	return &S3FileSystem{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (fs *S3FileSystem) key(p string) string {
	return path.Join(fs.prefix, strings.TrimPrefix(p, "/"))
}

// WriteFile uploads data and returns its s3:// reference
func (fs *S3FileSystem) WriteFile(ctx context.Context, p string, data []byte, contentType string) (string, error) {
	key := fs.key(p)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := fs.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(fs.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return fmt.Sprintf("s3://%s/%s", fs.bucket, key), nil
}

// ReadFile downloads the object at p
func (fs *S3FileSystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	key := fs.key(p)
	out, err := fs.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fsx.ErrNotExist
		}
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// Exists checks for the object without downloading it
func (fs *S3FileSystem) Exists(ctx context.Context, p string) (bool, error) {
	key := fs.key(p)
	_, err := fs.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("head object %s: %w", key, err)
	}
	return true, nil
}

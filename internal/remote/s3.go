// Package remote fetches log objects from S3 into in-memory sources.
package remote

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/olegiv/loganalyzer-go/internal/config"
	internalerrors "github.com/olegiv/loganalyzer-go/internal/errors"
	"github.com/olegiv/loganalyzer-go/internal/parser"
)

// fetchTimeout bounds one GetObject call including the body download.
const fetchTimeout = 60 * time.Second

// objectGetter is the subset of s3.Client used here.
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher downloads S3 objects for parsing.
type S3Fetcher struct {
	client   objectGetter
	maxBytes int64
	maxMB    int
}

// NewS3Fetcher loads AWS credentials from the default chain
// (environment, shared config, instance role) for region.
func NewS3Fetcher(ctx context.Context, region string, maxSizeMB int) (*S3Fetcher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, internalerrors.Wrapf(err, "failed to load AWS config")
	}
	return newS3Fetcher(s3.NewFromConfig(awsCfg), maxSizeMB), nil
}

func newS3Fetcher(client objectGetter, maxSizeMB int) *S3Fetcher {
	if maxSizeMB <= 0 {
		maxSizeMB = parser.DefaultMaxSizeMB
	}
	return &S3Fetcher{
		client:   client,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
		maxMB:    maxSizeMB,
	}
}

// Fetch downloads the object named by an s3://bucket/key URI. The object
// is held in memory, so objects over the size limit are rejected.
func (f *S3Fetcher) Fetch(ctx context.Context, uri string) (*parser.BytesSource, error) {
	bucket, key, err := config.ParseS3URI(uri)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", parser.ErrIO, internalerrors.Wrapf(err, "failed to get %s", uri))
	}
	defer func() { _ = out.Body.Close() }()

	if size := aws.ToInt64(out.ContentLength); size > f.maxBytes {
		return nil, fmt.Errorf("%w: object %s exceeds maximum size of %dMB", parser.ErrIO, uri, f.maxMB)
	}

	data, err := io.ReadAll(io.LimitReader(out.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", parser.ErrIO, uri, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: object %s exceeds maximum size of %dMB", parser.ErrIO, uri, f.maxMB)
	}

	return parser.NewBytesSource(uri, data), nil
}

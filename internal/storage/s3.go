package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// sqliteContentType is stored on uploaded corpus snapshots.
const sqliteContentType = "application/vnd.sqlite3"

// S3Storage keeps corpus snapshots in an S3 or S3-compatible bucket.
type S3Storage struct {
	client   *s3.Client
	bucket   string
	prefix   string
	attempts int
	backoff  time.Duration
}

// S3Config holds configuration for S3 storage.
type S3Config struct {
	// Region is the AWS region for the bucket.
	Region string
	// Endpoint is an optional custom endpoint (MinIO, LocalStack).
	Endpoint string
	// UsePathStyle enables path-style addressing (required for MinIO).
	UsePathStyle bool
	// Prefix is prepended to every object key.
	Prefix string
}

// NewS3Storage creates a client using the default AWS credential chain.
func NewS3Storage(ctx context.Context, bucket string, cfg S3Config) (*S3Storage, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Storage{
		client:   client,
		bucket:   bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		attempts: 4,
		backoff:  100 * time.Millisecond,
	}, nil
}

func (s *S3Storage) key(objectPath string) *string {
	if s.prefix == "" {
		return aws.String(objectPath)
	}
	return aws.String(path.Join(s.prefix, objectPath))
}

// Upload puts a snapshot into the bucket with a SHA-256 checksum S3 verifies
// on receipt.
func (s *S3Storage) Upload(ctx context.Context, localPath, objectPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer file.Close()

	contentType := sqliteContentType
	if strings.HasSuffix(objectPath, checksumSuffix) {
		contentType = "text/plain"
	}

	err = s.retry(ctx, func() error {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return err
		}
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:            aws.String(s.bucket),
			Key:               s.key(objectPath),
			Body:              file,
			ContentType:       aws.String(contentType),
			ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUploadFailed, objectPath, err)
	}
	return nil
}

// Download streams an object into localPath.
func (s *S3Storage) Download(ctx context.Context, objectPath, localPath string) error {
	var body io.ReadCloser
	err := s.retry(ctx, func() error {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    s.key(objectPath),
		})
		if err != nil {
			return err
		}
		body = out.Body
		return nil
	})
	if errors.Is(err, ErrObjectNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDownloadFailed, objectPath, err)
	}
	defer body.Close()

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if _, err := io.Copy(file, body); err != nil {
		file.Close()
		return fmt.Errorf("%w: %s: %v", ErrDownloadFailed, objectPath, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	return nil
}

// Delete removes an object. S3 reports success for missing keys.
func (s *S3Storage) Delete(ctx context.Context, objectPath string) error {
	err := s.retry(ctx, func() error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    s.key(objectPath),
		})
		return err
	})
	if err != nil && !errors.Is(err, ErrObjectNotFound) {
		return fmt.Errorf("%w: %s: %v", ErrDeleteFailed, objectPath, err)
	}
	return nil
}

// Exists checks for an object with HeadObject.
func (s *S3Storage) Exists(ctx context.Context, objectPath string) (bool, error) {
	err := s.retry(ctx, func() error {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    s.key(objectPath),
		})
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrObjectNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("storage: head %s: %w", objectPath, err)
	}
}

// ListObjects returns the object paths under prefix, relative to the
// configured key prefix.
func (s *S3Storage) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	var objects []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: s.key(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if s.prefix != "" {
				key = strings.TrimPrefix(key, s.prefix+"/")
			}
			objects = append(objects, key)
		}
	}
	return objects, nil
}

// retry runs op up to s.attempts times, doubling the wait after each
// failure. Missing keys surface as ErrObjectNotFound and are not retried.
func (s *S3Storage) retry(ctx context.Context, op func() error) error {
	wait := s.backoff
	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = op()
		if err == nil {
			return nil
		}
		if isNotFound(err) {
			return ErrObjectNotFound
		}
		if attempt >= s.attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

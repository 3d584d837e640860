// Package blob stores recorded audio turns in S3-compatible object storage
// and hands out time-limited download URLs for playback.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/prepwise/prepwise/internal/config"
)

var (
	// ErrEmptyKey indicates an empty storage key was passed.
	ErrEmptyKey = errors.New("storage key is required")

	// ErrEmptyData indicates an empty payload was passed to PutAudio.
	ErrEmptyData = errors.New("audio data is required")
)

// objectAPI is the slice of the S3 client the store uses. Satisfied by
// *s3.Client; tests substitute a fake.
type objectAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// presignAPI generates presigned GET URLs. Satisfied by *s3.PresignClient.
type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Store holds audio blobs in a single bucket, keyed per session so a session's
// objects can be removed together when the session is deleted.
type Store struct {
	client  objectAPI
	presign presignAPI
	bucket  string
	expiry  time.Duration
	logger  *slog.Logger
}

// New creates a Store from configuration. Works against AWS S3 and
// S3-compatible services (MinIO, RustFS) via BaseEndpoint and path-style
// addressing. logger may be nil.
func New(ctx context.Context, cfg config.BlobConfig, logger *slog.Logger) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket", config.ErrInvalidBlobConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid blob endpoint: %w", err)
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		expiry:  expiry,
		logger:  logger,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist. Call during startup.
func (s *Store) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("creating blob bucket", "bucket", s.bucket)
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// Two servers racing to create the bucket is fine.
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// AudioKey builds the storage key for a new recorded turn in a session.
// Keys share the "audio/<session>/" prefix so deletion can target a session.
func AudioKey(sessionID string) string {
	return fmt.Sprintf("audio/%s/%s.wav", sessionID, uuid.NewString())
}

// PutAudio stores a recorded turn and returns its storage key.
func (s *Store) PutAudio(ctx context.Context, sessionID string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyData
	}
	if contentType == "" {
		contentType = "audio/wav"
	}

	key := AudioKey(sessionID)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store audio: %w", err)
	}

	s.logger.Debug("stored audio blob", "key", key, "bytes", len(data))
	return key, nil
}

// AudioURL returns a presigned GET URL for a stored turn, valid until the
// returned expiry time.
func (s *Store) AudioURL(ctx context.Context, key string) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrEmptyKey
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to presign audio URL: %w", err)
	}

	return req.URL, time.Now().Add(s.expiry), nil
}

// Remove deletes the given keys in batches. Missing keys are not an error;
// session deletion must stay idempotent from the caller's perspective.
func (s *Store) Remove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	// DeleteObjects caps a batch at 1000 keys.
	const batchSize = 1000
	for start := 0; start < len(keys); start += batchSize {
		end := min(start+batchSize, len(keys))

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete audio blobs: %w", err)
		}
		for _, e := range out.Errors {
			s.logger.Warn("failed to delete audio blob",
				"key", aws.ToString(e.Key), "code", aws.ToString(e.Code))
		}
	}

	s.logger.Debug("removed audio blobs", "count", len(keys))
	return nil
}

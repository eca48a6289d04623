package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/notification"
)

// ErrMetadataFetch marks a transient failure to read object metadata. The
// event source retries the whole notification, so callers surface it
// without any local retry loop.
var ErrMetadataFetch = errors.New("metadata fetch failed")

type S3Client struct {
	client        *minio.Client
	presignClient *minio.Client
	bucket        string
}

func NewS3(endpoint, accessKey, secretKey, region, bucket string, usePathStyle bool, publicEndpoint string) (*S3Client, error) {
	host, secure, endpointURL, err := normalizeEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	if bucket == "" {
		return nil, errors.New("S3_BUCKET is required")
	}

	lookup := minio.BucketLookupAuto
	if usePathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       secure,
		Region:       region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, err
	}

	if publicEndpoint == "" {
		publicEndpoint = endpointURL
	}

	var presignClient *minio.Client
	if strings.TrimSpace(publicEndpoint) != "" && publicEndpoint != endpointURL {
		pHost, pSecure, _, err := normalizeEndpoint(publicEndpoint)
		if err == nil {
			if c, err := minio.New(pHost, &minio.Options{
				Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
				Secure:       pSecure,
				Region:       region,
				BucketLookup: lookup,
			}); err == nil {
				presignClient = c
			}
		}
	}

	return &S3Client{
		client:        client,
		presignClient: presignClient,
		bucket:        bucket,
	}, nil
}

func (s *S3Client) Bucket() string {
	return s.bucket
}

// StatVideo reads the user metadata attached to an uploaded object. Any
// failure is wrapped in ErrMetadataFetch so the ingest handler can report
// it as transient.
func (s *S3Client) StatVideo(ctx context.Context, objectKey string) (VideoMetadata, error) {
	if strings.TrimSpace(objectKey) == "" {
		return VideoMetadata{}, fmt.Errorf("%w: object key is empty", ErrMetadataFetch)
	}
	info, err := s.client.StatObject(ctx, s.bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		return VideoMetadata{}, fmt.Errorf("%w: stat %s/%s: %v", ErrMetadataFetch, s.bucket, objectKey, err)
	}
	return ParseVideoMetadata(info.UserMetadata), nil
}

// FetchVideo downloads the object to a local file for the worker's upload
// command to consume.
func (s *S3Client) FetchVideo(ctx context.Context, objectKey, destPath string) error {
	if strings.TrimSpace(objectKey) == "" {
		return errors.New("object key is empty")
	}
	return s.client.FGetObject(ctx, s.bucket, objectKey, destPath, minio.GetObjectOptions{})
}

// PresignVideo returns a time-limited URL for operators inspecting a job's
// source object.
func (s *S3Client) PresignVideo(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	if strings.TrimSpace(objectKey) == "" {
		return "", errors.New("object key is empty")
	}
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	client := s.client
	if s.presignClient != nil {
		client = s.presignClient
	}
	u, err := client.PresignedGetObject(ctx, s.bucket, objectKey, expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// ListenObjectCreated subscribes to object-created bucket notifications.
// The returned channel follows minio's semantics: it closes when ctx is
// canceled, and delivery errors arrive as items with Err set.
func (s *S3Client) ListenObjectCreated(ctx context.Context) <-chan notification.Info {
	return s.client.ListenBucketNotification(ctx, s.bucket, "", "", []string{
		"s3:ObjectCreated:*",
	})
}

func normalizeEndpoint(raw string) (host string, secure bool, endpointURL string, err error) {
	if raw == "" {
		return "", false, "", errors.New("S3_ENDPOINT is required")
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, "", err
		}
		if u.Host == "" {
			return "", false, "", errors.New("invalid S3_ENDPOINT")
		}
		return u.Host, u.Scheme == "https", u.Scheme + "://" + u.Host, nil
	}
	return raw, false, "http://" + raw, nil
}

package mover

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"
)

// Uploader writes one object to release storage. Implementations exist
// for S3 and GCS; tests substitute an in-memory fake.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
}

// S3Uploader uploads to one S3 bucket.
type S3Uploader struct {
	Client *s3.Client
	Bucket string
}

// NewS3Uploader builds an uploader for the resource's bucket from its
// static key pair.
func NewS3Uploader(creds AWSCredentials, region, bucket string) *S3Uploader {
	cfg := aws.Config{
		Region:      region,
		Credentials: awscreds.NewStaticCredentialsProvider(creds.ID, creds.Key, ""),
	}
	return &S3Uploader{Client: s3.NewFromConfig(cfg), Bucket: bucket}
}

func (u *S3Uploader) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

// GCSUploader uploads to one GCS bucket.
type GCSUploader struct {
	Bucket *storage.BucketHandle
}

// NewGCSUploader builds an uploader from a resource's base64-encoded
// service account document.
func NewGCSUploader(ctx context.Context, encodedCreds, bucket string) (*GCSUploader, error) {
	credsJSON, err := base64.StdEncoding.DecodeString(encodedCreds)
	if err != nil {
		return nil, fmt.Errorf("gcs credentials: %w", err)
	}
	client, err := storage.NewClient(ctx, option.WithCredentialsJSON(credsJSON))
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSUploader{Bucket: client.Bucket(bucket)}, nil
}

func (u *GCSUploader) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	w := u.Bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, body); err != nil {
		w.Close()
		return fmt.Errorf("gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs write %s: %w", key, err)
	}
	return nil
}

// ContentType guesses an upload's content type from its file extension.
func ContentType(key string) string {
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

package mover

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/matgreaves/shipworker/paths"
)

// ObjectStore lists and copies objects within one bucket. Promotion
// never downloads artifact bytes; releases are server-side copies of
// the candidate objects.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Copy(ctx context.Context, srcKey, dstKey string) error
}

// S3Store is the production ObjectStore over one S3 bucket.
type S3Store struct {
	Client *s3.Client
	Bucket string
}

// NewS3Store builds a store for the resource's bucket from its static
// key pair.
func NewS3Store(creds AWSCredentials, region, bucket string) *S3Store {
	cfg := aws.Config{
		Region:      region,
		Credentials: awscreds.NewStaticCredentialsProvider(creds.ID, creds.Key, ""),
	}
	return &S3Store{Client: s3.NewFromConfig(cfg), Bucket: bucket}
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(s.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func (s *S3Store) Copy(ctx context.Context, srcKey, dstKey string) error {
	_, err := s.Client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.Bucket),
		CopySource: aws.String(s.Bucket + "/" + srcKey),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return fmt.Errorf("s3 copy %s: %w", srcKey, err)
	}
	return nil
}

// PromoteRelease copies a candidate build's objects to their release
// destinations: list everything under the candidates prefix, map each
// key through the exclude and partner rules, then copy in sorted key
// order so repeated runs replay identically.
func PromoteRelease(ctx context.Context, store ObjectStore, product, version string, buildNumber int, partners, excludePatterns []string, log *slog.Logger) error {
	excludes, err := paths.CompileExcludes(excludePatterns)
	if err != nil {
		return err
	}
	candPrefix, err := paths.CandidatesPrefix(product, version, buildNumber)
	if err != nil {
		return err
	}

	keys, err := store.List(ctx, candPrefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("no candidate objects under %s", candPrefix)
	}

	mapping, err := MapReleaseKeys(keys, product, version, buildNumber, partners, excludes)
	if err != nil {
		return err
	}

	srcKeys := make([]string, 0, len(mapping))
	for src := range mapping {
		srcKeys = append(srcKeys, src)
	}
	sort.Strings(srcKeys)

	log.Info("promoting candidates", "prefix", candPrefix, "objects", len(srcKeys), "skipped", len(keys)-len(srcKeys))
	for _, src := range srcKeys {
		dst := mapping[src]
		log.Info("copying", "from", src, "to", dst)
		if err := store.Copy(ctx, src, dst); err != nil {
			return err
		}
	}
	return nil
}

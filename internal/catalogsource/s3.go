package catalogsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultS3Region is used when S3Config.Region is empty.
const DefaultS3Region = "us-east-1"

// ErrS3ObjectNotFound indicates the bucket or object does not exist.
var ErrS3ObjectNotFound = errors.New("catalog object not found")

// S3Config addresses an S3-compatible endpoint.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type s3Fetcher struct {
	client *minio.Client
}

func newS3Fetcher(cfg S3Config) (*s3Fetcher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, ErrS3NotConfigured
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = DefaultS3Region
	}

	// Empty keys make the static provider sign anonymously.
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &s3Fetcher{client: client}, nil
}

func (f *s3Fetcher) get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := f.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(io.LimitReader(obj, MaxCatalogSize+1))
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return nil, fmt.Errorf("%w: %s/%s", ErrS3ObjectNotFound, bucket, key)
		}
		return nil, err
	}
	if int64(len(data)) > MaxCatalogSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrCatalogTooLarge, MaxCatalogSize)
	}
	return data, nil
}

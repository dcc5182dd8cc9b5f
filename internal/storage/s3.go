package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"clipforge/internal/services"
)

// S3Options configure the S3 object store. Endpoint supports S3-compatible
// providers (DigitalOcean Spaces, MinIO); CDNBaseURL, when set, replaces the
// direct bucket URL in returned links.
type S3Options struct {
	Bucket     string
	Region     string
	Endpoint   string
	CDNBaseURL string
}

// S3Store stores objects in an S3 bucket.
type S3Store struct {
	client *s3.Client
	opts   S3Options
}

// NewS3Store loads AWS configuration from the environment and validates the
// bucket option.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "s3 store",
			"s3_bucket is required for the s3 backend", nil)
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "s3 store", "load aws config", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if strings.TrimSpace(opts.Endpoint) != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client, opts: opts}, nil
}

func (s *S3Store) PutFile(ctx context.Context, key, localPath, contentType string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "storage", "put object", key, err)
	}
	defer file.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
		Body:   file,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", services.Wrap(services.ErrTransient, "storage", "put object", key, err)
	}
	return s.URL(key), nil
}

func (s *S3Store) FetchToFile(ctx context.Context, key, localPath string) error {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "storage", "fetch object", key, err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "storage", "fetch object", key, err)
	}
	out, err := os.Create(localPath)
	if err != nil {
		return services.Wrap(services.ErrTransient, "storage", "fetch object", key, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		_ = os.Remove(localPath)
		return services.Wrap(services.ErrTransient, "storage", "fetch object", key, err)
	}
	return out.Close()
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "storage", "delete object", key, err)
	}
	return nil
}

func (s *S3Store) URL(key string) string {
	if base := strings.TrimRight(s.opts.CDNBaseURL, "/"); base != "" {
		return base + "/" + key
	}
	if endpoint := strings.TrimRight(s.opts.Endpoint, "/"); endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", endpoint, s.opts.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.opts.Bucket, s.opts.Region, key)
}

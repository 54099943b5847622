package icon

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultRegion = "us-east-1"

// PutObjectAPI is the subset of the S3 client used by S3Store.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures an S3 mirror.
type S3Options struct {
	Bucket   string
	Key      string // object key; defaults to icon.png
	Endpoint string // custom endpoint for S3-compatible stores; enables path-style
	Region   string
}

// S3Store uploads the icon to a bucket.
type S3Store struct {
	Client PutObjectAPI
	Bucket string
	Key    string
}

// NewS3Store builds an S3Store from the default AWS credential chain.
// WHITELABEL_S3_ACCESS_KEY and WHITELABEL_S3_SECRET_KEY, when both set,
// take precedence over it.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := opts.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = defaultRegion
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	ak, sk := os.Getenv("WHITELABEL_S3_ACCESS_KEY"), os.Getenv("WHITELABEL_S3_SECRET_KEY")
	if ak != "" && sk != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(ak, sk, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{Client: client, Bucket: opts.Bucket, Key: opts.Key}, nil
}

func (s *S3Store) key() string {
	if s.Key != "" {
		return s.Key
	}
	return FileName
}

// Put uploads data and returns its s3:// URI.
func (s *S3Store) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	key := s.key()
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("uploading icon to s3://%s/%s: %w", s.Bucket, key, err)
	}
	return "s3://" + s.Bucket + "/" + key, nil
}

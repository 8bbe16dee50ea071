// Package s3 uploads plan exports to S3 or an S3-compatible store.
package s3

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	millconfig "github.com/cyclo/millplan/pkg/config"
	perrors "github.com/cyclo/millplan/pkg/errors"
)

// Config holds S3 client configuration.
type Config struct {
	// Region is the AWS region (e.g., "us-east-1")
	Region string

	Bucket string

	// Prefix is prepended to every object key.
	Prefix string

	// Endpoint overrides the default S3 endpoint (for S3-compatible services)
	Endpoint string

	// UsePathStyle forces path-style addressing (for MinIO, LocalStack)
	UsePathStyle bool

	// Credentials (optional - uses default chain if not provided)
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	OperationTimeout time.Duration
	UploadTimeout    time.Duration
}

// FromConfig maps the storage.s3 section of the config file.
func FromConfig(c millconfig.S3Config) Config {
	return Config{
		Region:           c.Region,
		Bucket:           c.Bucket,
		Prefix:           c.Prefix,
		Endpoint:         c.Endpoint,
		UsePathStyle:     c.UsePathStyle,
		OperationTimeout: 30 * time.Second,
		UploadTimeout:    5 * time.Minute,
	}
}

// objectAPI is the subset of the S3 client the uploader uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Client uploads plan artifacts.
type Client struct {
	cfg     Config
	api     objectAPI
	presign *s3.PresignClient
}

// NewClient creates a new S3 client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, perrors.InvalidConfig("storage.s3.bucket", "bucket is required")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Client{cfg: withDefaults(cfg), api: client, presign: s3.NewPresignClient(client)}, nil
}

func withDefaults(cfg Config) Config {
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 30 * time.Second
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 5 * time.Minute
	}
	return cfg
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.cfg.Bucket
}

// Key builds the object key for a run artifact: <prefix>/<runID>/<name>.
func (c *Client) Key(runID, name string) string {
	return path.Join(c.cfg.Prefix, runID, name)
}

// Upload writes r to key.
func (c *Client) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.UploadTimeout)
	defer cancel()

	in := &s3.PutObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := c.api.PutObject(ctx, in); err != nil {
		return perrors.Wrapf(err, perrors.CodeUploadFailed, "failed to put object %s/%s", c.cfg.Bucket, key)
	}
	return nil
}

// UploadFile uploads a local export under the run's prefix and returns the
// object URI.
func (c *Client) UploadFile(ctx context.Context, runID, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", perrors.Wrap(err, perrors.CodeUploadFailed, "open export").WithContext("path", localPath)
	}
	defer f.Close()

	name := filepath.Base(localPath)
	key := c.Key(runID, name)
	if err := c.Upload(ctx, key, f, ContentType(name)); err != nil {
		return "", err
	}
	return "s3://" + c.cfg.Bucket + "/" + key, nil
}

// Exists reports whether key is present. Any HEAD failure counts as absent.
func (c *Client) Exists(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.OperationTimeout)
	defer cancel()

	_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	return err == nil
}

// PresignedGetURL generates a presigned URL for GET operations.
func (c *Client) PresignedGetURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if c.presign == nil {
		return "", fmt.Errorf("presigning not available")
	}
	resp, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expires
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign GET URL: %w", err)
	}
	return resp.URL, nil
}

// ContentType returns the MIME type for an export file name.
func ContentType(name string) string {
	switch filepath.Ext(name) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".parquet":
		return "application/vnd.apache.parquet"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

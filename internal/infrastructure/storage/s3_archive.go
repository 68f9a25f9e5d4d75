// Package storage archives generated invoices in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	infraconfig "github.com/erp/invoicer/internal/infrastructure/config"
	"github.com/erp/invoicer/internal/infrastructure/printing"
	"go.uber.org/zap"
)

const pdfContentType = "application/pdf"

var _ printing.ArchiveStorage = (*S3InvoiceArchive)(nil)

// S3InvoiceArchive stores invoices in any S3-compatible backend (AWS S3,
// MinIO, RustFS) under printing.ArchiveKey.
type S3InvoiceArchive struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// S3InvoiceArchiveOption is a functional option for configuring S3InvoiceArchive
type S3InvoiceArchiveOption func(*s3ArchiveOptions)

type s3ArchiveOptions struct {
	logger            *zap.Logger
	presignExpiration time.Duration
	clientOptions     []func(*s3.Options)
}

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3InvoiceArchiveOption {
	return func(o *s3ArchiveOptions) { o.logger = logger }
}

// WithClientOptions appends options applied to the underlying S3 client
func WithClientOptions(fns ...func(*s3.Options)) S3InvoiceArchiveOption {
	return func(o *s3ArchiveOptions) { o.clientOptions = append(o.clientOptions, fns...) }
}

// NewS3InvoiceArchive creates an archive from configuration using static
// credentials and a custom endpoint.
func NewS3InvoiceArchive(cfg *infraconfig.StorageConfig, opts ...S3InvoiceArchiveOption) (*S3InvoiceArchive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	options := &s3ArchiveOptions{
		logger:            zap.NewNop(),
		presignExpiration: cfg.PresignExpiration,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.presignExpiration <= 0 {
		options.presignExpiration = 15 * time.Minute
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	clientOpts := append([]func(*s3.Options){func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	}}, options.clientOptions...)
	client := s3.NewFromConfig(awsCfg, clientOpts...)

	return &S3InvoiceArchive{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		presignExpiration: options.presignExpiration,
		logger:            options.logger,
	}, nil
}

// normalizeEndpoint defaults to a local MinIO and adds the scheme if missing
func normalizeEndpoint(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		endpoint = "http://localhost:9000"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if useSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid storage endpoint %q", endpoint)
	}
	return endpoint, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (a *S3InvoiceArchive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	a.logger.Info("Creating invoice archive bucket", zap.String("bucket", a.bucket))
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(a.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Archive uploads the invoice. Archiving the same order again overwrites
// the previous object.
func (a *S3InvoiceArchive) Archive(ctx context.Context, req *printing.ArchiveRequest) (*printing.ArchiveResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := printing.ArchiveKey(req.OrderID, req.CreatedAt)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(req.PDFData),
		ContentLength: aws.Int64(int64(len(req.PDFData))),
		ContentType:   aws.String(pdfContentType),
		Metadata:      map[string]string{"order-id": req.OrderID.String()},
	})
	if err != nil {
		return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "failed to upload invoice", err)
	}

	a.logger.Info("Invoice archived",
		zap.String("bucket", a.bucket),
		zap.String("key", key),
		zap.Int("size", len(req.PDFData)))

	return &printing.ArchiveResult{Key: key, Size: int64(len(req.PDFData))}, nil
}

// Get streams an archived invoice. The caller closes the reader.
func (a *S3InvoiceArchive) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if key == "" {
		return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "storage key is required", nil)
	}

	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "invoice not found", err)
		}
		return nil, printing.NewRenderError(printing.ErrCodeStorageFailed, "failed to download invoice", err)
	}
	return out.Body, nil
}

// Delete removes an archived invoice. S3 treats missing keys as success.
func (a *S3InvoiceArchive) Delete(ctx context.Context, key string) error {
	if key == "" {
		return printing.NewRenderError(printing.ErrCodeStorageFailed, "storage key is required", nil)
	}

	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return printing.NewRenderError(printing.ErrCodeStorageFailed, "failed to delete invoice", err)
	}
	return nil
}

// PresignDownload returns a time-limited GET URL for an archived invoice.
func (a *S3InvoiceArchive) PresignDownload(ctx context.Context, key string) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}

	req, err := a.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(a.bucket),
		Key:                        aws.String(key),
		ResponseContentType:        aws.String(pdfContentType),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", key[strings.LastIndex(key, "/")+1:])),
	}, s3.WithPresignExpires(a.presignExpiration))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate download URL: %w", err)
	}
	return req.URL, time.Now().Add(a.presignExpiration), nil
}

// Bucket returns the bucket name
func (a *S3InvoiceArchive) Bucket() string {
	return a.bucket
}

// Package archive keeps a copy of uploaded PDFs in Cloudflare R2.
package archive

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/cawebapp/ca-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	keyPrefix       = "uploads"
	defaultFilename = "upload.pdf"
)

// Archiver stores the original bytes of an upload next to its summary id.
type Archiver interface {
	Archive(ctx context.Context, userID, docID, filename string, content io.Reader) (string, error)
}

// Client holds the necessary configuration for interacting with Cloudflare R2.
type Client struct {
	s3Client   *s3.Client
	bucketName string
}

// NewClient creates an R2 client from cfg. It returns (nil, nil) when the
// archive is not configured so callers can run with archival disabled.
func NewClient(ctx context.Context, cfg config.ArchiveConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config for R2: %w", err)
	}

	endpoint := Endpoint(cfg.AccountID)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &Client{
		s3Client:   s3Client,
		bucketName: cfg.Bucket,
	}, nil
}

// Endpoint returns the R2 S3-compatible endpoint for an account.
func Endpoint(accountID string) string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
}

// ObjectKey builds "uploads/<userID>/<docID>/<filename>". Only the base name
// of filename is kept.
func ObjectKey(userID, docID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = defaultFilename
	}
	return path.Join(keyPrefix, userID, docID, name)
}

// ContentType guesses the MIME type from the filename extension.
func ContentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Archive uploads content and returns the object key it was stored under.
func (c *Client) Archive(ctx context.Context, userID, docID, filename string, content io.Reader) (string, error) {
	if c == nil || c.s3Client == nil {
		return "", fmt.Errorf("R2 client not initialized, skipping upload")
	}

	objectKey := ObjectKey(userID, docID, filename)
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucketName),
		Key:         aws.String(objectKey),
		Body:        content,
		ContentType: aws.String(ContentType(filename)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to R2 (key: %s): %w", objectKey, err)
	}
	return objectKey, nil
}

// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"feedquire/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// MaxUploadSize caps logos and ticket attachments.
const MaxUploadSize = 5 * 1024 * 1024

var allowedUploadTypes = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"application/pdf": ".pdf",
}

// ObjectStore stores a blob under key and returns its public URL.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

type R2Store struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
}

func NewR2Store(ctx context.Context, cfg config.R2Config) (*R2Store, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	cdn := cfg.CDNBaseURL
	if cdn == "" {
		cdn = endpoint + "/" + cfg.Bucket
	}

	return &R2Store{
		client: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		}),
		bucket:     cfg.Bucket,
		cdnBaseURL: strings.TrimRight(cdn, "/"),
	}, nil
}

func (s *R2Store) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, body); err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return fmt.Sprintf("%s/%s", s.cdnBaseURL, key), nil
}

// UploadFileHeader validates a multipart file and stores it under prefix/<uuid><ext>.
func UploadFileHeader(ctx context.Context, store ObjectStore, fh *multipart.FileHeader, prefix string) (string, error) {
	if fh.Size > MaxUploadSize {
		return "", fmt.Errorf("file too large (max %d bytes)", MaxUploadSize)
	}
	contentType := strings.ToLower(strings.TrimSpace(fh.Header.Get("Content-Type")))
	ext, ok := allowedUploadTypes[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}
	if e := strings.ToLower(filepath.Ext(fh.Filename)); e != "" {
		ext = e
	}

	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	key := strings.Trim(prefix, "/") + "/" + uuid.NewString() + ext
	return store.Upload(ctx, key, file, contentType)
}

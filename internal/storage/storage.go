// Package storage archives label photos so a scan can be reviewed later.
package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/franckalain/nutritrack/internal/logging"
	"go.uber.org/zap"
)

// ImageStore keeps uploaded images and returns where they can be found.
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// NopStore discards images. Put returns an empty location.
type NopStore struct{}

// Put implements ImageStore.
func (NopStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	return "", nil
}

// putObjectAPI is the part of *s3.Client used by S3Store.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures an S3Store.
type S3Config struct {
	Bucket    string
	Region    string
	Prefix    string
	PublicURL string // e.g. a CloudFront domain; empty returns s3:// locations
}

// S3Store uploads images to an S3 bucket.
type S3Store struct {
	client putObjectAPI
	cfg    S3Config
	logger *zap.Logger
}

// NewS3Store builds a store using the default AWS credential chain.
func NewS3Store(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config for S3: %w", err)
	}

	return newS3Store(s3.NewFromConfig(awsCfg), cfg, logger), nil
}

func newS3Store(client putObjectAPI, cfg S3Config, logger *zap.Logger) *S3Store {
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return &S3Store{client: client, cfg: cfg, logger: logging.OrNop(logger).Named("storage")}
}

// Put uploads data under the configured prefix and returns its location.
func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	fullKey := key
	if s.cfg.Prefix != "" {
		fullKey = path.Join(s.cfg.Prefix, key)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	s.logger.Debug("image archived", zap.String("key", fullKey), zap.Int("bytes", len(data)))
	if s.cfg.PublicURL != "" {
		return s.cfg.PublicURL + "/" + fullKey, nil
	}
	return "s3://" + s.cfg.Bucket + "/" + fullKey, nil
}

// ImageKey builds an object key for id with an extension matching contentType.
func ImageKey(id, contentType string) string {
	return id + extension(contentType)
}

func extension(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "":
		return ""
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}
	if _, sub, ok := strings.Cut(contentType, "/"); ok && sub != "" {
		return "." + sub
	}
	return ""
}

// DecodeImage decodes a base64 image, either bare or as a data URL
// ("data:image/png;base64,..."). The content type comes from the data URL
// header, or is sniffed from the bytes.
func DecodeImage(encoded string) ([]byte, string, error) {
	encoded = strings.TrimSpace(encoded)
	contentType := ""

	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", fmt.Errorf("invalid data url")
		}
		contentType, _, _ = strings.Cut(meta, ";")
		encoded = payload
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image")
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// Package blobstore archives binary uploads to S3-compatible storage.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/WailSalutem-Health-Care/emr-service/internal/config"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/rs/zerolog"
)

// ErrDisabled is returned by Put when no bucket is configured.
var ErrDisabled = errors.New("blobstore: archival disabled")

// Store writes objects and returns their location.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// S3 uploads with the s3manager multipart uploader.
type S3 struct {
	bucket   string
	uploader s3manageriface.UploaderAPI
	log      zerolog.Logger
}

var _ Store = (*S3)(nil)

// New returns an S3 store, or Disabled when no bucket is configured.
// Credentials come from the default AWS chain.
func New(cfg config.S3, log zerolog.Logger) (Store, error) {
	if cfg.Bucket == "" {
		return Disabled{}, nil
	}

	awsCfg := aws.NewConfig().
		WithRegion(cfg.Region).
		WithMaxRetries(4)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(cfg.ForcePathStyle)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}

	sdkLog := log.With().Str("bucket", cfg.Bucket).Logger()
	uploader := s3manager.NewUploader(sess.Copy(&aws.Config{Logger: sdkLogger{sdkLog}}))
	return NewS3(cfg.Bucket, uploader, log), nil
}

// NewS3 wraps an uploader; tests pass a fake.
func NewS3(bucket string, uploader s3manageriface.UploaderAPI, log zerolog.Logger) *S3 {
	return &S3{bucket: bucket, uploader: uploader, log: log}
}

func (s *S3) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(body),
		ContentType:          aws.String(contentType),
		ServerSideEncryption: aws.String("AES256"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	s.log.Debug().Str("key", key).Int("bytes", len(body)).Msg("uploaded object")
	return out.Location, nil
}

// Disabled drops every upload.
type Disabled struct{}

func (Disabled) Put(context.Context, string, []byte, string) (string, error) {
	return "", ErrDisabled
}

type sdkLogger struct {
	log zerolog.Logger
}

func (l sdkLogger) Log(v ...interface{}) {
	l.log.Debug().Msg(fmt.Sprint(v...))
}

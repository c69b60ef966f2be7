package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/memorylane/internal/common"
	sc "github.com/dmitrijs2005/memorylane/internal/server/config"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

const mediaKeyPrefix = "media/"

// UploadTarget is where a client PUTs a media blob. Items then reference
// Key as their content.
type UploadTarget struct {
	Key       string
	URL       string
	ExpiresAt time.Time
}

// MediaService hands out presigned S3 URLs. Blobs never pass through the
// server.
type MediaService struct {
	config *sc.Config
}

func NewMediaService(cfg *sc.Config) *MediaService {
	return &MediaService{config: cfg}
}

// NewStorageKey returns a fresh object key scoped to userID.
func NewStorageKey(userID string, now time.Time) string {
	return fmt.Sprintf("%susers/%s/%d/%02d/%02d/%v", mediaKeyPrefix, userID, now.Year(), now.Month(), now.Day(), uuid.New())
}

func (s *MediaService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		// MinIO and most self-hosted stores only serve path-style URLs.
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignUpload returns a PUT URL for a new object owned by userID.
func (s *MediaService) PresignUpload(ctx context.Context, userID, contentType string) (*UploadTarget, error) {
	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := NewStorageKey(userID, time.Now().UTC())
	in := &s3.PutObjectInput{Bucket: &bucket, Key: &key}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	req, err := presignPutObject(presignClient, ctx, in, s3.WithPresignExpires(s.config.PresignTTL))
	if err != nil {
		return nil, err
	}

	return &UploadTarget{Key: key, URL: req.URL, ExpiresAt: time.Now().Add(s.config.PresignTTL)}, nil
}

// PresignDownload returns a GET URL for key. Keys outside the media prefix
// are rejected.
func (s *MediaService) PresignDownload(ctx context.Context, key string) (string, error) {
	if !strings.HasPrefix(key, mediaKeyPrefix) || strings.Contains(key, "..") {
		return "", common.NewValidationError("key", "is malformed")
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket
	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.config.PresignTTL))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"adstudio-server/modules/common/config"
)

// S3Publisher - S3 업로드 (public-read)
type S3Publisher struct {
	uploader      *manager.Uploader
	bucket        string
	region        string
	publicBaseURL string
}

// NewS3Publisher - 설정에 키가 없으면 기본 credential chain 사용
func NewS3Publisher(ctx context.Context, cfg *config.Config) (*S3Publisher, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "",
		)))
		log.Printf("🔑 [Storage] S3 using static credentials (region: %s)", cfg.S3Region)
	} else {
		log.Printf("⚠️  [Storage] S3 using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
	})

	return &S3Publisher{
		uploader:      uploader,
		bucket:        cfg.S3Bucket,
		region:        cfg.S3Region,
		publicBaseURL: strings.TrimRight(cfg.S3PublicBaseURL, "/"),
	}, nil
}

// Publish - S3에 업로드 후 공개 URL 반환
func (p *S3Publisher) Publish(ctx context.Context, filename string, data []byte, mimeType string) (string, error) {
	key := ObjectKey(filename, time.Now())
	size := int64(len(data))

	log.Printf("📤 [Storage] Uploading %s to s3://%s/%s", mimeType, p.bucket, key)

	_, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(mimeType),
		ContentLength: &size,
		ACL:           types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}

	log.Printf("✅ [Storage] Artifact uploaded to S3: %s (%d bytes)", key, size)
	return p.PublicURL(key), nil
}

// PublicURL - S3_PUBLIC_BASE_URL(CDN) 우선
func (p *S3Publisher) PublicURL(key string) string {
	if p.publicBaseURL != "" {
		return p.publicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, key)
}

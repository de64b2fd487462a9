package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSProvider implements Provider for Aliyun OSS
type OSSProvider struct {
	client     *oss.Client
	bucket     *oss.Bucket
	bucketName string
	domain     string
}

// NewOSSProvider creates a new OSS storage provider.
// Endpoint looks like oss-cn-hangzhou.aliyuncs.com.
func NewOSSProvider(cfg OSSConfig) (*OSSProvider, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", cfg.Bucket, err)
	}

	return &OSSProvider{
		client:     client,
		bucket:     bucket,
		bucketName: cfg.Bucket,
		domain:     publicDomain(cfg),
	}, nil
}

func publicDomain(cfg OSSConfig) string {
	domain := cfg.Domain
	if domain == "" {
		endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
		return fmt.Sprintf("https://%s.%s", cfg.Bucket, endpoint)
	}
	if !strings.HasPrefix(domain, "http") {
		domain = "https://" + domain
	}
	return strings.TrimSuffix(domain, "/")
}

// Upload saves a file to OSS
func (p *OSSProvider) Upload(ctx context.Context, input UploadInput) (UploadOutput, error) {
	key, err := ObjectRef{Folder: input.Folder, Filename: input.Filename}.Key()
	if err != nil {
		return UploadOutput{}, err
	}

	var size int64 = -1
	if sized, ok := input.File.(interface{ Len() int }); ok {
		size = int64(sized.Len())
	}

	opts := []oss.Option{oss.WithContext(ctx)}
	if input.ContentType != "" {
		opts = append(opts, oss.ContentType(input.ContentType))
	}
	if err := p.bucket.PutObject(key, input.File, opts...); err != nil {
		return UploadOutput{}, fmt.Errorf("failed to upload to OSS: %w", err)
	}

	return UploadOutput{
		URL:  p.domain + "/" + key,
		Key:  key,
		Size: size,
	}, nil
}

// Delete removes a file from OSS
func (p *OSSProvider) Delete(ctx context.Context, ref ObjectRef) error {
	key, err := ref.Key()
	if err != nil {
		return err
	}
	if err := p.bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete from OSS: %w", err)
	}
	return nil
}

// GetURL returns the public URL of an object
func (p *OSSProvider) GetURL(ctx context.Context, ref ObjectRef) (string, error) {
	key, err := ref.Key()
	if err != nil {
		return "", err
	}
	return p.domain + "/" + key, nil
}

// GetSignedURL generates a signed URL for private object access
func (p *OSSProvider) GetSignedURL(ctx context.Context, ref ObjectRef, expiry time.Duration) (string, error) {
	key, err := ref.Key()
	if err != nil {
		return "", err
	}

	expirySec := int64(expiry.Seconds())
	if expirySec <= 0 {
		expirySec = 3600
	}

	url, err := p.bucket.SignURL(key, oss.HTTPGet, expirySec)
	if err != nil {
		return "", fmt.Errorf("failed to sign URL: %w", err)
	}
	return url, nil
}

// Exists checks if a file exists in OSS
func (p *OSSProvider) Exists(ctx context.Context, ref ObjectRef) (bool, error) {
	key, err := ref.Key()
	if err != nil {
		return false, err
	}
	return p.bucket.IsObjectExist(key, oss.WithContext(ctx))
}

func (p *OSSProvider) Name() string {
	return "oss"
}

package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/leeforge/imagekit/errors"
)

// Provider 存储提供者接口
type Provider interface {
	Upload(ctx context.Context, input UploadInput) (UploadOutput, error)
	Delete(ctx context.Context, ref ObjectRef) error
	GetURL(ctx context.Context, ref ObjectRef) (string, error)
	Exists(ctx context.Context, ref ObjectRef) (bool, error)
	Name() string
}

// SignedURLProvider 支持签名 URL 的提供者
type SignedURLProvider interface {
	GetSignedURL(ctx context.Context, ref ObjectRef, expiry time.Duration) (string, error)
}

// UploadInput 上传输入
type UploadInput struct {
	File        io.Reader
	Filename    string
	Folder      string
	ContentType string
}

// UploadOutput 上传输出
type UploadOutput struct {
	URL  string
	Key  string
	Size int64
}

// ObjectRef 对象位置
type ObjectRef struct {
	Folder   string
	Filename string
}

// Key 返回以 / 分隔的对象键，拒绝跳出根目录的路径
func (r ObjectRef) Key() (string, error) {
	if r.Filename == "" {
		return "", errors.NewInvalid("filename", r.Filename, "must not be empty")
	}
	raw := strings.ReplaceAll(r.Folder+"/"+r.Filename, "\\", "/")
	for _, segment := range strings.Split(raw, "/") {
		if segment == ".." {
			return "", errors.NewInvalid("path", raw, "must stay inside the storage root")
		}
	}
	return strings.TrimPrefix(path.Clean("/"+raw), "/"), nil
}

// Config 存储配置
type Config struct {
	Type  string      `mapstructure:"type" default:"local"`
	Local LocalConfig `mapstructure:"local"`
	OSS   OSSConfig   `mapstructure:"oss"`
}

// LocalConfig 本地存储配置
type LocalConfig struct {
	BasePath string `mapstructure:"base-path" default:"data/media"`
	BaseURL  string `mapstructure:"base-url" default:"/media"`
}

// OSSConfig 阿里云 OSS 配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access-key-id"`
	AccessKeySecret string `mapstructure:"access-key-secret"`
	Bucket          string `mapstructure:"bucket"`
	// Domain is a custom or CDN domain; the bucket domain is used when empty.
	Domain string `mapstructure:"domain"`
}

// NewProvider 根据配置创建提供者
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "local":
		return NewLocalProvider(cfg.Local.BasePath, cfg.Local.BaseURL)
	case "oss":
		return NewOSSProvider(cfg.OSS)
	default:
		return nil, errors.NewInvalid("storage.type", cfg.Type, fmt.Sprintf("unsupported provider type: %s", cfg.Type))
	}
}

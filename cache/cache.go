package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/leeforge/imagekit/metrics"
	"github.com/leeforge/imagekit/redis_client"
)

// Cache 转换结果缓存
//
// Get 未命中时返回 (nil, false, nil)；只有后端故障才返回 error。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Config 缓存配置
type Config struct {
	// Type is one of memory, redis, tiered or none.
	Type       string              `mapstructure:"type" default:"memory"`
	TTL        time.Duration       `mapstructure:"ttl" default:"10m"`
	MaxEntries int                 `mapstructure:"max-entries" default:"512"`
	MaxBytes   int64               `mapstructure:"max-bytes" default:"268435456"`
	Prefix     string              `mapstructure:"prefix" default:"imagekit:"`
	Redis      redis_client.Config `mapstructure:"redis"`
}

// Key 由输出格式、设置和输入内容生成缓存键
func Key(format string, settings fmt.Stringer, input []byte) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(format)))
	h.Write([]byte{0})
	h.Write([]byte(settings.String()))
	h.Write([]byte{0})
	h.Write(input)
	return "transform:" + hex.EncodeToString(h.Sum(nil))
}

// NewCache 根据配置创建缓存
func NewCache(ctx context.Context, cfg Config) (Cache, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "memory":
		return NewMemoryCache(cfg.MaxEntries, WithMaxBytes(cfg.MaxBytes)), nil
	case "redis":
		client, err := redis_client.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisCache(client, cfg.Prefix), nil
	case "tiered":
		client, err := redis_client.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewTieredCache(NewMemoryCache(cfg.MaxEntries, WithMaxBytes(cfg.MaxBytes)), NewRedisCache(client, cfg.Prefix), cfg.TTL), nil
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// Nop 不缓存任何内容
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Delete(context.Context, string) error                     { return nil }
func (Nop) Close() error                                             { return nil }

// Instrumented 将命中率上报到 collector
type Instrumented struct {
	Cache
	name      string
	collector *metrics.Collector
}

// WithMetrics 包装 c，每次 Get 记录 cache_requests_total
func WithMetrics(c Cache, name string, collector *metrics.Collector) Cache {
	if collector == nil {
		return c
	}
	return &Instrumented{Cache: c, name: name, collector: collector}
}

func (i *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok, err := i.Cache.Get(ctx, key)
	if err == nil {
		i.collector.RecordCacheHit(i.name, ok)
	}
	return value, ok, err
}

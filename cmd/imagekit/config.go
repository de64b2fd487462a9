package main

import (
	"fmt"
	"time"

	"github.com/leeforge/imagekit/cache"
	"github.com/leeforge/imagekit/http/handler"
	"github.com/leeforge/imagekit/logging"
	"github.com/leeforge/imagekit/media/queue"
	"github.com/leeforge/imagekit/media/storage"
)

// AppConfig is the full service configuration, loaded from config/*.yaml
// and IMAGEKIT_* environment variables.
type AppConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   logging.Config  `mapstructure:"logging"`
	Processor ProcessorConfig `mapstructure:"processor"`
	HTTP      handler.Config  `mapstructure:"http"`
	Storage   storage.Config  `mapstructure:"storage"`
	Cache     cache.Config    `mapstructure:"cache"`
	Queue     queue.Config    `mapstructure:"queue"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" default:":8080"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout" default:"30s"`
	WriteTimeout    time.Duration `mapstructure:"write-timeout" default:"60s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" default:"30s"`
}

// ProcessorConfig configures the transform pool. PoolSize 0 means one worker per CPU.
type ProcessorConfig struct {
	PoolSize       int           `mapstructure:"pool-size"`
	PoolTimeout    time.Duration `mapstructure:"pool-timeout" default:"10s"`
	DefaultQuality float64       `mapstructure:"default-quality" default:"0.85"`
}

// Validate implements config.Validator.
func (c *AppConfig) Validate() error {
	if c.Processor.PoolSize < 0 {
		return fmt.Errorf("processor.pool-size must not be negative, got %d", c.Processor.PoolSize)
	}
	if q := c.Processor.DefaultQuality; q < 0 || q > 1 {
		return fmt.Errorf("processor.default-quality must be within [0,1], got %v", q)
	}
	if c.Queue.Workers <= 0 || c.Queue.QueueSize <= 0 {
		return fmt.Errorf("queue.workers and queue.queue-size must be positive")
	}
	if c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("http.max-body-bytes must not be negative")
	}
	return nil
}

package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/leeforge/imagekit/cache"
	"github.com/leeforge/imagekit/http/middleware"
	"github.com/leeforge/imagekit/http/responder"
	"github.com/leeforge/imagekit/logging"
	"github.com/leeforge/imagekit/media/processor"
	"github.com/leeforge/imagekit/media/queue"
	"github.com/leeforge/imagekit/metrics"
)

// Config HTTP 接口配置
type Config struct {
	MaxBodyBytes   int64                      `mapstructure:"max-body-bytes" default:"33554432"`
	DefaultFormat  string                     `mapstructure:"default-format" default:"jpg"`
	CacheTTL       time.Duration              `mapstructure:"cache-ttl" default:"10m"`
	VariantTimeout time.Duration              `mapstructure:"variant-timeout" default:"60s"`
	RateLimit      middleware.RateLimitConfig `mapstructure:"rate-limit"`
	CORS           middleware.CORSConfig      `mapstructure:"cors"`
}

// Handler 图片处理 HTTP 接口
type Handler struct {
	cfg         Config
	transformer *processor.Transformer
	cache       cache.Cache
	variants    *queue.AsyncProcessor
	collector   *metrics.Collector
	logger      logging.Logger
	static      *staticMount
}

type staticMount struct {
	prefix string
	dir    string
}

type Option func(*Handler)

// WithCache 为 /v1/transform 启用结果缓存
func WithCache(c cache.Cache) Option {
	return func(h *Handler) { h.cache = c }
}

// WithVariants 启用 /v1/variants，处理器由调用方启动和停止
func WithVariants(p *queue.AsyncProcessor) Option {
	return func(h *Handler) { h.variants = p }
}

// WithCollector 记录请求指标并挂载 /metrics
func WithCollector(c *metrics.Collector) Option {
	return func(h *Handler) { h.collector = c }
}

// WithStatic 在 prefix 下只读提供本地存储目录，不列目录
func WithStatic(prefix, dir string) Option {
	return func(h *Handler) {
		prefix = "/" + strings.Trim(prefix, "/")
		if prefix != "/" && dir != "" {
			h.static = &staticMount{prefix: prefix, dir: dir}
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(h *Handler) { h.logger = l.Named("http") }
}

// NewHandler 创建 Handler
func NewHandler(cfg Config, transformer *processor.Transformer, opts ...Option) *Handler {
	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = "jpg"
	}
	h := &Handler{
		cfg:         cfg,
		transformer: transformer,
		cache:       cache.Nop{},
		logger:      logging.Named("http"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router 构建路由
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.TimingMiddleware())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(h.cfg.CORS))
	r.Use(logging.HTTPMiddleware(h.logger))
	r.Use(logging.RecoveryMiddleware())
	if h.collector != nil {
		r.Use(h.collector.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responder.NotFound(w, r, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		responder.WriteError(w, r, http.StatusMethodNotAllowed, responder.NewError(responder.ErrCodeBadRequest, "Method Not Allowed"))
	})

	r.Get("/healthz", h.health)
	if h.collector != nil {
		r.Method(http.MethodGet, "/metrics", h.collector.Handler())
	}

	if h.static != nil {
		files := http.StripPrefix(h.static.prefix, http.FileServer(http.Dir(h.static.dir)))
		r.Get(h.static.prefix+"/*", func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/") {
				responder.NotFound(w, r, "")
				return
			}
			files.ServeHTTP(w, r)
		})
	}

	limiter := middleware.NewRateLimiter(h.cfg.RateLimit)
	r.Route("/v1", func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Use(middleware.MaxBodySize(h.cfg.MaxBodyBytes))
		r.Post("/transform", h.transform)
		r.Post("/variants", h.generateVariants)
	})

	return r
}

func took(r *http.Request) responder.Option {
	return responder.WithTook(middleware.GetRequestDurationFromRequest(r))
}

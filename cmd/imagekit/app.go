package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/leeforge/imagekit/cache"
	"github.com/leeforge/imagekit/http/handler"
	"github.com/leeforge/imagekit/logging"
	"github.com/leeforge/imagekit/media/processor"
	"github.com/leeforge/imagekit/media/queue"
	"github.com/leeforge/imagekit/media/storage"
	"github.com/leeforge/imagekit/metrics"
)

type app struct {
	cfg         AppConfig
	logger      logging.Logger
	collector   *metrics.Collector
	transformer *processor.Transformer
	cache       cache.Cache
	variants    *queue.AsyncProcessor
	server      *http.Server
}

func newApp(ctx context.Context, cfg AppConfig, logger logging.Logger) (*app, error) {
	a := &app{
		cfg:       cfg,
		logger:    logger,
		collector: metrics.NewCollector(),
	}

	a.transformer = processor.NewTransformer(
		processor.WithPoolSize(cfg.Processor.PoolSize),
		processor.WithPoolTimeout(cfg.Processor.PoolTimeout),
		processor.WithDefaultQuality(cfg.Processor.DefaultQuality),
		processor.WithLogger(logger),
		processor.WithCollector(a.collector),
	)

	provider, err := storage.NewProvider(cfg.Storage)
	if err != nil {
		_ = a.transformer.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}

	resultCache, err := cache.NewCache(ctx, cfg.Cache)
	if err != nil {
		_ = a.transformer.Close()
		return nil, fmt.Errorf("cache: %w", err)
	}
	a.cache = cache.WithMetrics(resultCache, strings.ToLower(cfg.Cache.Type), a.collector)

	a.variants = queue.NewAsyncProcessor(cfg.Queue, a.transformer, provider,
		queue.WithLogger(logger),
		queue.WithCollector(a.collector),
	)

	opts := []handler.Option{
		handler.WithCache(a.cache),
		handler.WithVariants(a.variants),
		handler.WithCollector(a.collector),
		handler.WithLogger(logger),
	}
	if local, ok := provider.(*storage.LocalProvider); ok && strings.HasPrefix(cfg.Storage.Local.BaseURL, "/") {
		opts = append(opts, handler.WithStatic(cfg.Storage.Local.BaseURL, local.BasePath()))
	}

	a.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.NewHandler(cfg.HTTP, a.transformer, opts...).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("app.ready",
		zap.String("storage", provider.Name()),
		zap.String("cache", cfg.Cache.Type),
		zap.Int("pool_size", a.transformer.Pool().Size()),
		zap.Strings("formats", a.transformer.Codecs().Formats()),
	)
	return a, nil
}

// serve runs the HTTP server on ln until ctx is cancelled, then shuts
// everything down in dependency order.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	a.variants.Start()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http.listen", zap.String("addr", ln.Addr().String()))
		errCh <- a.server.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("app.shutdown", zap.NamedError("cause", context.Cause(ctx)))
	case err := <-errCh:
		if !stderrors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return stderrors.Join(serveErr, a.close(shutdownCtx))
}

// close stops accepting requests, drains the variant queue, then releases
// the pool and the cache.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.variants.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("variant queue: %w", err))
	}
	if err := a.transformer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("transform pool: %w", err))
	}
	if err := a.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	if err := stderrors.Join(errs...); err != nil {
		a.logger.Error("app.shutdown.failed", zap.Error(err))
		return err
	}
	a.logger.Info("app.stopped")
	return nil
}

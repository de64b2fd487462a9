package processor

import (
	"bytes"
	"context"
	"image"
	"io"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leeforge/imagekit/concurrency"
	"github.com/leeforge/imagekit/errors"
	"github.com/leeforge/imagekit/logging"
	"github.com/leeforge/imagekit/metrics"
)

// Transformer 图片转换器：解码、缩放、裁剪、编码
//
// 缩放与裁剪在有界 worker 池内执行，限制同时驻留的像素缓冲区数量。
// Transformer 可被多个 goroutine 并发使用。
type Transformer struct {
	decoder        Decoder
	codecs         *CodecRegistry
	resampler      Resampler
	cropper        Cropper
	pool           *concurrency.BoundedPool
	ownsPool       bool
	poolSize       int
	poolTimeout    time.Duration
	defaultQuality float64
	logger         logging.Logger
	collector      *metrics.Collector
}

// Option 转换器配置项
type Option func(*Transformer)

func WithDecoder(d Decoder) Option {
	return func(t *Transformer) { t.decoder = d }
}

func WithCodecs(r *CodecRegistry) Option {
	return func(t *Transformer) { t.codecs = r }
}

func WithResampler(r Resampler) Option {
	return func(t *Transformer) { t.resampler = r }
}

func WithCropper(c Cropper) Option {
	return func(t *Transformer) { t.cropper = c }
}

// WithPool 使用外部池，Close 时不会关闭它
func WithPool(p *concurrency.BoundedPool) Option {
	return func(t *Transformer) { t.pool = p }
}

func WithPoolSize(size int) Option {
	return func(t *Transformer) { t.poolSize = size }
}

func WithPoolTimeout(timeout time.Duration) Option {
	return func(t *Transformer) { t.poolTimeout = timeout }
}

func WithDefaultQuality(q float64) Option {
	return func(t *Transformer) {
		if q >= 0 && q <= 1 {
			t.defaultQuality = q
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(t *Transformer) { t.logger = l }
}

func WithCollector(c *metrics.Collector) Option {
	return func(t *Transformer) { t.collector = c }
}

// NewTransformer 创建转换器，默认池大小为 CPU 数
func NewTransformer(opts ...Option) *Transformer {
	t := &Transformer{
		decoder:        StdDecoder{},
		resampler:      NewLanczosResampler(),
		cropper:        ImagingCropper{},
		poolSize:       runtime.NumCPU(),
		poolTimeout:    concurrency.DefaultTimeout,
		defaultQuality: DefaultQuality,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.codecs == nil {
		t.codecs = DefaultCodecs()
	}
	if t.logger == nil {
		t.logger = logging.NewNop()
	}
	t.logger = t.logger.Named("processor")
	if t.pool == nil {
		t.pool = concurrency.NewBoundedPool(t.poolSize,
			concurrency.WithTimeout(t.poolTimeout),
			concurrency.WithCollector(t.collector),
			concurrency.WithName("transform"),
		)
		t.ownsPool = true
	}
	return t
}

// Codecs 返回编码器注册表
func (t *Transformer) Codecs() *CodecRegistry {
	return t.codecs
}

// Pool 返回执行池
func (t *Transformer) Pool() *concurrency.BoundedPool {
	return t.pool
}

// Close 关闭自有的 worker 池
func (t *Transformer) Close() error {
	if t.ownsPool {
		return t.pool.Close()
	}
	return nil
}

// Result TransformBytes 的结果
type Result struct {
	Data      []byte
	MediaType string
	Settings  ImageSettings
}

// TransformBytes 转换内存中的图片
func (t *Transformer) TransformBytes(ctx context.Context, format string, data []byte, s ImageSettings) (*Result, error) {
	var out bytes.Buffer
	result := &Result{}

	encoder, err := t.transform(ctx, format, bytes.NewReader(data), &out, s, func(actual ImageSettings) {
		result.Settings = actual
	})
	if err != nil {
		return nil, err
	}

	result.MediaType = encoder.MediaType()
	result.Data = out.Bytes()
	return result, nil
}

// Transform 读取 in 中的图片，按 s 缩放/裁剪后以 format 编码写入 out
//
// onResult 在编码前同步调用，参数为实际输出尺寸及生效的模式、质量和 gravity。
// 失败时 out 不会被写入任何字节；in 和 out 都不会被关闭。
func (t *Transformer) Transform(ctx context.Context, format string, in io.Reader, out io.Writer, s ImageSettings, onResult func(ImageSettings)) error {
	_, err := t.transform(ctx, format, in, out, s, onResult)
	return err
}

// transform 执行转换并返回实际使用的编码器
func (t *Transformer) transform(ctx context.Context, format string, in io.Reader, out io.Writer, s ImageSettings, onResult func(ImageSettings)) (encoder Encoder, err error) {
	start := time.Now()
	mode := s.EffectiveMode()
	log := t.logger.With(zap.String("format", format), zap.Stringer("settings", s))

	// 未注册的格式名不进入指标标签
	label := "unknown"
	defer func() {
		t.record(label, mode, err, time.Since(start))
		if err != nil {
			log.Warn("transform.failed", zap.Error(err), logging.Elapsed(start))
		}
	}()

	encoder, err = t.codecs.Lookup(format)
	if err != nil {
		return nil, err
	}
	label = encoder.Format()

	img, err := t.decoder.Decode(in)
	if err != nil {
		return nil, errors.NewDecode(err)
	}
	if img == nil {
		return nil, errors.NewDecode(nil).WithMessage("decoder returned no image")
	}
	srcW, srcH := dimensions(img)
	if srcW <= 0 || srcH <= 0 {
		release(img)
		return nil, errors.NewDecode(nil).WithMessage("image has no pixels")
	}

	current := img
	defer func() { release(current) }()

	replace := func(next image.Image) {
		if next != current {
			release(current)
			current = next
		}
	}

	if hasAlpha(current) {
		replace(flattenAlpha(current))
	}

	strategy := Resolve(srcW, srcH, s)
	if strategy.Kind != StrategyNoOp {
		w, h := strategy.TargetSize(srcW, srcH)
		src := current
		resized, err := t.run(ctx, src, func() image.Image {
			return t.resampler.Resample(src, w, h)
		})
		if err != nil {
			return nil, err
		}
		replace(resized)
	}

	interW, interH := dimensions(current)
	if rect, ok := ResolveCrop(interW, interH, s); ok && (rect.Width != interW || rect.Height != interH) {
		src := current
		cropped, err := t.run(ctx, src, func() image.Image {
			return t.cropper.Crop(src, rect)
		})
		if err != nil {
			return nil, err
		}
		replace(cropped)
	}

	outW, outH := dimensions(current)
	quality := s.EffectiveQuality(t.defaultQuality)
	if onResult != nil {
		actual, err := NewImageSettings(
			WithWidth(outW),
			WithHeight(outH),
			WithMode(mode),
			WithQuality(quality),
			WithGravity(s.Gravity()),
		)
		if err != nil {
			return nil, err
		}
		onResult(actual)
	}

	var buf bytes.Buffer
	if err := encoder.Encode(&buf, current, quality); err != nil {
		return nil, errors.WrapWithType(err, errors.ErrorTypeInternal, "encode "+encoder.Format()+" failed")
	}
	if _, err := buf.WriteTo(out); err != nil {
		return nil, errors.WrapWithType(err, errors.ErrorTypeExternal, "write output failed")
	}

	log.Debug("transform.done",
		zap.Stringer("strategy", strategy),
		logging.Dimensions("source", srcW, srcH),
		logging.Dimensions("output", outW, outH),
		logging.Elapsed(start),
	)
	return encoder, nil
}

// run 在池中执行一个以 src 为输入的像素操作
//
// 等待超时后任务仍可能跑完，此时由任务自己释放结果；src 始终归调用方所有。
func (t *Transformer) run(ctx context.Context, src image.Image, op func() image.Image) (image.Image, error) {
	var (
		mu        sync.Mutex
		result    image.Image
		abandoned bool
	)
	err := t.pool.Submit(ctx, func(context.Context) error {
		img := op()
		mu.Lock()
		defer mu.Unlock()
		if abandoned {
			if img != src {
				release(img)
			}
			return nil
		}
		result = img
		return nil
	})

	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		abandoned = true
		if result != src {
			release(result)
		}
		return nil, err
	}
	if result == nil {
		return nil, errors.NewInternal("pixel operation returned no image")
	}
	return result, nil
}

func (t *Transformer) record(format string, mode Mode, err error, elapsed time.Duration) {
	if t.collector == nil {
		return
	}
	t.collector.RecordTransform(normalizeName(format), mode.String(), err, elapsed)
	if err != nil {
		t.collector.RecordTransformError(string(errors.TypeOf(err)))
	}
}

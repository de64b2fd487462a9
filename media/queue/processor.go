package queue

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leeforge/imagekit/errors"
	"github.com/leeforge/imagekit/logging"
	"github.com/leeforge/imagekit/media/processor"
	"github.com/leeforge/imagekit/media/storage"
	"github.com/leeforge/imagekit/metrics"
)

// Transformer 生成单个变体的转换接口
type Transformer interface {
	TransformBytes(ctx context.Context, format string, data []byte, s processor.ImageSettings) (*processor.Result, error)
}

// Config 异步处理器配置
type Config struct {
	Workers      int           `mapstructure:"workers" default:"2"`
	QueueSize    int           `mapstructure:"queue-size" default:"100"`
	MaxRetries   int           `mapstructure:"max-retries" default:"2"`
	RetryBackoff time.Duration `mapstructure:"retry-backoff" default:"1s"`
	StopTimeout  time.Duration `mapstructure:"stop-timeout" default:"30s"`
}

// Variant 一个输出变体：名称、格式和设置
type Variant struct {
	Name     string
	Format   string
	Settings processor.ImageSettings
}

// Filename 变体在存储中的文件名
func (v Variant) Filename() string {
	return v.Name + "." + strings.ToLower(v.Format)
}

// PresetVariants 按预设名称构造变体
func PresetVariants(format string, names ...string) ([]Variant, error) {
	variants := make([]Variant, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		settings, ok := processor.Preset(name)
		if !ok {
			return nil, errors.NewInvalid("preset", name, "unknown preset")
		}
		variants = append(variants, Variant{Name: name, Format: format, Settings: settings})
	}
	return variants, nil
}

// VariantJob 变体任务
type VariantJob struct {
	ID       string
	Source   []byte
	Variant  Variant
	Folder   string
	Callback func(result JobResult)
}

// JobResult 任务结果
type JobResult struct {
	JobID    string
	Variant  string
	Success  bool
	Error    error
	URL      string
	Key      string
	Size     int64
	Width    int
	Height   int
	Attempts int
}

// AsyncProcessor 异步处理器
type AsyncProcessor struct {
	cfg         Config
	jobQueue    chan VariantJob
	transformer Transformer
	storage     storage.Provider
	logger      logging.Logger
	collector   *metrics.Collector

	mu      sync.RWMutex
	started bool
	stopped bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option 处理器配置项
type Option func(*AsyncProcessor)

func WithLogger(l logging.Logger) Option {
	return func(p *AsyncProcessor) { p.logger = l }
}

func WithCollector(c *metrics.Collector) Option {
	return func(p *AsyncProcessor) { p.collector = c }
}

// NewAsyncProcessor 创建异步处理器
func NewAsyncProcessor(cfg Config, transformer Transformer, provider storage.Provider, opts ...Option) *AsyncProcessor {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &AsyncProcessor{
		cfg:         cfg,
		jobQueue:    make(chan VariantJob, cfg.QueueSize),
		transformer: transformer,
		storage:     provider,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.NewNop()
	}
	p.logger = p.logger.Named("queue")
	return p
}

// Start 启动处理器
func (p *AsyncProcessor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// worker 工作协程，队列关闭且排空后退出
func (p *AsyncProcessor) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		p.processJob(job)
	}
}

// processJob 处理单个任务
func (p *AsyncProcessor) processJob(job VariantJob) {
	start := time.Now()
	result := JobResult{JobID: job.ID, Variant: job.Variant.Name}
	log := p.logger.With(zap.String("job_id", job.ID), zap.String("variant", job.Variant.Name))

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if !p.backoff(attempt) {
				break
			}
		}
		result.Attempts = attempt + 1

		res, err := p.transformer.TransformBytes(p.ctx, job.Variant.Format, job.Source, job.Variant.Settings)
		if err != nil {
			result.Error = err
			if permanent(err) {
				break
			}
			continue
		}

		out, err := p.storage.Upload(p.ctx, storage.UploadInput{
			File:        bytes.NewReader(res.Data),
			Folder:      job.Folder,
			Filename:    job.Variant.Filename(),
			ContentType: res.MediaType,
		})
		if err != nil {
			result.Error = errors.WrapWithType(err, errors.ErrorTypeExternal, "upload failed")
			if permanent(err) {
				break
			}
			continue
		}

		result.Success = true
		result.Error = nil
		result.URL = out.URL
		result.Key = out.Key
		result.Size = out.Size
		if result.Size < 0 {
			result.Size = int64(len(res.Data))
		}
		result.Width, _ = res.Settings.Width()
		result.Height, _ = res.Settings.Height()
		break
	}

	if result.Success {
		log.Debug("variant.done", zap.String("key", result.Key), logging.Dimensions("output", result.Width, result.Height), logging.Elapsed(start))
	} else {
		log.Warn("variant.failed", zap.Error(result.Error), zap.Int("attempts", result.Attempts))
	}
	if p.collector != nil {
		p.collector.IncCounter("variant_jobs_total", map[string]string{
			"variant": job.Variant.Name,
			"success": fmt.Sprint(result.Success),
		})
	}

	if job.Callback != nil {
		job.Callback(result)
	}
}

// backoff 等待重试间隔，处理器停止时返回 false
func (p *AsyncProcessor) backoff(attempt int) bool {
	if p.cfg.RetryBackoff <= 0 {
		return p.ctx.Err() == nil
	}
	timer := time.NewTimer(time.Duration(attempt) * p.cfg.RetryBackoff)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// permanent 重试也不会成功的错误
func permanent(err error) bool {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeInvalid, errors.ErrorTypeDecode, errors.ErrorTypeUnknownFormat:
		return true
	}
	return false
}

// Submit 提交任务，返回任务 ID
func (p *AsyncProcessor) Submit(job VariantJob) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return "", errors.NewUnavailable("processor is shutting down")
	}

	select {
	case p.jobQueue <- job:
		return job.ID, nil
	default:
		return "", errors.NewUnavailable("job queue is full").WithDetail("capacity", cap(p.jobQueue))
	}
}

// SubmitBatch 批量提交任务
func (p *AsyncProcessor) SubmitBatch(jobs []VariantJob) ([]string, error) {
	ids := make([]string, 0, len(jobs))
	for _, job := range jobs {
		id, err := p.Submit(job)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Stop 停止接收新任务，等待队列中的任务完成
//
// 超过 StopTimeout 时取消正在执行的任务并返回错误。
func (p *AsyncProcessor) Stop() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.jobQueue)
	started := p.started
	p.mu.Unlock()

	if !started {
		// drain so callbacks still fire
		p.cancel()
		for job := range p.jobQueue {
			if job.Callback != nil {
				job.Callback(JobResult{JobID: job.ID, Variant: job.Variant.Name, Error: errors.NewUnavailable("processor stopped before start")})
			}
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-time.After(p.cfg.StopTimeout):
		p.cancel()
		return fmt.Errorf("timeout waiting for jobs to complete")
	}
}

// GetQueueSize 获取队列中等待的任务数
func (p *AsyncProcessor) GetQueueSize() int {
	return len(p.jobQueue)
}

// BatchProcessor 批量处理器
type BatchProcessor struct {
	processor *AsyncProcessor
}

// NewBatchProcessor 创建批量处理器
func NewBatchProcessor(processor *AsyncProcessor) *BatchProcessor {
	return &BatchProcessor{
		processor: processor,
	}
}

// ProcessBatch 提交全部任务并等待完成，结果与 jobs 顺序一致
func (b *BatchProcessor) ProcessBatch(ctx context.Context, jobs []VariantJob) ([]JobResult, error) {
	return b.ProcessWithProgress(ctx, jobs, nil)
}

// ProcessWithProgress 同 ProcessBatch，并把每个结果计入 tracker
//
// 提交失败的任务直接记为失败结果。
func (b *BatchProcessor) ProcessWithProgress(ctx context.Context, jobs []VariantJob, tracker *ProgressTracker) ([]JobResult, error) {
	results := make([]JobResult, len(jobs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	record := func(i int, result JobResult) {
		mu.Lock()
		results[i] = result
		mu.Unlock()
		if tracker != nil {
			tracker.Record(result.Success)
		}
	}

	for i, job := range jobs {
		wg.Add(1)

		originalCallback := job.Callback
		job.Callback = func(result JobResult) {
			defer wg.Done()
			record(i, result)
			if originalCallback != nil {
				originalCallback(result)
			}
		}

		if _, err := b.processor.Submit(job); err != nil {
			record(i, JobResult{JobID: job.ID, Variant: job.Variant.Name, Error: err})
			wg.Done()
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	return results, nil
}

// ProgressTracker 进度追踪器
type ProgressTracker struct {
	total     int
	completed int
	failed    int
	mu        sync.RWMutex
	done      chan struct{}
}

// NewProgressTracker 创建进度追踪器
func NewProgressTracker(total int) *ProgressTracker {
	t := &ProgressTracker{
		total: total,
		done:  make(chan struct{}),
	}
	if total <= 0 {
		close(t.done)
	}
	return t
}

// Record 记录一个结果
func (t *ProgressTracker) Record(success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if success {
		t.completed++
	} else {
		t.failed++
	}
	if t.completed+t.failed == t.total {
		close(t.done)
	}
}

// GetProgress 获取进度
func (t *ProgressTracker) GetProgress() (completed, failed, total int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.completed, t.failed, t.total
}

// GetPercentage 获取百分比
func (t *ProgressTracker) GetPercentage() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.total == 0 {
		return 0
	}
	return float64(t.completed+t.failed) / float64(t.total) * 100
}

// Wait 等待所有任务完成
func (t *ProgressTracker) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

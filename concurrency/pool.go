package concurrency

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leeforge/imagekit/errors"
	"github.com/leeforge/imagekit/metrics"
)

// DefaultTimeout 单个任务从提交到完成的最长等待时间
const DefaultTimeout = 10 * time.Second

// JobFunc 池中执行的任务
type JobFunc func(ctx context.Context) error

// BoundedPool 固定大小的 Worker 池
//
// 同一时刻最多 size 个任务在执行，多余的提交者在 Submit 中阻塞排队，
// 用来限制同时驻留内存的解码/缩放缓冲区数量。
type BoundedPool struct {
	size      int
	timeout   time.Duration
	jobQueue  chan *task
	quit      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    atomic.Bool
	collector *metrics.Collector
	name      string

	active    atomic.Int64
	peak      atomic.Int64
	completed atomic.Int64
	timedOut  atomic.Int64
}

// PoolStats 池运行统计
type PoolStats struct {
	Size      int
	Active    int64
	Peak      int64
	Completed int64
	TimedOut  int64
}

// PoolOption 池配置项
type PoolOption func(*BoundedPool)

// WithTimeout 设置任务超时
func WithTimeout(timeout time.Duration) PoolOption {
	return func(p *BoundedPool) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithCollector 将池的运行指标上报到 collector
func WithCollector(collector *metrics.Collector) PoolOption {
	return func(p *BoundedPool) {
		p.collector = collector
	}
}

// WithName 设置指标标签中的池名称
func WithName(name string) PoolOption {
	return func(p *BoundedPool) {
		p.name = name
	}
}

// task 已提交的任务
type task struct {
	ctx  context.Context
	fn   JobFunc
	done chan error
}

// NewBoundedPool 创建并启动 Worker 池
func NewBoundedPool(size int, opts ...PoolOption) *BoundedPool {
	if size <= 0 {
		size = 1
	}

	p := &BoundedPool{
		size:     size,
		timeout:  DefaultTimeout,
		jobQueue: make(chan *task),
		quit:     make(chan struct{}),
		name:     "default",
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// Size 返回 worker 数量
func (p *BoundedPool) Size() int {
	return p.size
}

// Timeout 返回任务超时
func (p *BoundedPool) Timeout() time.Duration {
	return p.timeout
}

// Submit 提交任务并阻塞等待结果
//
// 超时覆盖排队与执行两个阶段。超时后返回 Timeout 错误；已在执行的任务不会被中断，
// 但其 ctx 会被取消，尚未开始的任务会被跳过。
func (p *BoundedPool) Submit(ctx context.Context, fn JobFunc) error {
	if p.closed.Load() {
		return errors.NewUnavailable("pool is shutting down")
	}

	jobCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	t := &task{
		ctx:  jobCtx,
		fn:   fn,
		done: make(chan error, 1),
	}

	select {
	case p.jobQueue <- t:
	case <-jobCtx.Done():
		return p.waitError(ctx, "queued")
	case <-p.quit:
		return errors.NewUnavailable("pool is shutting down")
	}

	select {
	case err := <-t.done:
		return err
	case <-jobCtx.Done():
		return p.waitError(ctx, "running")
	}
}

// waitError 区分调用方取消与超时
func (p *BoundedPool) waitError(parent context.Context, stage string) error {
	if err := parent.Err(); err != nil {
		return errors.WrapWithType(err, errors.ErrorTypeUnavailable, "job cancelled while "+stage)
	}
	p.timedOut.Add(1)
	p.report("pool_timeouts_total", 1)
	return errors.NewTimeout(fmt.Sprintf("job %s longer than %s", stage, p.timeout)).
		WithDetail("stage", stage).
		WithDetail("timeout", p.timeout.String())
}

// worker 工作协程
func (p *BoundedPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.quit:
			return
		case t := <-p.jobQueue:
			p.execute(t)
		}
	}
}

// execute 执行单个任务
func (p *BoundedPool) execute(t *task) {
	if t.ctx.Err() != nil {
		// 提交方已放弃
		return
	}

	n := p.active.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	p.gauge(float64(n))

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = errors.RecoverError(r)
			}
		}()
		err = t.fn(t.ctx)
	}()

	n = p.active.Add(-1)
	p.gauge(float64(n))
	p.completed.Add(1)
	p.report("pool_jobs_total", 1)

	t.done <- err
}

// Stats 返回统计快照
func (p *BoundedPool) Stats() PoolStats {
	return PoolStats{
		Size:      p.size,
		Active:    p.active.Load(),
		Peak:      p.peak.Load(),
		Completed: p.completed.Load(),
		TimedOut:  p.timedOut.Load(),
	}
}

// Close 停止 Worker 池，等待正在执行的任务结束
func (p *BoundedPool) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.quit)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(p.timeout + time.Second):
		return fmt.Errorf("timeout waiting for workers to finish")
	}
}

func (p *BoundedPool) labels() map[string]string {
	return map[string]string{"pool": p.name}
}

func (p *BoundedPool) gauge(v float64) {
	if p.collector != nil {
		p.collector.SetGauge("pool_active_jobs", v, p.labels())
	}
}

func (p *BoundedPool) report(name string, v float64) {
	if p.collector != nil {
		p.collector.AddCounter(name, v, p.labels())
	}
}

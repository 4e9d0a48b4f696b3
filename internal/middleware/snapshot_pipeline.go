package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"MacroCompass/internal/domain/models"
	domrepo "MacroCompass/internal/domain/repository"
	applogger "MacroCompass/pkg/logger"
)

// Sink is the minimal downstream the pipeline needs.
type Sink interface {
	Deliver(ctx context.Context, res *models.RegimeResult) error
}

// ErrBufferFull is returned by Enqueue when the delivery buffer has no room.
var ErrBufferFull = errors.New("snapshot buffer full")

// SnapshotPipeline sits between the regime cache and the snapshot sink.
// It validates and de-duplicates fresh results and hands them to a background
// worker, which delivers them and retries failures with backoff.
type SnapshotPipeline struct {
	sink    Sink
	metrics domrepo.Metrics
	log     *applogger.Logger

	minGap  time.Duration
	bufSize int
	maxWait time.Duration
	bufCh   chan *models.RegimeResult
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool

	mu       sync.Mutex
	lastID   string
	lastSeen time.Time
}

type PipelineOption func(*SnapshotPipeline)

// WithMinInterval drops results computed closer than d to the last accepted
// one. Zero disables the check.
func WithMinInterval(d time.Duration) PipelineOption {
	return func(p *SnapshotPipeline) {
		if d >= 0 {
			p.minGap = d
		}
	}
}

// WithBufferSize sets how many results may wait for delivery.
func WithBufferSize(n int) PipelineOption {
	return func(p *SnapshotPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithMaxBackoff caps the wait between retries.
func WithMaxBackoff(d time.Duration) PipelineOption {
	return func(p *SnapshotPipeline) {
		if d > 0 {
			p.maxWait = d
		}
	}
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *SnapshotPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewSnapshotPipeline creates a new pipeline. Nothing is delivered until
// Start.
func NewSnapshotPipeline(sink Sink, metrics domrepo.Metrics, opts ...PipelineOption) *SnapshotPipeline {
	p := &SnapshotPipeline{
		sink:    sink,
		metrics: metrics,
		log:     applogger.Nop(),
		bufSize: 64,
		maxWait: 30 * time.Second,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.RegimeResult, p.bufSize)
	return p
}

// Start launches the delivery worker.
func (p *SnapshotPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.run(context.WithoutCancel(ctx))
}

func (p *SnapshotPipeline) run(ctx context.Context) {
	defer close(p.doneCh)
	const base = 100 * time.Millisecond
	backoff := base
	for {
		select {
		case <-p.stopCh:
			p.drain(ctx)
			return
		case res := <-p.bufCh:
			if err := p.deliver(ctx, res); err != nil {
				p.log.Warn("snapshot delivery failed",
					applogger.String("id", res.ID),
					applogger.Duration("backoff", backoff),
					applogger.Error(err),
				)
				p.requeue(res)

				select {
				case <-p.stopCh:
					p.drain(ctx)
					return
				case <-time.After(backoff):
				}
				if backoff *= 2; backoff > p.maxWait {
					backoff = p.maxWait
				}
				continue
			}
			backoff = base
		}
	}
}

// drain gives each buffered result one last attempt and gives up on the
// first failure.
func (p *SnapshotPipeline) drain(ctx context.Context) {
	for {
		select {
		case res := <-p.bufCh:
			if err := p.deliver(ctx, res); err != nil {
				dropped := len(p.bufCh) + 1
				p.log.Warn("dropping buffered snapshots",
					applogger.Int("count", dropped),
					applogger.Error(err),
				)
				for len(p.bufCh) > 0 {
					<-p.bufCh
				}
				return
			}
		default:
			return
		}
	}
}

func (p *SnapshotPipeline) deliver(ctx context.Context, res *models.RegimeResult) error {
	start := time.Now()
	if err := p.sink.Deliver(ctx, res); err != nil {
		p.metrics.RecordError("pipeline_deliver")
		return err
	}
	p.metrics.RecordLatency("pipeline_deliver", time.Since(start).Seconds())
	return nil
}

// Stop stops the worker after a final flush of the buffer.
func (p *SnapshotPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		if n := len(p.bufCh); n > 0 {
			p.log.Warn("dropping undelivered snapshots", applogger.Int("count", n))
		}
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
}

// Enqueue validates and de-duplicates res and queues it for delivery without
// waiting on the sink. A dropped duplicate is not an error.
func (p *SnapshotPipeline) Enqueue(res *models.RegimeResult) error {
	if err := validateResult(res); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.accept(res) {
		p.metrics.RecordError("pipeline_duplicate")
		return nil
	}
	if !p.requeue(res) {
		return ErrBufferFull
	}
	return nil
}

// Pending reports results awaiting delivery.
func (p *SnapshotPipeline) Pending() int { return len(p.bufCh) }

// OnRefresh adapts Enqueue to the regime cache refresh hook.
func (p *SnapshotPipeline) OnRefresh(_ context.Context, res *models.RegimeResult) {
	if err := p.Enqueue(res); err != nil {
		p.log.Warn("snapshot not queued", applogger.Error(err))
	}
}

func (p *SnapshotPipeline) requeue(res *models.RegimeResult) bool {
	select {
	case p.bufCh <- res:
		return true
	default:
		p.metrics.RecordError("pipeline_buffer_full")
		return false
	}
}

func (p *SnapshotPipeline) accept(res *models.RegimeResult) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if res.ID == p.lastID {
		return false
	}
	if !p.lastSeen.IsZero() && p.minGap > 0 && res.ComputedAt.Sub(p.lastSeen) < p.minGap {
		return false
	}
	p.lastID = res.ID
	p.lastSeen = res.ComputedAt
	return true
}

func validateResult(res *models.RegimeResult) error {
	if res == nil {
		return fmt.Errorf("result nil")
	}
	if res.ID == "" {
		return fmt.Errorf("result id empty")
	}
	if res.ComputedAt.IsZero() {
		return fmt.Errorf("computed_at missing")
	}
	return nil
}

package async

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
	wrap "github.com/Temutjin2k/schoolbus-hub/pkg/logger/wrapper"
	"github.com/Temutjin2k/schoolbus-hub/pkg/metrics"
)

var ErrPoolClosed = errors.New("async pool closed")

// Task is a unit of background work. Returned errors are logged by the pool.
type Task func(ctx context.Context) error

type job struct {
	ctx  context.Context
	name string
	fn   Task
}

// Pool runs background tasks on a fixed set of workers fed by a bounded queue.
// Submit never blocks: when the queue is full the task is rejected.
type Pool struct {
	workers int
	queue   chan job
	g       *errgroup.Group

	mu     sync.RWMutex
	closed bool

	log logger.Logger
}

func New(workers, queueSize int, log logger.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	return &Pool{
		workers: workers,
		queue:   make(chan job, queueSize),
		g:       &errgroup.Group{},
		log:     log,
	}
}

// Start spawns the workers. Workers exit once Close drains the queue.
func (p *Pool) Start() {
	for range p.workers {
		p.g.Go(func() error {
			for j := range p.queue {
				p.run(j)
			}
			return nil
		})
	}
}

// Submit enqueues fn. The task context keeps the values of ctx (log fields)
// but not its cancellation, so work outlives the request that issued it.
func (p *Pool) Submit(ctx context.Context, name string, fn Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		metrics.RecordAsyncTask(name, "rejected")
		return false
	}

	select {
	case p.queue <- job{ctx: context.WithoutCancel(ctx), name: name, fn: fn}:
		return true
	default:
		metrics.RecordAsyncTask(name, "rejected")
		p.log.Warn(wrap.WithAction(ctx, "async_submit"), "async queue is full, task rejected", "task", name)
		return false
	}
}

// Close stops accepting tasks, waits until queued tasks finish.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	return p.g.Wait()
}

func (p *Pool) run(j job) {
	ctx := wrap.WithAction(j.ctx, j.name)

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordAsyncTask(j.name, "panic")
			p.log.Error(ctx, "async task panicked", fmt.Errorf("%v", r))
		}
	}()

	if err := j.fn(ctx); err != nil {
		metrics.RecordAsyncTask(j.name, "error")
		p.log.Error(wrap.ErrorCtx(ctx, err), "async task failed", err)
		return
	}

	metrics.RecordAsyncTask(j.name, "success")
}

package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/logging"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/metrics"
)

// Job is one unit of webhook work. Run owns its own error reporting.
type Job struct {
	Kind string
	Run  func(ctx context.Context)
}

// Queue runs jobs on a fixed worker pool behind a bounded buffer. Submit never
// blocks: a full buffer drops the job.
type Queue struct {
	jobs    chan Job
	timeout time.Duration
	log     *zap.Logger
	metrics *metrics.Registry

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewQueue(size int, timeout time.Duration, log *zap.Logger, m *metrics.Registry) *Queue {
	if size <= 0 {
		size = 256
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Queue{
		jobs:    make(chan Job, size),
		timeout: timeout,
		log:     logging.OrNop(log),
		metrics: m,
	}
}

func (q *Queue) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func(id int) {
			defer q.wg.Done()
			q.workerLoop(id)
		}(i)
	}
	q.log.Info("workers started", zap.Int("workers", workers), zap.Int("queue_size", cap(q.jobs)))
}

func (q *Queue) Submit(j Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.dropped(j, "queue closed")
		return false
	}
	select {
	case q.jobs <- j:
		q.depth()
		return true
	default:
		q.dropped(j, "queue full")
		return false
	}
}

// Close stops accepting jobs and waits for queued ones to finish or ctx to end.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) workerLoop(id int) {
	for j := range q.jobs {
		q.depth()
		q.run(id, j)
	}
}

func (q *Queue) run(id int, j Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("job panicked", zap.Int("worker", id), zap.String("kind", j.Kind), zap.Any("panic", r))
		}
		if q.metrics != nil {
			q.metrics.JobDuration.Observe(time.Since(start).Seconds())
		}
	}()
	j.Run(ctx)
}

func (q *Queue) depth() {
	if q.metrics != nil {
		q.metrics.QueueDepth.Set(float64(len(q.jobs)))
	}
}

func (q *Queue) dropped(j Job, reason string) {
	q.log.Error("job dropped", zap.String("kind", j.Kind), zap.String("reason", reason))
	if q.metrics != nil {
		q.metrics.QueueDropped.Inc()
	}
}

package feedback

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/expense-assistant/internal/backend"
	"github.com/frahmantamala/expense-assistant/internal/metrics"
)

var (
	ErrQueueFull        = stdErrors.New("feedback queue full")
	ErrDispatcherClosed = stdErrors.New("feedback dispatcher closed")
)

type Job struct {
	Feedback backend.CategoryFeedback
	Enqueued time.Time
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, process func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				return
			}

			select {
			case job := <-w.JobChannel:
				process(job)
			case <-ctx.Done():
				w.Logger.Debug("feedback worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type DispatcherConfig struct {
	Workers   int
	QueueSize int
	// Timeout bounds each delivery to the underlying recorder.
	Timeout time.Duration
}

// Dispatcher delivers feedback to another recorder from a pool of workers,
// so the caller never waits on it. When the queue is full the feedback is
// dropped.
type Dispatcher struct {
	next    backend.FeedbackRecorder
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	pending    sync.WaitGroup
	once       sync.Once
	closeOnce  sync.Once

	mu     sync.Mutex
	closed bool
}

func NewDispatcher(next backend.FeedbackRecorder, cfg DispatcherConfig, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	d := &Dispatcher{
		next:       next,
		timeout:    timeout,
		logger:     logger,
		metrics:    m,
		jobQueue:   make(chan Job, queueSize),
		workerPool: make(chan chan Job, workers),
		maxWorkers: workers,
		ctx:        ctx,
		cancel:     cancel,
	}
	d.start()
	return d
}

func (d *Dispatcher) start() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			NewWorker(i, d.workerPool, d.logger).Start(d.ctx, &d.wg, d.process)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("feedback dispatcher started",
			"workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					d.pending.Done()
					return
				}
			case <-d.ctx.Done():
				d.pending.Done()
				return
			}
		case <-d.ctx.Done():
			return
		}
	}
}

// RecordCategoryFeedback queues fb and returns immediately.
func (d *Dispatcher) RecordCategoryFeedback(_ context.Context, fb backend.CategoryFeedback) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	d.pending.Add(1)
	select {
	case d.jobQueue <- Job{Feedback: fb, Enqueued: time.Now()}:
		return nil
	default:
		d.pending.Done()
		d.metrics.ObserveFeedbackFailure()
		d.logger.Warn("feedback queue full, dropping feedback",
			"chat_id", fb.ChatID,
			"queue_capacity", cap(d.jobQueue))
		return ErrQueueFull
	}
}

func (d *Dispatcher) process(job Job) {
	defer d.pending.Done()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(d.ctx), d.timeout)
	defer cancel()

	if err := d.next.RecordCategoryFeedback(ctx, job.Feedback); err != nil {
		d.metrics.ObserveFeedbackFailure()
		d.logger.Warn("failed to record category feedback",
			"error", err,
			"chat_id", job.Feedback.ChatID,
			"final_category", job.Feedback.FinalCategory)
		return
	}

	d.logger.Debug("category feedback delivered",
		"chat_id", job.Feedback.ChatID,
		"queued_for", time.Since(job.Enqueued))
}

// Shutdown waits for queued feedback to be delivered, or for ctx to end,
// then stops the workers.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	var err error
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		done := make(chan struct{})
		go func() {
			d.pending.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}

		d.cancel()
		d.wg.Wait()

		for dropped := len(d.jobQueue); dropped > 0; dropped-- {
			<-d.jobQueue
			d.pending.Done()
		}
		d.logger.Info("feedback dispatcher stopped")
	})
	return err
}

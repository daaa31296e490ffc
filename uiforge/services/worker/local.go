package worker

import (
	"context"
	"sync"

	"uiforge/uiforge/utils/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalDispatcher runs jobs on a fixed pool of goroutines fed by a bounded queue.
type LocalDispatcher struct {
	proc  JobProcessor
	queue chan Job
	wg    sync.WaitGroup

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
}

func NewLocalDispatcher(proc JobProcessor, workers, queueSize int) *LocalDispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &LocalDispatcher{
		proc:     proc,
		queue:    make(chan Job, queueSize),
		inflight: make(map[uuid.UUID]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.loop()
	}
	return d
}

// Dispatch enqueues job without blocking. A message can be queued only once
// at a time.
func (d *LocalDispatcher) Dispatch(_ context.Context, job Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	if _, busy := d.inflight[job.AssistantMessageID]; busy {
		return ErrAlreadyQueued
	}
	select {
	case d.queue <- job:
		d.inflight[job.AssistantMessageID] = struct{}{}
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *LocalDispatcher) loop() {
	defer d.wg.Done()
	for job := range d.queue {
		d.run(job)
	}
}

func (d *LocalDispatcher) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorLogger.Error("worker recovered from panic",
				zap.String("message_id", job.AssistantMessageID.String()), zap.Any("panic", r))
		}
		d.mu.Lock()
		delete(d.inflight, job.AssistantMessageID)
		d.mu.Unlock()
	}()

	if err := d.proc.Process(d.ctx, job); err != nil {
		logging.ErrorLogger.Error("generation job failed",
			zap.String("message_id", job.AssistantMessageID.String()), zap.Error(err))
	}
}

// Shutdown stops accepting jobs and waits for queued ones. If ctx expires
// first, running provider calls are cancelled.
func (d *LocalDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

// Package workers contains the background processing layer: the worker pool
// consuming the task queues, the task handlers, and the periodic schedulers
// that produce work.
package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"learnlytics-backend/application/tasks"
	"learnlytics-backend/pkg/observability"

	"go.uber.org/zap"
)

// dequeuePoll bounds each dequeue wait so consumers notice shutdown quickly.
const dequeuePoll = time.Second

// Handler processes one task. A returned error marks the task failed; the
// task is not retried.
type Handler func(ctx context.Context, task tasks.Task) error

// WorkerPool runs one consumer goroutine per queue. A handler failure or
// panic is recorded and logged but never stops the consumer, so one bad task
// cannot take a queue down.
type WorkerPool struct {
	queues    *tasks.QueueManager
	handlers  map[tasks.Type]Handler
	stats     *observability.WorkerStats
	collector *observability.Collector
	logger    *zap.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewWorkerPool creates a pool over the given queues and handler table.
func NewWorkerPool(
	queues *tasks.QueueManager,
	handlers map[tasks.Type]Handler,
	stats *observability.WorkerStats,
	collector *observability.Collector,
	logger *zap.Logger,
) *WorkerPool {
	return &WorkerPool{
		queues:    queues,
		handlers:  handlers,
		stats:     stats,
		collector: collector,
		logger:    logger,
	}
}

// Start launches one consumer per queue. Consumers run until Stop is called
// or the parent context is cancelled.
func (p *WorkerPool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.running.Store(true)

	for _, queueName := range p.queues.Names() {
		p.wg.Add(1)
		go p.consume(ctx, queueName)
	}

	p.logger.Info("Worker pool started", zap.Strings("queues", p.queues.Names()))
}

// Stop cancels the consumers and waits for in-flight tasks to finish.
func (p *WorkerPool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.running.Store(false)
	p.logger.Info("Worker pool stopped")
}

// IsRunning reports whether the consumers have been started and not stopped.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

func (p *WorkerPool) consume(ctx context.Context, queueName string) {
	defer p.wg.Done()

	for {
		task, err := p.queues.Dequeue(ctx, queueName, dequeuePoll)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Poll timeout on an idle queue.
			continue
		}
		p.process(ctx, queueName, task)
	}
}

// process dispatches one task through the handler table, recording timing and
// outcome. Panics are contained here.
func (p *WorkerPool) process(ctx context.Context, queueName string, task tasks.Task) {
	handler, ok := p.handlers[task.Type]
	if !ok {
		p.logger.Error("Unknown task type, dropping",
			zap.String("queue", queueName),
			zap.String("taskID", task.ID),
			zap.String("taskType", string(task.Type)),
		)
		p.recordFailure(queueName, task)
		return
	}

	start := time.Now()

	err := p.invoke(ctx, handler, task)
	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Task failed",
			zap.String("queue", queueName),
			zap.String("taskID", task.ID),
			zap.String("taskType", string(task.Type)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		p.recordFailure(queueName, task)
		return
	}

	p.stats.RecordSuccess(duration)
	if p.collector != nil {
		p.collector.TasksProcessed.WithLabelValues(queueName, string(task.Type)).Inc()
		p.collector.TaskDuration.WithLabelValues(queueName, string(task.Type)).Observe(duration.Seconds())
	}

	p.logger.Debug("Task completed",
		zap.String("queue", queueName),
		zap.String("taskID", task.ID),
		zap.String("taskType", string(task.Type)),
		zap.Duration("duration", duration),
	)
}

// invoke runs the handler with panic containment.
func (p *WorkerPool) invoke(ctx context.Context, handler Handler, task tasks.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errPanic{value: r}
			p.logger.Error("Task handler panicked",
				zap.String("taskID", task.ID),
				zap.String("taskType", string(task.Type)),
				zap.Any("panic", r),
			)
		}
	}()
	return handler(ctx, task)
}

func (p *WorkerPool) recordFailure(queueName string, task tasks.Task) {
	p.stats.RecordFailure()
	if p.collector != nil {
		p.collector.TasksFailed.WithLabelValues(queueName, string(task.Type)).Inc()
	}
}

type errPanic struct {
	value interface{}
}

func (e errPanic) Error() string { return fmt.Sprintf("task handler panicked: %v", e.value) }

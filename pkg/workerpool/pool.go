// Package workerpool provides a bounded worker pool for handling realtime
// events as independent tasks without blocking the reader that submitted them.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meditrack/coordination/pkg/logger"
)

// ErrQueueFull is returned by Submit when no queue slot is free
var ErrQueueFull = errors.New("task queue is full")

// ErrStopped is returned by Submit after Stop was called
var ErrStopped = errors.New("pool is shutting down")

// Task is one unit of work. Name is used for logging only.
type Task struct {
	Name string
	Run  func(ctx context.Context)
}

// Config holds worker pool configuration
type Config struct {
	// Workers is the number of concurrent workers
	Workers int
	// QueueSize is the size of the task queue
	QueueSize int
	// GracefulShutdownTimeout bounds how long Stop waits for in-flight tasks
	GracefulShutdownTimeout time.Duration
}

// DefaultConfig returns defaults sized for a single coordination node
func DefaultConfig() Config {
	return Config{
		Workers:                 8,
		QueueSize:               256,
		GracefulShutdownTimeout: 15 * time.Second,
	}
}

// Pool runs submitted tasks on a fixed set of workers
type Pool struct {
	config Config
	logger *logger.Logger

	taskChan chan *Task
	wg       sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc

	tasksSubmitted int64
	tasksCompleted int64
	tasksPanicked  int64
	tasksRejected  int64
	queueDepth     int64
}

// New creates a worker pool. Call Start before submitting.
func New(cfg Config, log *logger.Logger) *Pool {
	if log == nil {
		log = logger.NewNop()
	}
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.GracefulShutdownTimeout <= 0 {
		cfg.GracefulShutdownTimeout = def.GracefulShutdownTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		config:   cfg,
		logger:   log,
		taskChan: make(chan *Task, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches all workers
func (p *Pool) Start() {
	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.WithComponent("workerpool").
		WithField("workers", p.config.Workers).
		WithField("queue_size", p.config.QueueSize).
		Info("Worker pool started")
}

// Submit queues a task without blocking
func (p *Pool) Submit(task *Task) error {
	if task == nil || task.Run == nil {
		return fmt.Errorf("task function is required")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}

	select {
	case p.taskChan <- task:
		atomic.AddInt64(&p.tasksSubmitted, 1)
		atomic.AddInt64(&p.queueDepth, 1)
		return nil
	default:
		atomic.AddInt64(&p.tasksRejected, 1)
		return ErrQueueFull
	}
}

// Stop stops accepting tasks and waits for queued ones to drain
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.taskChan)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	log := p.logger.WithComponent("workerpool")
	select {
	case <-done:
		log.Info("Worker pool stopped gracefully")
	case <-time.After(p.config.GracefulShutdownTimeout):
		log.Warn("Worker pool shutdown timed out")
	}
	p.cancel()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.taskChan {
		atomic.AddInt64(&p.queueDepth, -1)
		p.run(id, task)
	}
}

// run executes one task; a panic is contained to that task
func (p *Pool) run(workerID int, task *Task) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&p.tasksPanicked, 1)
			p.logger.WithComponent("workerpool").
				WithField("task", task.Name).
				WithField("worker_id", workerID).
				WithField("panic", fmt.Sprint(r)).
				Error("Task panicked")
		}
	}()

	task.Run(p.ctx)
	atomic.AddInt64(&p.tasksCompleted, 1)
}

// Stats is a snapshot of pool counters
type Stats struct {
	TasksSubmitted int64
	TasksCompleted int64
	TasksPanicked  int64
	TasksRejected  int64
	QueueDepth     int64
	QueueCapacity  int
	Workers        int
}

// Stats returns current pool statistics
func (p *Pool) Stats() Stats {
	return Stats{
		TasksSubmitted: atomic.LoadInt64(&p.tasksSubmitted),
		TasksCompleted: atomic.LoadInt64(&p.tasksCompleted),
		TasksPanicked:  atomic.LoadInt64(&p.tasksPanicked),
		TasksRejected:  atomic.LoadInt64(&p.tasksRejected),
		QueueDepth:     atomic.LoadInt64(&p.queueDepth),
		QueueCapacity:  p.config.QueueSize,
		Workers:        p.config.Workers,
	}
}

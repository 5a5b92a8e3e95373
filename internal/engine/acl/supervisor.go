package acl

import (
	"context"
	"sync"
	"time"

	"discord-antispam-bot/internal/metrics"

	"go.uber.org/zap"
)

// Task is a unit of low-priority work (alerts, scheduled deletions)
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Supervisor runs fire-and-forget side tasks on a small worker pool.
// Callers never block on it and never see task errors; every failure is
// logged and counted instead.
type Supervisor struct {
	log    *zap.Logger
	queue  chan Task
	ctx    context.Context
	cancel context.CancelFunc

	pending sync.WaitGroup // queued or running tasks
	workers sync.WaitGroup

	mu     sync.Mutex
	closed bool
	timers map[*time.Timer]struct{}
}

// NewSupervisor starts the given number of workers
func NewSupervisor(log *zap.Logger, workers int) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		log:    log,
		queue:  make(chan Task, 1000),
		ctx:    ctx,
		cancel: cancel,
		timers: make(map[*time.Timer]struct{}),
	}
	for i := 0; i < workers; i++ {
		s.workers.Add(1)
		go s.worker()
	}
	return s
}

func (s *Supervisor) worker() {
	defer s.workers.Done()
	for task := range s.queue {
		s.run(task)
	}
}

func (s *Supervisor) run(task Task) {
	defer s.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			metrics.SideTaskFailures.WithLabelValues(task.Name).Inc()
			s.log.Error("side task panicked", zap.String("task", task.Name), zap.Any("panic", r))
		}
	}()

	if err := task.Run(s.ctx); err != nil {
		metrics.SideTaskFailures.WithLabelValues(task.Name).Inc()
		s.log.Warn("side task failed", zap.String("task", task.Name), zap.Error(err))
	}
}

// Go queues a task. When the queue is full the task runs on its own
// goroutine rather than being dropped.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.log.Warn("supervisor closed, side task not started", zap.String("task", name))
		return
	}

	task := Task{Name: name, Run: fn}
	s.pending.Add(1)
	select {
	case s.queue <- task:
	default:
		s.log.Warn("side task queue full, running detached", zap.String("task", name))
		go s.run(task)
	}
}

// After queues a task once the delay has elapsed. Pending delays are
// discarded on Close.
func (s *Supervisor) After(delay time.Duration, name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, t)
		s.mu.Unlock()
		s.Go(name, fn)
	})
	s.timers[t] = struct{}{}
}

// Scheduled returns the number of delayed tasks not yet queued
func (s *Supervisor) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Wait blocks until every queued or running task has finished.
// Delayed tasks that have not fired yet are not waited for.
func (s *Supervisor) Wait() {
	s.pending.Wait()
}

// Close stops accepting work, drops pending delays, drains the queue and
// stops the workers.
func (s *Supervisor) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	s.mu.Unlock()

	s.pending.Wait()
	close(s.queue)
	s.workers.Wait()
	s.cancel()
}

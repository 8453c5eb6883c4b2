package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Worker is a background job owned by the manager
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// Status describes one registered worker
type Status struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
	// StartError is set when the last Start call failed
	StartError string `json:"start_error,omitempty"`
}

type managed struct {
	worker   Worker
	running  bool
	startErr error
}

// WorkerManager starts workers on a shared context and stops the ones that
// actually started
type WorkerManager struct {
	logger *zap.Logger

	mu      sync.RWMutex
	workers []*managed
	running bool
	cancel  context.CancelFunc
}

// NewWorkerManager creates a new worker manager
func NewWorkerManager(logger *zap.Logger) *WorkerManager {
	return &WorkerManager{logger: logger}
}

// Register adds a worker to be managed
func (m *WorkerManager) Register(worker Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, &managed{worker: worker})
	m.logger.Info("Worker registered",
		zap.String("worker_name", worker.Name()),
		zap.Int("total_workers", len(m.workers)))
}

// StartAll starts all registered workers. A worker that fails to start is
// logged, reported by Statuses and skipped.
func (m *WorkerManager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("workers already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	for _, w := range m.workers {
		w.startErr = w.worker.Start(runCtx)
		w.running = w.startErr == nil
		if w.startErr != nil {
			m.logger.Error("Failed to start worker",
				zap.String("worker_name", w.worker.Name()),
				zap.Error(w.startErr))
			continue
		}
		m.logger.Info("Worker started", zap.String("worker_name", w.worker.Name()))
	}

	return nil
}

// StopAll cancels the shared context and stops every started worker
func (m *WorkerManager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false
	if m.cancel != nil {
		m.cancel()
	}

	var errs []error
	for _, w := range m.workers {
		if !w.running {
			continue
		}
		w.running = false
		if err := w.worker.Stop(); err != nil {
			m.logger.Error("Failed to stop worker",
				zap.String("worker_name", w.worker.Name()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", w.worker.Name(), err))
			continue
		}
		m.logger.Info("Worker stopped", zap.String("worker_name", w.worker.Name()))
	}

	return errors.Join(errs...)
}

// Statuses reports every registered worker in registration order
func (m *WorkerManager) Statuses() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Status, 0, len(m.workers))
	for _, w := range m.workers {
		s := Status{Name: w.worker.Name(), Running: w.running}
		if w.startErr != nil {
			s.StartError = w.startErr.Error()
		}
		out = append(out, s)
	}
	return out
}

// GetWorkerCount returns the number of registered workers
func (m *WorkerManager) GetWorkerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workers)
}

// IsRunning returns whether workers are running
func (m *WorkerManager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Package processing runs dataset analysis on an in-process goroutine pool.
// It is the Dispatcher used when no Redis queue is configured.
package processing

import (
	"context"
	"errors"
	"sync"

	"github.com/dharsanguruparan/SheetDrop/internal/logging"
)

// ErrQueueFull is returned by Dispatch when the buffer is saturated.
var ErrQueueFull = errors.New("processing queue full")

// HandlerFunc processes one dataset.
type HandlerFunc func(ctx context.Context, datasetID string) error

// Pool consumes dataset ids with a fixed number of workers.
type Pool struct {
	handler HandlerFunc
	queue   chan string
	workers int
	wg      sync.WaitGroup
}

// New builds a Pool with queue capacity tied to worker count.
func New(handler HandlerFunc, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		handler: handler,
		queue:   make(chan string, workers*16),
		workers: workers,
	}
}

// Start launches the workers. They exit when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Dispatch queues datasetID without blocking.
func (p *Pool) Dispatch(_ context.Context, datasetID string) error {
	select {
	case p.queue <- datasetID:
		return nil
	default:
		logging.Warn().Str("dataset_id", datasetID).Msg("processing queue full, dropping job")
		return ErrQueueFull
	}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-p.queue:
			if err := p.handler(ctx, id); err != nil {
				logging.Error().Err(err).Str("dataset_id", id).Msg("dataset processing failed")
			}
		}
	}
}

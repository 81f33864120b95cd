// Package pool runs the local prime-testing workers: one goroutine per
// compute core pulling candidates from a task queue and pushing confirmed
// probable primes to a result queue.
package pool

import (
	"context"
	"fmt"
	"math/big"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/core"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/queue"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/runstate"
)

// Tester judges a single candidate. Implemented by prime.Oracle.
type Tester interface {
	IsCandidatePrime(n *big.Int) bool
}

// Config configures a Pool.
type Config struct {
	// Workers is the number of testing goroutines. Zero or negative means
	// one per available core, reserving one core for coordination.
	Workers int
}

// DefaultWorkers returns the worker count used when none is configured.
func DefaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// Pool owns the local testing goroutines. Each worker loops while the shared
// run state is running: take a candidate (blocking), test it, and on success
// put it on the result queue (blocking). A cancellation that lands during a
// blocked queue operation ends the loop and discards the in-flight item;
// discarded items are not retried.
type Pool struct {
	workers int
	tester  Tester
	tasks   *queue.Queue
	results *queue.Queue
	state   *runstate.State
	log     core.Logger

	wg      sync.WaitGroup
	running int32 // atomic flag
}

// New creates a Pool wired to the given queues and run state.
func New(cfg Config, tester Tester, tasks, results *queue.Queue, state *runstate.State, logger core.Logger) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = DefaultWorkers()
	}
	if logger == nil {
		logger = core.NewLogger("pool")
	}
	return &Pool{
		workers: cfg.Workers,
		tester:  tester,
		tasks:   tasks,
		results: results,
		state:   state,
		log:     logger,
	}
}

// Start launches the worker goroutines. Starting an already running pool is
// an error.
func (p *Pool) Start() error {
	if !atomic.CompareAndSwapInt32(&p.running, 0, 1) {
		return fmt.Errorf("pool is already running")
	}
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.worker(i + 1)
	}
	p.log.Infof("started %d local workers", p.workers)
	return nil
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	ctx := p.state.Context()

	for p.state.Running() {
		n, err := p.tasks.Take(ctx)
		if err != nil {
			// Cancellation or queue close: shutdown has begun.
			return
		}
		if !p.tester.IsCandidatePrime(n) {
			continue
		}
		if err := p.results.Put(ctx, n); err != nil {
			// In-flight prime discarded, per the no-retry contract.
			if p.state.Running() {
				p.log.Warnf("worker %d: result dropped: %v", id, err)
			}
			return
		}
	}
}

// Stop waits for every worker to terminate, up to ctx's deadline. Stopping a
// pool that was never started, or stopping twice, is a no-op. Stop does not
// itself halt the run state; the shutdown controller does that first.
func (p *Pool) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&p.running, 1, 0) {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("all local workers stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for local workers: %w", ctx.Err())
	}
}

// Workers returns the number of testing goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool has been started and not yet stopped.
func (p *Pool) IsRunning() bool {
	return atomic.LoadInt32(&p.running) == 1
}

package pool

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/prime"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/queue"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/runstate"
)

func TestPool_StartStop(t *testing.T) {
	state := runstate.New(context.Background())
	tasks := queue.NewBounded(2)
	results := queue.NewBounded(2)
	p := New(Config{Workers: 2}, prime.NewOracle(64, 20), tasks, results, state, nil)

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !p.IsRunning() {
		t.Error("IsRunning() = false after Start()")
	}
	if err := p.Start(); err == nil {
		t.Error("second Start() should return an error")
	}

	state.Halt()
	state.Interrupt()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if p.IsRunning() {
		t.Error("IsRunning() = true after Stop()")
	}
	if err := p.Stop(ctx); err != nil {
		t.Errorf("second Stop() error = %v, want nil (no-op)", err)
	}
}

// Four candidates, two of them prime: after the pool drains the queue the
// result queue must hold exactly the two primes.
func TestPool_FiltersPrimes(t *testing.T) {
	state := runstate.New(context.Background())
	tasks := queue.NewBounded(4)
	results := queue.NewBounded(4)
	p := New(Config{Workers: 2}, prime.NewOracle(64, 100), tasks, results, state, nil)

	ctx := context.Background()
	burst := []int64{561, 104729, 104730, 104723} // composite, prime, composite, prime
	for _, v := range burst {
		if err := tasks.Put(ctx, big.NewInt(v)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	takeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	found := map[int64]bool{}
	for i := 0; i < 2; i++ {
		n, err := results.Take(takeCtx)
		if err != nil {
			t.Fatalf("Take() error = %v (got %d of 2 primes)", err, i)
		}
		found[n.Int64()] = true
	}

	if !found[104729] || !found[104723] {
		t.Errorf("primes found = %v, want 104729 and 104723", found)
	}

	// No third result may appear: the composites are discarded.
	if _, ok, _ := results.TryTake(); ok {
		t.Error("a composite was reported as prime")
	}

	state.Halt()
	state.Interrupt()
	stopCtx, cancelStop := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelStop()
	if err := p.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

type stubTester struct {
	verdict bool
}

func (s stubTester) IsCandidatePrime(*big.Int) bool { return s.verdict }

// Interrupting a worker blocked on a full result queue must end its loop and
// discard the in-flight item without retry.
func TestPool_InterruptDiscardsInFlight(t *testing.T) {
	state := runstate.New(context.Background())
	tasks := queue.NewBounded(4)
	results := queue.NewBounded(1)
	p := New(Config{Workers: 1}, stubTester{verdict: true}, tasks, results, state, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		tasks.Put(ctx, big.NewInt(int64(100+i)))
	}

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// The worker fills the single result slot, then parks on the next Put.
	time.Sleep(50 * time.Millisecond)
	state.Halt()
	state.Interrupt()

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v (worker did not exit while blocked)", err)
	}

	if results.Size() != 1 {
		t.Errorf("result queue size = %d, want 1 (in-flight item discarded, not redelivered)", results.Size())
	}
}

func TestDefaultWorkers(t *testing.T) {
	if DefaultWorkers() < 1 {
		t.Errorf("DefaultWorkers() = %d, want at least 1", DefaultWorkers())
	}
}

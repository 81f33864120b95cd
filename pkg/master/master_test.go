package master

import (
	"context"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/config"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/protocol"
)

func testConfig() config.MasterConfig {
	cfg := config.DefaultMasterConfig()
	cfg.Bits = 64
	cfg.Certainty = 20
	cfg.Workers = 2
	cfg.QueueSize = 2
	cfg.RunMinutes = 10 // far beyond the test; shutdown is explicit
	return cfg
}

// A coordinator with a reported prime increments the counter by exactly one
// and survives a full shutdown sequence.
func TestMaster_RecordsPeerResult(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()

	cfg := testConfig()
	cfg.Peers = []string{ln.Addr().String()}
	m := New(cfg, nil)

	runErr := make(chan error, 1)
	go func() {
		runErr <- m.Run(context.Background())
	}()

	conn, err := ln.Accept()
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	defer conn.Close()

	// Play the worker: consume tasks so the coordinator's writer never
	// stalls, and report one known prime.
	dec := protocol.NewDecoder(conn)
	gotClose := make(chan struct{})
	go func() {
		for {
			msg, err := dec.Read()
			if err != nil {
				return
			}
			if msg.Command == protocol.CommandClose {
				close(gotClose)
				return
			}
		}
	}()

	if err := protocol.NewEncoder(conn).WriteResult(big.NewInt(104729)); err != nil {
		t.Fatalf("WriteResult() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for m.PrimeCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := m.PrimeCount(); got != 1 {
		t.Fatalf("PrimeCount() = %d, want 1", got)
	}

	m.Shutdown()
	m.Shutdown() // second call is a no-op

	// The shutdown sequence sends a graceful close before tearing down.
	select {
	case <-gotClose:
	case <-time.After(2 * time.Second):
		t.Error("no close command received during shutdown")
	}

	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not shut down within the bounded wait")
	}
}

// With no peers the coordinator runs its own pool and the timed shutdown
// terminates every thread.
func TestMaster_LocalModeTimedRun(t *testing.T) {
	cfg := testConfig()
	cfg.RunMinutes = 0.005 // 300ms
	m := New(cfg, nil)

	runErr := make(chan error, 1)
	go func() {
		runErr <- m.Run(context.Background())
	}()

	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed run did not shut down")
	}

	if m.state.Running() {
		t.Error("run state still running after timed shutdown")
	}
	if m.pool.IsRunning() {
		t.Error("pool still running after timed shutdown")
	}
}

// An unreachable peer is skipped for the whole run; the run itself proceeds.
func TestMaster_UnreachablePeerIsSkipped(t *testing.T) {
	// Reserve a port, then close it so the dial fails fast.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	dead := ln.Addr().String()
	ln.Close()

	cfg := testConfig()
	cfg.Peers = []string{dead}
	m := New(cfg, nil)

	runErr := make(chan error, 1)
	go func() {
		runErr <- m.Run(context.Background())
	}()

	time.Sleep(100 * time.Millisecond)
	if len(m.conns) != 0 {
		t.Errorf("connections = %d, want 0 for an unreachable peer", len(m.conns))
	}

	m.Shutdown()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not shut down")
	}
}

// Cancelling the parent context triggers the same shutdown sequence early.
func TestMaster_ParentContextCancellation(t *testing.T) {
	cfg := testConfig()
	m := New(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() {
		runErr <- m.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not shut down after context cancellation")
	}
}

func TestPeerAddress(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"10.0.0.5", "10.0.0.5:65000"},
		{"10.0.0.5:9000", "10.0.0.5:9000"},
		{"localhost:notaport", "localhost:65000"},
		{"localhost:", "localhost:65000"},
	}
	for _, tc := range cases {
		if got := peerAddress(tc.in); got != tc.want {
			t.Errorf("peerAddress(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

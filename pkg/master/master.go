// Package master implements the coordinator: it generates candidate values,
// feeds them to local workers or connected peers, records the probable
// primes reported back, and drives the timed shutdown sequence.
package master

import (
	"context"
	"fmt"
	"math/big"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/config"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/core"
	obs "github.com/kemalturksonmez/Large-Primes-Calculator/pkg/observability/prometheus"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/pool"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/prime"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/protocol"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/queue"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/runstate"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/transport"
)

// joinTimeout bounds the shutdown controller's wait for thread termination.
const joinTimeout = 30 * time.Second

// Master is the coordinator. With no peers configured it runs the search on
// local workers only; otherwise it streams candidates to each reachable peer
// and records the results they report. Lost peers are never redialed, and
// tasks in flight to a lost peer are lost with it.
type Master struct {
	cfg     config.MasterConfig
	log     core.Logger
	oracle  *prime.Oracle
	metrics *obs.Metrics

	state   *runstate.State
	tasks   *queue.Queue
	results *queue.Queue // local mode only
	pool    *pool.Pool   // local mode only
	conns   []*transport.Connection
	wg      sync.WaitGroup

	timer      *time.Timer
	metricsSrv *obs.Server
	started    time.Time

	mu         sync.Mutex // guards primeCount, the one explicitly locked state
	primeCount int

	shutdownOnce sync.Once
	done         chan struct{}
}

// New creates a Master from cfg. The config is normalized but must already
// validate.
func New(cfg config.MasterConfig, logger core.Logger) *Master {
	cfg.Normalize()
	if logger == nil {
		logger = core.NewLogger("master")
	}
	return &Master{
		cfg:     cfg,
		log:     logger,
		oracle:  prime.NewOracle(cfg.Bits, cfg.Certainty),
		metrics: obs.GetMetrics(),
		done:    make(chan struct{}),
	}
}

// Run executes one timed search run and blocks until the shutdown sequence
// has completed. Cancelling ctx triggers the same sequence early.
func (m *Master) Run(ctx context.Context) error {
	m.state = runstate.New(ctx)
	m.started = time.Now()
	m.tasks = queue.NewBounded(m.cfg.QueueSize)

	if m.cfg.MetricsAddr != "" {
		srv, err := obs.StartServer(m.cfg.MetricsAddr, m.status, m.log)
		if err != nil {
			m.log.Warnf("metrics endpoint disabled: %v", err)
		} else {
			m.metricsSrv = srv
		}
	}

	local := len(m.cfg.Peers) == 0
	if local {
		m.log.Info("running on this computer only")
	} else {
		m.dialPeers()
	}

	// Every goroutine is registered before any is started: a peer-triggered
	// shutdown must never observe a half-registered WaitGroup.
	total := 2 + 2*len(m.conns)
	if local {
		total++ // result drain
	}
	m.wg.Add(total)

	if local {
		if err := m.startLocal(); err != nil {
			return err
		}
	} else {
		m.startPeerLoops()
	}
	go m.generate()
	go m.sampleQueues()

	m.timer = time.AfterFunc(m.cfg.RunDuration(), m.Shutdown)

	// The parent context ending is an early, externally requested shutdown.
	go func() {
		select {
		case <-ctx.Done():
			m.Shutdown()
		case <-m.done:
		}
	}()

	<-m.done
	return nil
}

// startLocal wires the local worker pool and its result drain. The drain
// goroutine is pre-registered by Run.
func (m *Master) startLocal() error {
	m.results = queue.NewBounded(m.cfg.QueueSize)
	m.pool = pool.New(pool.Config{Workers: m.cfg.Workers}, m.oracle, m.tasks, m.results, m.state, m.log)
	if err := m.pool.Start(); err != nil {
		m.wg.Done()
		return err
	}

	go func() {
		defer m.wg.Done()
		ctx := m.state.Context()
		for m.state.Running() {
			n, err := m.results.Take(ctx)
			if err != nil {
				return
			}
			m.recordPrime(n, 0)
		}
	}()
	return nil
}

// dialPeers dials every configured peer. A peer that cannot be reached is
// skipped for the whole run; the search continues with whoever answered.
func (m *Master) dialPeers() {
	for i, raw := range m.cfg.Peers {
		ordinal := i + 1
		addr := peerAddress(raw)

		netConn, err := net.Dial("tcp", addr)
		if err != nil {
			m.log.Warnf("peer %d: could not open connection to %s: %v", ordinal, addr, err)
			continue
		}

		c := transport.New(netConn, ordinal, m.state, m.log)
		m.conns = append(m.conns, c)
		m.metrics.ConnectedPeers.Inc()
		m.log.Infof("peer %d: connected to %s (session %s)", ordinal, netConn.RemoteAddr(), c.Session())
	}

	if len(m.conns) == 0 {
		m.log.Warn("no peers reachable; run continues without consumers")
	}
}

// startPeerLoops launches the writer/reader pair for every live connection.
// The goroutines are pre-registered by Run.
func (m *Master) startPeerLoops() {
	for _, conn := range m.conns {
		c := conn
		peerLabel := strconv.Itoa(c.Ordinal())

		go func() {
			defer m.wg.Done()
			c.WriteLoop(protocol.CommandTask, m.tasks, func(*big.Int) {
				m.metrics.TasksDispatched.WithLabelValues(peerLabel).Inc()
			})
		}()
		go func() {
			defer m.wg.Done()
			defer m.metrics.ConnectedPeers.Dec()
			c.ReadLoop(transport.Handlers{
				OnResult: func(n *big.Int) {
					m.recordPrime(n, c.Ordinal())
				},
				OnClose: func() {
					// The remote peer asked us to stop. Shutdown joins this
					// reader, so it must run off this goroutine.
					m.log.Infof("peer %d requested shutdown", c.Ordinal())
					go m.Shutdown()
				},
				OnProtocolError: func(error) {
					m.metrics.ProtocolErrors.WithLabelValues(peerLabel).Inc()
				},
			})
		}()
	}
}

// generate is the single candidate-producing goroutine. A full task queue
// blocks it, which is the intended backpressure when consumers are slow.
func (m *Master) generate() {
	defer m.wg.Done()
	ctx := m.state.Context()
	local := len(m.cfg.Peers) == 0

	for m.state.Running() {
		n := m.oracle.NextCandidate()
		if err := m.tasks.Put(ctx, n); err != nil {
			return
		}
		if local {
			m.metrics.TasksDispatched.WithLabelValues("0").Inc()
		}
	}
}

// sampleQueues keeps the queue depth gauges current.
func (m *Master) sampleQueues() {
	defer m.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.metrics.TaskQueueDepth.Set(float64(m.tasks.Size()))
			if m.results != nil {
				m.metrics.ResultQueueDepth.Set(float64(m.results.Size()))
			}
		case <-m.state.Done():
			return
		}
	}
}

// recordPrime counts and reports one probable prime. peer 0 is the local
// worker pool.
func (m *Master) recordPrime(n *big.Int, peer int) {
	m.mu.Lock()
	m.primeCount++
	count := m.primeCount
	m.mu.Unlock()

	fmt.Printf("\nFound %d-bit prime number %d (peer %d):\n     %s\n\n", n.BitLen(), count, peer, n.Text(10))
	m.metrics.PrimesFound.WithLabelValues(strconv.Itoa(peer)).Inc()
}

// PrimeCount returns the number of probable primes recorded so far.
func (m *Master) PrimeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.primeCount
}

func (m *Master) status() obs.Status {
	return obs.Status{
		Service:       "bigprime",
		Role:          "master",
		UptimeSeconds: time.Since(m.started).Seconds(),
		PrimesFound:   m.PrimeCount(),
		Peers:         len(m.conns),
	}
}

// Shutdown runs the coordinator's shutdown sequence exactly once: halt the
// run flag, send a best-effort close to every open peer, interrupt all
// blocked goroutines, join them, release the sockets and queues, and report.
// Calling it again is a no-op.
func (m *Master) Shutdown() {
	m.shutdownOnce.Do(func() {
		m.log.Info("commencing shutdown sequence")
		m.state.Halt()
		if m.timer != nil {
			m.timer.Stop()
		}

		for _, c := range m.conns {
			if err := c.SendClose(); err != nil {
				m.log.Warnf("peer %d: close message failed: %v", c.Ordinal(), err)
			} else {
				m.log.Infof("ending connection with peer %d", c.Ordinal())
			}
		}

		m.state.Interrupt()
		// Socket reads are not context-aware; closing the socket is what
		// unblocks a parked reader.
		for _, c := range m.conns {
			c.Close()
		}
		m.tasks.Close()
		if m.results != nil {
			m.results.Close()
		}

		joinCtx, cancel := context.WithTimeout(context.Background(), joinTimeout)
		defer cancel()
		if m.pool != nil {
			if err := m.pool.Stop(joinCtx); err != nil {
				m.log.Warn(err)
			}
		}
		m.join(joinCtx)

		if m.metricsSrv != nil {
			if err := m.metricsSrv.Stop(); err != nil {
				m.log.Warnf("metrics server stop: %v", err)
			}
		}

		m.log.Infof("system shutting down; %d primes found", m.PrimeCount())
		close(m.done)
	})
}

// join waits for every tracked goroutine, logging progress rather than
// giving up early on a slow thread.
func (m *Master) join(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			m.log.Warn("still waiting for threads to terminate")
		case <-ctx.Done():
			m.log.Error("gave up waiting for threads to terminate")
			return
		}
	}
}

// peerAddress normalizes host[:port] to a dialable address. An unparseable
// port falls back to the default, matching the forgiving CLI contract.
func peerAddress(raw string) string {
	host := raw
	port := config.DefaultPort
	if pos := strings.LastIndex(raw, ":"); pos >= 0 {
		host = raw[:pos]
		if p, err := strconv.Atoi(raw[pos+1:]); err == nil && p >= 0 && p <= 65535 {
			port = p
		}
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

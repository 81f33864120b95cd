// Package worker implements the worker program: it accepts one coordinator
// connection, tests the candidates streamed to it on a local worker pool,
// and reports probable primes back until the coordinator says close.
package worker

import (
	"context"
	"fmt"
	"math/big"
	"net"
	"strconv"
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

// joinTimeout bounds the shutdown wait for thread termination.
const joinTimeout = 30 * time.Second

// Worker mirrors the coordinator's queue pairing on the far side of the
// link: inbound tasks feed the testing queue, the local pool tests them, and
// the writing queue drains results back over the same connection.
type Worker struct {
	cfg     config.WorkerConfig
	log     core.Logger
	oracle  *prime.Oracle
	metrics *obs.Metrics

	listener net.Listener
	conn     *transport.Connection

	state   *runstate.State
	testing *queue.Queue
	writing *queue.Queue
	pool    *pool.Pool
	wg      sync.WaitGroup

	metricsSrv *obs.Server
	started    time.Time

	shutdownOnce sync.Once
	done         chan struct{}
}

// New creates a Worker from cfg. The config is normalized but must already
// validate.
func New(cfg config.WorkerConfig, logger core.Logger) *Worker {
	cfg.Normalize()
	if logger == nil {
		logger = core.NewLogger("worker")
	}
	return &Worker{
		cfg:    cfg,
		log:    logger,
		oracle: prime.NewOracle(0, cfg.Certainty),
		done:   make(chan struct{}),
	}
}

// Listen binds the worker's listening port. A bind failure is fatal to the
// program; the caller terminates with exit code 1.
func (w *Worker) Listen() error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(w.cfg.Port)))
	if err != nil {
		return fmt.Errorf("can't create listening socket on port %d: %w", w.cfg.Port, err)
	}
	w.listener = ln
	w.log.Infof("listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound listener address. Valid after Listen.
func (w *Worker) Addr() net.Addr {
	return w.listener.Addr()
}

// Accept waits for the single coordinator connection and then closes the
// listener; a worker serves exactly one coordinator per run. An accept
// failure is fatal to the program; the caller terminates with exit code 2.
func (w *Worker) Accept() error {
	netConn, err := w.listener.Accept()
	w.listener.Close()
	if err != nil {
		return fmt.Errorf("accept failed: %w", err)
	}
	w.log.Infof("accepted connection from %s", netConn.RemoteAddr())

	w.state = runstate.New(context.Background())
	w.conn = transport.New(netConn, 1, w.state, w.log)
	return nil
}

// Run starts the worker's threads and blocks until the shutdown sequence,
// triggered by a close command or by losing the coordinator link, has
// completed. Valid after Accept.
func (w *Worker) Run() error {
	w.started = time.Now()
	w.metrics = obs.GetMetrics()
	w.testing = queue.NewBounded(w.cfg.QueueSize)
	w.writing = queue.NewBounded(w.cfg.QueueSize)

	if w.cfg.MetricsAddr != "" {
		srv, err := obs.StartServer(w.cfg.MetricsAddr, w.status, w.log)
		if err != nil {
			w.log.Warnf("metrics endpoint disabled: %v", err)
		} else {
			w.metricsSrv = srv
		}
	}

	w.pool = pool.New(pool.Config{Workers: w.cfg.Workers}, w.oracle, w.testing, w.writing, w.state, w.log)
	if err := w.pool.Start(); err != nil {
		return err
	}

	ctx := w.state.Context()
	// Every goroutine is registered before any is started: a close command
	// arriving immediately must never observe a half-registered WaitGroup.
	w.wg.Add(3)
	go w.sampleQueues()
	go func() {
		defer w.wg.Done()
		w.conn.WriteLoop(protocol.CommandResult, w.writing, nil)
	}()
	go func() {
		defer w.wg.Done()
		w.conn.ReadLoop(transport.Handlers{
			OnTask: func(n *big.Int) error {
				w.metrics.TasksReceived.Inc()
				return w.testing.Put(ctx, n)
			},
			OnClose: func() {
				w.log.Info("close command received")
			},
			OnProtocolError: func(error) {
				w.metrics.ProtocolErrors.WithLabelValues("1").Inc()
			},
		})
		// Whether the coordinator said close or the link died, there is no
		// more work coming; begin this process's own shutdown. Shutdown
		// joins this goroutine, so it runs detached.
		go w.Shutdown()
	}()

	<-w.done
	return nil
}

// sampleQueues keeps the queue depth gauges current.
func (w *Worker) sampleQueues() {
	defer w.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.metrics.TaskQueueDepth.Set(float64(w.testing.Size()))
			w.metrics.ResultQueueDepth.Set(float64(w.writing.Size()))
		case <-w.state.Done():
			return
		}
	}
}

func (w *Worker) status() obs.Status {
	return obs.Status{
		Service:       "bigprime",
		Role:          "worker",
		UptimeSeconds: time.Since(w.started).Seconds(),
		Peers:         1,
	}
}

// Shutdown runs the worker's shutdown sequence exactly once: halt the run
// flag, interrupt and join the pool and both connection threads, close the
// socket, and report. Calling it again is a no-op.
func (w *Worker) Shutdown() {
	w.shutdownOnce.Do(func() {
		w.log.Info("commencing shutdown sequence")
		w.state.Halt()
		w.state.Interrupt()
		// Unblocks a reader parked on the socket.
		w.conn.Close()
		w.testing.Close()
		w.writing.Close()

		joinCtx, cancel := context.WithTimeout(context.Background(), joinTimeout)
		defer cancel()
		if err := w.pool.Stop(joinCtx); err != nil {
			w.log.Warn(err)
		}
		w.join(joinCtx)
		w.log.Info("all threads have been stopped")

		w.log.Infof("ending connection to %s", w.conn.RemoteAddr())

		if w.metricsSrv != nil {
			if err := w.metricsSrv.Stop(); err != nil {
				w.log.Warnf("metrics server stop: %v", err)
			}
		}

		w.log.Info("worker shutting down")
		close(w.done)
	})
}

// join waits for the connection threads, logging progress rather than giving
// up early on a slow thread.
func (w *Worker) join(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			w.log.Warn("still waiting for threads to terminate")
		case <-ctx.Done():
			w.log.Error("gave up waiting for threads to terminate")
			return
		}
	}
}

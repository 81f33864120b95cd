// Package transport owns the per-peer connection: one socket, one ordinal
// peer identity, and the reader/writer loops that move protocol commands
// between the wire and the work queues.
package transport

import (
	"math/big"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/core"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/protocol"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/queue"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/runstate"
)

// Handlers routes decoded commands to the owning role. A nil handler marks
// the command as unexpected for that role; receiving it is a protocol error.
type Handlers struct {
	// OnTask receives a candidate to test (worker side).
	OnTask func(n *big.Int) error

	// OnResult receives a confirmed probable prime (coordinator side).
	OnResult func(n *big.Int)

	// OnClose is invoked when the peer requests a graceful shutdown.
	OnClose func()

	// OnProtocolError observes recoverable decode errors after they are
	// logged. Optional; used to feed metrics.
	OnProtocolError func(err error)
}

// Connection pairs one bidirectional socket with exactly one reader loop and
// one writer loop. The ordinal identifies the peer in logs and results; the
// session id exists for logs and metrics only and never crosses the wire.
type Connection struct {
	conn    net.Conn
	ordinal int
	session uuid.UUID
	state   *runstate.State
	log     core.Logger

	writeMu sync.Mutex // serializes the writer loop and SendClose
	enc     *protocol.Encoder
	dec     *protocol.Decoder

	closeOnce sync.Once
	closeErr  error
}

// New wraps conn as a protocol connection with the given peer ordinal.
func New(conn net.Conn, ordinal int, state *runstate.State, logger core.Logger) *Connection {
	if logger == nil {
		logger = core.NewLogger("peer")
	}
	return &Connection{
		conn:    conn,
		ordinal: ordinal,
		session: uuid.New(),
		state:   state,
		log:     logger,
		enc:     protocol.NewEncoder(conn),
		dec:     protocol.NewDecoder(conn),
	}
}

// Ordinal returns the peer ordinal assigned at connect time.
func (c *Connection) Ordinal() int {
	return c.ordinal
}

// Session returns the connection's session id.
func (c *Connection) Session() uuid.UUID {
	return c.session
}

// RemoteAddr returns the peer's network address.
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// WriteLoop drains src onto the wire, framing every value with command
// (task on the coordinator side, result on the worker side) and flushing per
// message. onSend, if non-nil, observes each value written. The loop ends
// when the run state halts, the queue unblocks with a cancellation, or the
// socket dies. Single writer per connection keeps the on-wire order equal to
// queue order.
func (c *Connection) WriteLoop(command string, src *queue.Queue, onSend func(n *big.Int)) {
	ctx := c.state.Context()

	for c.state.Running() {
		n, err := src.Take(ctx)
		if err != nil {
			return
		}

		c.writeMu.Lock()
		err = c.enc.Write(command, n)
		c.writeMu.Unlock()

		if err != nil {
			// Socket failure: the value in flight is lost, no redelivery.
			if c.state.Running() {
				c.log.Warnf("peer %d: write failed, stopping writer: %v", c.ordinal, err)
			}
			return
		}
		if onSend != nil {
			onSend(n)
		}
	}
}

// ReadLoop parses the inbound stream and dispatches each command through h.
// Decode failures are logged and the loop continues; they never crash the
// process or enqueue a malformed value. I/O failures end the loop, silently
// once the run state has already halted. A close command is dispatched and
// ends the loop.
func (c *Connection) ReadLoop(h Handlers) {
	for c.state.Running() {
		msg, err := c.dec.Read()
		if err != nil {
			if protocol.IsProtocolError(err) {
				c.log.Warnf("peer %d: protocol error: %v", c.ordinal, err)
				if h.OnProtocolError != nil {
					h.OnProtocolError(err)
				}
				continue
			}
			if c.state.Running() {
				c.log.Warnf("peer %d: connection lost: %v", c.ordinal, err)
			}
			return
		}

		switch msg.Command {
		case protocol.CommandClose:
			if h.OnClose != nil {
				h.OnClose()
			}
			return
		case protocol.CommandTask:
			if h.OnTask == nil {
				c.unexpected(msg.Command, h)
				continue
			}
			if err := h.OnTask(msg.Value); err != nil {
				// Cancellation while enqueueing: shutdown has begun.
				return
			}
		case protocol.CommandResult:
			if h.OnResult == nil {
				c.unexpected(msg.Command, h)
				continue
			}
			h.OnResult(msg.Value)
		}
	}
}

func (c *Connection) unexpected(command string, h Handlers) {
	c.log.Warnf("peer %d: unexpected %s command for this role", c.ordinal, command)
	if h.OnProtocolError != nil {
		h.OnProtocolError(protocol.ErrUnknownCommand)
	}
}

// SendClose writes the graceful close command directly, bypassing the work
// queue. It is the only message not drawn from a queue, sent once per peer by
// the shutdown controller before the writer is interrupted. Best-effort.
func (c *Connection) SendClose() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.enc.WriteClose()
}

// Close closes the socket, unblocking a reader parked in a blocking read.
// Safe to call more than once; later calls return the first result.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

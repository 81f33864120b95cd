// Package protocol implements the wire protocol between a coordinator and
// its workers: three commands, each framed as a single text line holding the
// command token and, for task and result, the candidate value in decimal.
//
//	task <decimal>    coordinator -> worker, candidate to test
//	result <decimal>  worker -> coordinator, confirmed probable prime
//	close             coordinator -> worker, graceful shutdown request
//
// The protocol is not versioned; both ends must agree on this framing.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"
)

const (
	// CommandTask signals an outgoing candidate, followed by its value.
	CommandTask = "task"

	// CommandResult signals an incoming probable prime, followed by its value.
	CommandResult = "result"

	// CommandClose is the first and only word of a close command.
	CommandClose = "close"
)

var (
	// ErrUnknownCommand is returned when a line does not start with a
	// recognized command token.
	ErrUnknownCommand = errors.New("unknown protocol command")

	// ErrBadPayload is returned when a task or result payload does not
	// parse as a decimal big integer.
	ErrBadPayload = errors.New("malformed protocol payload")
)

// maxLineBytes bounds a single protocol line. A 1MB line allows candidates
// of well over a million bits, far beyond any practical search width.
const maxLineBytes = 1 << 20

// Message is one decoded protocol command. Value is nil for close.
type Message struct {
	Command string
	Value   *big.Int
}

// IsProtocolError reports whether err is a recoverable decode error (bad
// token or payload) as opposed to an I/O failure that ends the connection.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrUnknownCommand) || errors.Is(err, ErrBadPayload)
}

// Encoder writes protocol commands onto a byte stream. Safe for use by one
// writer goroutine plus the shutdown controller's direct close message, which
// callers serialize with their own mutex.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder creates an Encoder over w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Write emits one command line and flushes it. value must be non-nil for
// task and result and is ignored for close.
func (e *Encoder) Write(command string, value *big.Int) error {
	switch command {
	case CommandTask, CommandResult:
		if value == nil {
			return fmt.Errorf("%w: %s requires a value", ErrBadPayload, command)
		}
		if _, err := e.w.WriteString(command + " " + value.Text(10) + "\n"); err != nil {
			return err
		}
	case CommandClose:
		if _, err := e.w.WriteString(CommandClose + "\n"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
	return e.w.Flush()
}

// WriteTask emits a task command carrying the candidate n.
func (e *Encoder) WriteTask(n *big.Int) error {
	return e.Write(CommandTask, n)
}

// WriteResult emits a result command carrying the probable prime n.
func (e *Encoder) WriteResult(n *big.Int) error {
	return e.Write(CommandResult, n)
}

// WriteClose emits the payload-free close command.
func (e *Encoder) WriteClose() error {
	return e.Write(CommandClose, nil)
}

// Decoder parses an inbound byte stream into protocol messages. A Decoder is
// owned by a single reader goroutine.
type Decoder struct {
	mu sync.Mutex
	s  *bufio.Scanner
}

// NewDecoder creates a Decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 4096), maxLineBytes)
	return &Decoder{s: s}
}

// Read blocks until one full command line has arrived and returns it.
// Decode failures return an error satisfying IsProtocolError and leave the
// stream positioned at the next line, so the caller's loop can continue.
// Stream exhaustion returns io.EOF; other I/O failures return the underlying
// error.
func (d *Decoder) Read() (Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.s.Scan() {
		if err := d.s.Err(); err != nil {
			return Message{}, err
		}
		return Message{}, io.EOF
	}

	line := strings.TrimRight(d.s.Text(), "\r")
	token, payload, hasPayload := strings.Cut(line, " ")

	switch token {
	case CommandClose:
		return Message{Command: CommandClose}, nil
	case CommandTask, CommandResult:
		if !hasPayload || payload == "" {
			return Message{}, fmt.Errorf("%w: %s without a value", ErrBadPayload, token)
		}
		n, ok := new(big.Int).SetString(payload, 10)
		if !ok {
			return Message{}, fmt.Errorf("%w: %q is not a decimal integer", ErrBadPayload, payload)
		}
		return Message{Command: token, Value: n}, nil
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownCommand, token)
	}
}

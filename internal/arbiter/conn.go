// Package arbiter implements the Network Arbiter of spec.md §4.5: it accepts
// one TCP connection per seat, translates the wire protocol into engine
// actions, enforces turn order and per-turn deadlines, and drives a Match
// Controller across hands.
package arbiter

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/pokerforbots/internal/protocol"
)

const (
	writeWait = 10 * time.Second
	sendQueue = 256
)

// ErrConnClosed is returned by SendMessage once the connection has shut down.
var ErrConnClosed = errors.New("arbiter: connection closed")

// ErrSendTimeout is returned by SendMessage when the outbound queue is full.
var ErrSendTimeout = errors.New("arbiter: send timeout")

// seatConn is the per-seat outbound queue and read pump described in
// spec.md §5: the engine posts to this queue, never to the socket directly,
// and exactly one writer goroutine owns the socket.
type seatConn struct {
	seatID int
	nc     net.Conn
	r      *bufio.Reader
	send   chan []byte

	mu           sync.RWMutex
	closed       bool
	done         chan struct{}
	disconnected bool

	actions chan protocol.PlayerActionPayload

	logger zerolog.Logger
}

func newSeatConn(seatID int, nc net.Conn, r *bufio.Reader, logger zerolog.Logger) *seatConn {
	return &seatConn{
		seatID:  seatID,
		nc:      nc,
		r:       r,
		send:    make(chan []byte, sendQueue),
		done:    make(chan struct{}),
		actions: make(chan protocol.PlayerActionPayload, 8),
		logger:  logger.With().Int("seat_id", seatID).Logger(),
	}
}

func (c *seatConn) close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		c.disconnected = true
		close(c.done)
	}
	c.mu.Unlock()
}

// Done returns a channel closed once the connection has shut down.
func (c *seatConn) Done() <-chan struct{} {
	return c.done
}

// Disconnected reports whether the connection is known to be gone, per
// spec.md §5's "disconnect while not on turn" rule.
func (c *seatConn) Disconnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.disconnected
}

// SendMessage encodes kind/payload and enqueues it on this seat's outbound
// queue, maintaining the per-seat in-order delivery guarantee of spec.md §5.
func (c *seatConn) SendMessage(kind protocol.Kind, payload any) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConnClosed
	}
	c.mu.RUnlock()

	line, err := protocol.MarshalLine(kind, payload)
	if err != nil {
		return err
	}

	select {
	case c.send <- line:
		return nil
	case <-c.done:
		return ErrConnClosed
	case <-time.After(writeWait):
		return ErrSendTimeout
	}
}

// readPump decodes newline-delimited envelopes from the socket and routes
// PLAYER_ACTION payloads onto actions; every other inbound kind is logged
// and dropped (spec.md §7 class 1).
func (c *seatConn) readPump() {
	defer c.close()

	for {
		env, err := protocol.ReadEnvelope(c.r)
		if err != nil {
			return
		}

		switch env.Type {
		case protocol.KindPlayerAction:
			var payload protocol.PlayerActionPayload
			if err := env.Decode(&payload); err != nil {
				c.logger.Warn().Err(err).Msg("malformed player_action payload, dropped")
				continue
			}
			select {
			case c.actions <- payload:
			default:
				c.logger.Warn().Msg("action queue full, dropping stale action")
			}
		case protocol.KindMessage:
			// free-text status; non-semantic, nothing to do.
		default:
			c.logger.Warn().Int("kind", int(env.Type)).Msg("unexpected inbound message kind, dropped")
		}
	}
}

// writePump owns the socket for writing, draining the outbound queue in
// order (spec.md §5's single-writer-task rule).
func (c *seatConn) writePump() {
	defer func() {
		_ = c.nc.Close()
		c.close()
	}()

	for {
		select {
		case line, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.nc.SetWriteDeadline(time.Now().Add(writeWait))
			if _, err := c.nc.Write(line); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

package rcon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// State is the connection lifecycle position. Closed is terminal.
type State int32

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	default:
		return "closed"
	}
}

// aLongTimeAgo is a non-zero past deadline used to force pending I/O to fail.
var aLongTimeAgo = time.Unix(1, 0)

// Conn drives the console protocol over an established transport stream. It
// owns the stream exclusively: nothing else may read from or write to it.
//
// All operations serialize on a single mutex acquired in call order, so
// concurrent callers compose without ever attributing a response to the
// wrong command. Holding the mutex across the full write/read round trip is
// the ordering discipline the protocol requires: responses carry no reliable
// attribution across overlapping commands.
type Conn struct {
	cfg Config
	log zerolog.Logger

	mu      sync.Mutex
	conn    net.Conn
	reader  *FrameReader
	tracker *Tracker
	state   State
	reason  error
	readBuf []byte

	closing atomic.Bool
}

// NewConn wraps an established, ordered, reliable byte stream. The engine
// assumes exclusive ownership of conn from this point on.
func NewConn(conn net.Conn, cfg Config) *Conn {
	cfg = cfg.WithDefaults()
	return &Conn{
		cfg:     cfg,
		log:     cfg.Logger.With().Str("component", "rcon").Logger(),
		conn:    conn,
		reader:  NewFrameReader(cfg.MaxPacketSize),
		tracker: NewTracker(cfg.StartID),
		state:   StateUnauthenticated,
		readBuf: make([]byte, cfg.ReadBufferSize),
	}
}

// State reports the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CloseReason reports why the connection closed, or nil while it is live.
func (c *Conn) CloseReason() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Authenticate performs the protocol handshake. The server answers a valid
// password with an empty ResponseValue echo followed by an AuthResponse
// carrying the attempt's ID; a rejected password arrives as an AuthResponse
// with the reserved failure ID and closes the connection. One successful call
// per connection is the contract; calling again on a ready connection fails
// with ErrInvalidState and leaves the connection usable.
func (c *Conn) Authenticate(ctx context.Context, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClosed:
		return c.closedErrLocked()
	case StateReady, StateAuthenticating:
		return fmt.Errorf("%w: already authenticated", ErrInvalidState)
	}

	c.state = StateAuthenticating
	pending := c.tracker.RegisterAuth()

	frame, err := Encode(Packet{ID: pending.ID, Type: TypeAuth, Body: []byte(password)}, c.cfg.MaxPacketSize)
	if err != nil {
		// Nothing hit the wire; the connection stays usable.
		c.tracker.Complete(pending)
		c.state = StateUnauthenticated
		return err
	}

	deadline := time.Now().Add(c.cfg.HandshakeTimeout)
	stop := c.watchCancel(ctx)
	defer stop()

	// The password is never logged.
	c.log.Debug().Int32("id", pending.ID).Msg("sending auth request")
	handshakeTimeout := fmt.Errorf("%w: no auth verdict within %s", ErrProtocolViolation, c.cfg.HandshakeTimeout)
	if err := c.writeLocked(frame, deadline); err != nil {
		return c.opFailureLocked(ctx, err, handshakeTimeout)
	}

	sawEcho := false
	for {
		p, err := c.readLocked(deadline)
		if err != nil {
			return c.opFailureLocked(ctx, err, handshakeTimeout)
		}
		route, _ := c.tracker.Resolve(p)
		switch route {
		case RouteAuthEcho:
			if sawEcho {
				return c.failLocked(fmt.Errorf("%w: duplicate auth echo", ErrProtocolViolation))
			}
			sawEcho = true
		case RouteAuthResult:
			if !sawEcho && !c.cfg.AllowMissingAuthEcho {
				return c.failLocked(fmt.Errorf("%w: auth verdict arrived before response echo", ErrProtocolViolation))
			}
			c.tracker.Complete(pending)
			c.state = StateReady
			c.log.Info().Int32("id", pending.ID).Msg("authenticated")
			return nil
		case RouteAuthDenied:
			c.failLocked(ErrAuthFailed)
			return ErrAuthFailed
		default:
			return c.failLocked(fmt.Errorf("%w: unexpected packet id=%d type=%d during handshake", ErrProtocolViolation, p.ID, p.Type))
		}
	}
}

// Execute runs one command and returns the fully reassembled response text.
// The command is issued as a pair: the real packet plus a zero-body sentinel
// command right behind it. Fragments carrying the command's ID accumulate in
// arrival order; the sentinel's reply marks completion and is discarded.
func (c *Conn) Execute(ctx context.Context, command string) (string, error) {
	// Callers line up here in call order; at most one command is in flight.
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClosed:
		return "", c.closedErrLocked()
	case StateUnauthenticated, StateAuthenticating:
		return "", fmt.Errorf("%w: authenticate first", ErrNotReady)
	}

	pending := c.tracker.RegisterCommand()
	frame, err := Encode(Packet{ID: pending.ID, Type: TypeExecCommand, Body: []byte(command)}, c.cfg.MaxPacketSize)
	if err != nil {
		c.tracker.Complete(pending)
		return "", err
	}
	sentinel, err := Encode(Packet{ID: pending.SentinelID, Type: TypeExecCommand}, c.cfg.MaxPacketSize)
	if err != nil {
		c.tracker.Complete(pending)
		return "", err
	}

	deadline := time.Now().Add(c.cfg.ResponseTimeout)
	stop := c.watchCancel(ctx)
	defer stop()

	c.log.Debug().
		Int32("id", pending.ID).
		Int32("sentinel_id", pending.SentinelID).
		Str("command", command).
		Msg("executing command")

	// Fragmentation state cannot be resumed after a timeout; a partial read
	// would corrupt the framing of every later operation.
	responseTimeout := fmt.Errorf("%w: sentinel reply not received within %s", ErrResponseTimeout, c.cfg.ResponseTimeout)
	if err := c.writeLocked(append(frame, sentinel...), deadline); err != nil {
		return "", c.opFailureLocked(ctx, err, responseTimeout)
	}

	for {
		p, err := c.readLocked(deadline)
		if err != nil {
			return "", c.opFailureLocked(ctx, err, responseTimeout)
		}
		switch route, _ := c.tracker.Resolve(p); route {
		case RouteFragment:
			pending.Response.Append(p.Body)
		case RouteSentinel:
			c.tracker.Complete(pending)
			c.log.Debug().
				Int32("id", pending.ID).
				Int("fragments", pending.Response.Fragments()).
				Msg("command response assembled")
			return pending.Response.Assemble(), nil
		default:
			c.log.Warn().
				Int32("id", p.ID).
				Int32("type", p.Type).
				Msg("dropping unsolicited packet")
		}
	}
}

// Close transitions to Closed and fails all pending operations. Safe to call
// while an operation is in flight: the transport is shut down first, which
// unblocks any pending read. Close is idempotent and always returns nil.
func (c *Conn) Close() error {
	c.closing.Store(true)
	_ = c.conn.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateClosed {
		c.failLocked(fmt.Errorf("%w: closed by caller", ErrConnClosed))
	}
	return nil
}

// failLocked is the single transition into Closed. Irreversible.
func (c *Conn) failLocked(reason error) error {
	if c.state == StateClosed {
		return c.reason
	}
	c.state = StateClosed
	c.reason = reason
	c.tracker.FailAll(reason)
	_ = c.conn.Close()
	c.log.Info().Err(reason).Msg("connection closed")
	return reason
}

func (c *Conn) closedErrLocked() error {
	switch {
	case c.reason == nil:
		return ErrConnClosed
	case errors.Is(c.reason, ErrConnClosed):
		return c.reason
	default:
		return fmt.Errorf("%w: %s", ErrConnClosed, c.reason)
	}
}

// opFailureLocked maps a transport-level failure onto the engine taxonomy and
// closes the connection. timeoutErr names what a deadline expiry means for
// the operation in progress.
func (c *Conn) opFailureLocked(ctx context.Context, err error, timeoutErr error) error {
	switch {
	case c.closing.Load():
		return c.failLocked(fmt.Errorf("%w: closed by caller", ErrConnClosed))
	case ctx.Err() != nil:
		// A cancelled wait cannot retract the wire operation, so the stream
		// can no longer be trusted; cancellation is fatal.
		return c.failLocked(fmt.Errorf("rcon: canceled: %w", ctx.Err()))
	case errors.Is(err, ErrMalformedPacket):
		return c.failLocked(err)
	case isTimeout(err):
		return c.failLocked(timeoutErr)
	default:
		return c.failLocked(fmt.Errorf("rcon: transport: %w", err))
	}
}

// watchCancel forces any blocking transport I/O to fail once ctx is done.
func (c *Conn) watchCancel(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(aLongTimeAgo)
	})
}

// readLocked blocks until one complete packet is available or the deadline
// expires.
func (c *Conn) readLocked(deadline time.Time) (Packet, error) {
	for {
		p, ok, err := c.reader.Next()
		if err != nil {
			return Packet{}, err
		}
		if ok {
			return p, nil
		}
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return Packet{}, err
		}
		n, err := c.conn.Read(c.readBuf)
		if n > 0 {
			c.reader.Feed(c.readBuf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Packet{}, fmt.Errorf("stream closed by peer: %w", err)
			}
			return Packet{}, err
		}
	}
}

func (c *Conn) writeLocked(frame []byte, deadline time.Time) error {
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	_, err := c.conn.Write(frame)
	return err
}

func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

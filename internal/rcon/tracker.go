package rcon

// Kind classifies a pending logical operation.
type Kind int

const (
	KindAuth Kind = iota
	KindCommand
)

// Route is the tracker's decision about where an inbound packet belongs.
type Route int

const (
	// RouteAuthEcho is the empty ResponseValue the server emits before the
	// auth verdict. Protocol artifact: consumed and discarded, never
	// surfaced to the caller.
	RouteAuthEcho Route = iota

	// RouteAuthResult is the AuthResponse matching the pending auth attempt.
	RouteAuthResult

	// RouteAuthDenied is an AuthResponse carrying the reserved failure ID.
	RouteAuthDenied

	// RouteFragment is a ResponseValue belonging to the pending command.
	RouteFragment

	// RouteSentinel is the reply to the pending command's sentinel, marking
	// the end of the fragmented response.
	RouteSentinel

	// RouteUnsolicited matches no pending operation.
	RouteUnsolicited
)

func (r Route) String() string {
	switch r {
	case RouteAuthEcho:
		return "auth_echo"
	case RouteAuthResult:
		return "auth_result"
	case RouteAuthDenied:
		return "auth_denied"
	case RouteFragment:
		return "fragment"
	case RouteSentinel:
		return "sentinel"
	default:
		return "unsolicited"
	}
}

// Pending is one outstanding logical operation. The tracker owns it from
// Register until Complete or FailAll.
type Pending struct {
	ID   int32
	Kind Kind

	// SentinelID is the correlation ID of the zero-body command issued right
	// behind a real command to mark the end of its response. Commands only.
	SentinelID int32

	// Response accumulates fragment bodies for command operations.
	Response Aggregator

	failure error
}

// Err reports the terminal error assigned by FailAll, if any.
func (p *Pending) Err() error {
	return p.failure
}

// Tracker allocates correlation IDs and matches inbound packets to the
// operation that requested them. It is not safe for concurrent use; the
// connection serializes access.
type Tracker struct {
	next int32
	auth *Pending
	cmd  *Pending
}

// NewTracker starts ID allocation at startID. Non-positive values fall back
// to 1 so the reserved failure ID can never be handed out immediately.
func NewTracker(startID int32) *Tracker {
	if startID <= 0 {
		startID = 1
	}
	return &Tracker{next: startID}
}

// allocID returns the next correlation ID. The counter wraps on int32
// overflow and skips the reserved AuthFailedID.
func (t *Tracker) allocID() int32 {
	id := t.next
	t.next++
	if t.next == AuthFailedID {
		t.next++
	}
	return id
}

// RegisterAuth creates the pending auth attempt. At most one may exist.
func (t *Tracker) RegisterAuth() *Pending {
	p := &Pending{ID: t.allocID(), Kind: KindAuth}
	t.auth = p
	return p
}

// RegisterCommand creates a pending command operation along with its
// fragmentation sentinel ID.
func (t *Tracker) RegisterCommand() *Pending {
	p := &Pending{ID: t.allocID(), Kind: KindCommand}
	p.SentinelID = t.allocID()
	t.cmd = p
	return p
}

// Resolve decides which pending operation an inbound packet belongs to.
// The AuthResponse/ExecCommand tag ambiguity is settled here, by context:
// tag 2 means an auth verdict only while an auth attempt is pending.
func (t *Tracker) Resolve(p Packet) (Route, *Pending) {
	if t.auth != nil {
		switch {
		case p.Type == TypeAuthResponse && p.ID == AuthFailedID:
			return RouteAuthDenied, t.auth
		case p.Type == TypeAuthResponse && p.ID == t.auth.ID:
			return RouteAuthResult, t.auth
		case p.Type == TypeResponseValue && p.ID == t.auth.ID:
			return RouteAuthEcho, t.auth
		}
	}
	if t.cmd != nil {
		switch p.ID {
		case t.cmd.ID:
			return RouteFragment, t.cmd
		case t.cmd.SentinelID:
			return RouteSentinel, t.cmd
		}
	}
	return RouteUnsolicited, nil
}

// Complete releases a finished pending operation.
func (t *Tracker) Complete(p *Pending) {
	if t.auth == p {
		t.auth = nil
	}
	if t.cmd == p {
		t.cmd = nil
	}
}

// FailAll resolves every outstanding operation with a terminal error. Called
// exactly once, when the connection closes.
func (t *Tracker) FailAll(err error) {
	if t.auth != nil {
		t.auth.failure = err
		t.auth = nil
	}
	if t.cmd != nil {
		t.cmd.failure = err
		t.cmd = nil
	}
}

package rcon

import (
	"errors"
	"math"
	"testing"

	"github.com/rconduit/rconduit/internal/testutil/testlog"
)

func TestTrackerAllocatesMonotonicIDs(t *testing.T) {
	testlog.Start(t)
	tr := NewTracker(1)
	if id := tr.allocID(); id != 1 {
		t.Fatalf("first id: %d", id)
	}
	if id := tr.allocID(); id != 2 {
		t.Fatalf("second id: %d", id)
	}
}

func TestTrackerWrapsOnOverflowSkippingFailureID(t *testing.T) {
	testlog.Start(t)
	tr := NewTracker(math.MaxInt32)
	if id := tr.allocID(); id != math.MaxInt32 {
		t.Fatalf("expected MaxInt32, got %d", id)
	}
	if id := tr.allocID(); id != math.MinInt32 {
		t.Fatalf("expected wrap to MinInt32, got %d", id)
	}
	tr.next = -2
	if id := tr.allocID(); id != -2 {
		t.Fatalf("expected -2, got %d", id)
	}
	// -1 is reserved for the server's auth-failure signal.
	if id := tr.allocID(); id != 0 {
		t.Fatalf("expected skip to 0, got %d", id)
	}
}

func TestTrackerRoutesAuthSequence(t *testing.T) {
	testlog.Start(t)
	tr := NewTracker(7)
	auth := tr.RegisterAuth()
	if auth.ID != 7 {
		t.Fatalf("unexpected auth id: %d", auth.ID)
	}

	route, p := tr.Resolve(Packet{ID: auth.ID, Type: TypeResponseValue})
	if route != RouteAuthEcho || p != auth {
		t.Fatalf("expected auth echo, got %s", route)
	}
	route, _ = tr.Resolve(Packet{ID: auth.ID, Type: TypeAuthResponse})
	if route != RouteAuthResult {
		t.Fatalf("expected auth result, got %s", route)
	}
	route, _ = tr.Resolve(Packet{ID: AuthFailedID, Type: TypeAuthResponse})
	if route != RouteAuthDenied {
		t.Fatalf("expected auth denied, got %s", route)
	}

	tr.Complete(auth)
	route, _ = tr.Resolve(Packet{ID: auth.ID, Type: TypeAuthResponse})
	if route != RouteUnsolicited {
		t.Fatalf("completed auth should not route, got %s", route)
	}
}

func TestTrackerRoutesCommandAndSentinel(t *testing.T) {
	testlog.Start(t)
	tr := NewTracker(10)
	cmd := tr.RegisterCommand()
	if cmd.SentinelID == cmd.ID {
		t.Fatalf("sentinel id must differ from command id")
	}

	route, p := tr.Resolve(Packet{ID: cmd.ID, Type: TypeResponseValue, Body: []byte("frag")})
	if route != RouteFragment || p != cmd {
		t.Fatalf("expected fragment, got %s", route)
	}
	route, _ = tr.Resolve(Packet{ID: cmd.SentinelID, Type: TypeResponseValue})
	if route != RouteSentinel {
		t.Fatalf("expected sentinel, got %s", route)
	}
	route, _ = tr.Resolve(Packet{ID: 9999, Type: TypeResponseValue})
	if route != RouteUnsolicited {
		t.Fatalf("expected unsolicited, got %s", route)
	}
}

func TestTrackerFailAllResolvesOutstanding(t *testing.T) {
	testlog.Start(t)
	tr := NewTracker(1)
	cmd := tr.RegisterCommand()

	failure := errors.New("connection torn down")
	tr.FailAll(failure)

	if !errors.Is(cmd.Err(), failure) {
		t.Fatalf("expected terminal error on pending command, got %v", cmd.Err())
	}
	route, _ := tr.Resolve(Packet{ID: cmd.ID, Type: TypeResponseValue})
	if route != RouteUnsolicited {
		t.Fatalf("failed pending should not route, got %s", route)
	}
}

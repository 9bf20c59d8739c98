package registry

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/aibridge/aibridge-go/internal/toolbridge"
	"github.com/aibridge/aibridge-go/runtime"
)

func newTestRegistry() *Registry {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// nopSession satisfies runtime.Session without behavior; registry tests only
// exercise table bookkeeping.
type nopSession struct{}

func (nopSession) Respond(ctx context.Context, p runtime.Prompt) (string, error) {
	return "", nil
}
func (nopSession) RespondStructured(ctx context.Context, p runtime.Prompt, root runtime.Schema, deps []runtime.NamedSchema) (runtime.Content, string, error) {
	return runtime.Content{}, "", nil
}
func (nopSession) Stream(ctx context.Context, p runtime.Prompt) (runtime.SnapshotStream, error) {
	return nil, nil
}
func (nopSession) Transcript(ctx context.Context) ([]runtime.TranscriptEntry, error) {
	return nil, nil
}
func (nopSession) Close() error { return nil }

func addSession(r *Registry) uint8 {
	return r.AddSession(&Session{Runtime: nopSession{}, Tools: toolbridge.NewSet()})
}

func TestSequentialHandlesDistinctAndNonZero(t *testing.T) {
	r := newTestRegistry()
	seen := make(map[uint8]bool)
	for i := 0; i < 255; i++ {
		h := addSession(r)
		if h == 0 {
			t.Fatalf("allocation %d returned handle 0", i+1)
		}
		if seen[h] {
			t.Fatalf("allocation %d reused handle %d", i+1, h)
		}
		seen[h] = true
	}
}

func TestCounterWrapAliasesHandleOne(t *testing.T) {
	r := newTestRegistry()
	for i := 0; i < 255; i++ {
		addSession(r)
	}
	// Known caveat of the 8-bit counter: the 256th live allocation wraps
	// back onto handle 1.
	if h := addSession(r); h != 1 {
		t.Fatalf("256th allocation = %d, want 1", h)
	}
}

func TestRegisterToolUnknownHandle(t *testing.T) {
	r := newTestRegistry()
	ok := r.RegisterTool(42, "lookup", func(ctx context.Context, args string) (string, error) {
		return "", nil
	})
	if ok {
		t.Fatal("RegisterTool on unknown handle should report false")
	}
}

func TestRegisterToolReachableThroughSet(t *testing.T) {
	r := newTestRegistry()
	h := addSession(r)
	if !r.RegisterTool(h, "lookup", func(ctx context.Context, args string) (string, error) {
		return "hit", nil
	}) {
		t.Fatal("RegisterTool failed on live handle")
	}
	s, ok := r.Session(h)
	if !ok {
		t.Fatal("session disappeared")
	}
	fn, ok := s.Tools.Lookup("lookup")
	if !ok {
		t.Fatal("callback not visible through the session's tool set")
	}
	if out, _ := fn(context.Background(), "{}"); out != "hit" {
		t.Fatalf("callback returned %q", out)
	}
}

func TestRemoveSessionIsSilentNoOpWhenUnknown(t *testing.T) {
	r := newTestRegistry()
	if _, ok := r.RemoveSession(7); ok {
		t.Fatal("RemoveSession on unknown handle reported a session")
	}
}

func TestCancelStreamTwice(t *testing.T) {
	r := newTestRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	h := r.AddStream(&Stream{Cancel: cancel, Done: make(chan struct{})})

	if !r.CancelStream(h) {
		t.Fatal("first cancellation should succeed")
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatal("cancellation did not fire the stream's context")
	}
	if r.CancelStream(h) {
		t.Fatal("second cancellation should report false")
	}
}

func TestDrainEmptiesBothTables(t *testing.T) {
	r := newTestRegistry()
	addSession(r)
	addSession(r)
	_, cancel := context.WithCancel(context.Background())
	r.AddStream(&Stream{Cancel: cancel, Done: make(chan struct{})})

	sessions, streams := r.Drain()
	if len(sessions) != 2 || len(streams) != 1 {
		t.Fatalf("drained %d sessions, %d streams", len(sessions), len(streams))
	}
	if _, ok := r.Session(1); ok {
		t.Fatal("session survived drain")
	}
}

package orch

import (
	"sync"
	"testing"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/metrics"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

// fakeSignal records frames instead of writing to a socket.
type fakeSignal struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	full   bool

	// onClose runs once on the first Close, like a read loop that wakes up
	// when its socket is closed.
	onClose func()
}

func (f *fakeSignal) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return core.ErrConnClosed
	}
	if f.full {
		return core.ErrBackpressure
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeSignal) Close() {
	f.mu.Lock()
	first := !f.closed
	f.closed = true
	hook := f.onClose
	f.mu.Unlock()
	if first && hook != nil {
		hook()
	}
}

func (f *fakeSignal) Frames() []core.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.Frame, len(f.frames))
	copy(out, f.frames)
	return out
}

func (f *fakeSignal) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	return &Orchestrator{
		Registry: app.NewRegistry(clock),
		Rooms:    app.NewRoomManager(),
		Policy:   app.SharedSecretPolicy{},
		Clock:    clock,
		Metrics:  metrics.NewRelay(prometheus.NewRegistry()),
	}, clock
}

func connect(o *Orchestrator) (core.SessionID, *fakeSignal) {
	sig := &fakeSignal{}
	return o.Connect(sig, "test"), sig
}

// connectWithReadLoop connects a signal whose Close triggers the disconnect
// cleanup, the way the websocket read loop does.
func connectWithReadLoop(o *Orchestrator) (core.SessionID, *fakeSignal) {
	sig := &fakeSignal{}
	sid := o.Connect(sig, "test")
	sig.mu.Lock()
	sig.onClose = func() { o.CleanupOnDisconnect(sid) }
	sig.mu.Unlock()
	return sid, sig
}

// assertConsistent checks that registry memberships and the room index
// mirror each other and that no empty room exists.
func assertConsistent(t *testing.T, o *Orchestrator) {
	t.Helper()
	fromRegistry := map[string]map[core.SessionID]bool{}
	for _, sid := range o.Registry.Sessions() {
		for _, room := range o.Registry.RoomsOf(sid) {
			if fromRegistry[string(room)] == nil {
				fromRegistry[string(room)] = map[core.SessionID]bool{}
			}
			fromRegistry[string(room)][sid] = true
		}
	}
	fromIndex := map[string]map[core.SessionID]bool{}
	for _, info := range o.Rooms.List() {
		assert.Positive(t, info.MemberCount, "room %q is empty", info.Name)
		members := map[core.SessionID]bool{}
		for _, m := range o.Rooms.MembersOf(info.Name) {
			members[m.SID] = true
		}
		fromIndex[string(info.Name)] = members
	}
	assert.Equal(t, fromRegistry, fromIndex)
}

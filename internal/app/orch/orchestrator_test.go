package orch

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_Idempotent(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	sid, _ := connect(o)

	added, err := o.Subscribe(sid, "r")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = o.Subscribe(sid, "r")
	require.NoError(t, err)
	assert.False(t, added)

	assert.Len(t, o.Rooms.MembersOf("r"), 1)
	assert.Equal(t, []domain.RoomName{"r"}, o.Registry.RoomsOf(sid))
	assertConsistent(t, o)
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	sid, _ := connect(o)

	removed, err := o.Unsubscribe(sid, "r")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = o.Subscribe(sid, "r")
	require.NoError(t, err)

	removed, err = o.Unsubscribe(sid, "r")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = o.Unsubscribe(sid, "r")
	require.NoError(t, err)
	assert.False(t, removed)
	assertConsistent(t, o)
}

func TestSubscribeUnsubscribe_RoundTripRemovesRoom(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	a, _ := connect(o)
	b, _ := connect(o)

	_, _ = o.Subscribe(a, "r")
	_, _ = o.Subscribe(b, "r")
	_, _ = o.Unsubscribe(a, "r")
	assert.True(t, o.Rooms.Has("r"))

	_, _ = o.Unsubscribe(b, "r")
	assert.False(t, o.Rooms.Has("r"))
	assert.Equal(t, 0, o.Rooms.Len())
	assertConsistent(t, o)
}

func TestSubscribe_Errors(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	sid, _ := connect(o)

	_, err := o.Subscribe(sid, "")
	assert.ErrorIs(t, err, domain.ErrRoomRequired)
	_, err = o.Unsubscribe(sid, "")
	assert.ErrorIs(t, err, domain.ErrRoomRequired)

	_, err = o.Subscribe("ghost", "r")
	assert.ErrorIs(t, err, app.ErrUnknownSession)
	assert.False(t, o.Rooms.Has("r"))
}

func TestCleanupOnDisconnect(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	a, _ := connect(o)
	b, _ := connect(o)
	for _, room := range []domain.RoomName{"x", "y", "z"} {
		_, err := o.Subscribe(a, room)
		require.NoError(t, err)
	}
	_, _ = o.Subscribe(b, "x")

	assert.True(t, o.CleanupOnDisconnect(a))

	_, ok := o.Registry.GetSignal(a)
	assert.False(t, ok)
	for _, info := range o.Rooms.List() {
		for _, m := range o.Rooms.MembersOf(info.Name) {
			assert.NotEqual(t, a, m.SID)
		}
	}
	assert.True(t, o.Rooms.Has("x"))
	assert.False(t, o.Rooms.Has("y"))
	assert.False(t, o.Rooms.Has("z"))

	assert.False(t, o.CleanupOnDisconnect(a))
	assertConsistent(t, o)
}

func TestSubscribe_AfterCleanupFails(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	sid, _ := connect(o)
	o.CleanupOnDisconnect(sid)

	_, err := o.Subscribe(sid, "r")
	assert.ErrorIs(t, err, app.ErrUnknownSession)
	assert.Equal(t, 0, o.Rooms.Len())
}

func TestPublish_FanOut(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	sigs := map[string]*fakeSignal{}
	for _, name := range []string{"A", "B", "C"} {
		sid, sig := connect(o)
		sigs[name] = sig
		_, err := o.Subscribe(sid, "x")
		require.NoError(t, err)
	}
	d, sigD := connect(o)
	_, err := o.Subscribe(d, "y")
	require.NoError(t, err)

	res, err := o.Publish("x", json.RawMessage(`"P"`), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.SendTo)
	assert.Empty(t, res.Dropped)

	for name, sig := range sigs {
		assert.Len(t, sig.Frames(), 1, "member %s", name)
	}
	assert.Empty(t, sigD.Frames())
}

func TestPublish_HuntScenario(t *testing.T) {
	o, clock := newTestOrchestrator(t)
	a, sigA := connect(o)
	b, sigB := connect(o)
	_, _ = o.Subscribe(a, "hunt_1")
	_, _ = o.Subscribe(b, "hunt_1")

	res, err := o.Publish("hunt_1", json.RawMessage(`{"score":5}`), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.SendTo)

	for _, sig := range []*fakeSignal{sigA, sigB} {
		frames := sig.Frames()
		require.Len(t, frames, 1)
		var got map[string]any
		require.NoError(t, json.Unmarshal(frames[0], &got))
		assert.Equal(t, "update", got["type"])
		assert.Equal(t, "hunt_1", got["room"])
		assert.Equal(t, map[string]any{"score": 5.0}, got["payload"])
		assert.Contains(t, got, "metadata")
		assert.Nil(t, got["metadata"])
		assert.Equal(t, float64(domain.UnixMillis(clock.Now())), got["ts"])
	}
}

func TestPublish_SerializesOnce(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	a, sigA := connect(o)
	b, sigB := connect(o)
	_, _ = o.Subscribe(a, "r")
	_, _ = o.Subscribe(b, "r")

	_, err := o.Publish("r", json.RawMessage(`{}`), nil)
	require.NoError(t, err)
	fa, fb := sigA.Frames(), sigB.Frames()
	require.Len(t, fa, 1)
	require.Len(t, fb, 1)
	assert.Same(t, &fa[0][0], &fb[0][0])
}

func TestPublish_EmptyRoom(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	res, err := o.Publish("nobody", json.RawMessage(`1`), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.SendTo)
	assert.False(t, o.Rooms.Has("nobody"))
	assert.Equal(t, 0, o.Rooms.Len())

	_, err = o.Publish("", json.RawMessage(`1`), nil)
	assert.ErrorIs(t, err, domain.ErrRoomRequired)
}

func TestPublish_FailedSendsAreSkipped(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ok, _ := connect(o)
	slow, sigSlow := connect(o)
	gone, sigGone := connect(o)
	for _, sid := range []core.SessionID{ok, slow, gone} {
		_, _ = o.Subscribe(sid, "r")
	}
	sigSlow.full = true
	sigGone.Close()

	res, err := o.Publish("r", json.RawMessage(`1`), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SendTo)
	assert.ElementsMatch(t, []core.SessionID{slow, gone}, res.Dropped)

	// the dispatcher never evicts
	assert.Equal(t, 3, o.Registry.Len())
	assert.Len(t, o.Rooms.MembersOf("r"), 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(o.Metrics.Deliveries))
	assert.Equal(t, 2.0, testutil.ToFloat64(o.Metrics.DroppedDeliveries))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.Metrics.EventsPublished))
}

func TestEvict_ClosesAndCleansUpOnce(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	sid, sig := connect(o)
	_, _ = o.Subscribe(sid, "r")

	assert.True(t, o.Evict(sid, "test"))
	assert.True(t, sig.IsClosed())
	assert.False(t, o.Rooms.Has("r"))

	assert.False(t, o.Evict(sid, "test"))
	assert.False(t, o.CleanupOnDisconnect(sid))
}

func TestEvict_CountsWhenCloseTriggersCleanup(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	sid, sig := connectWithReadLoop(o)
	_, _ = o.Subscribe(sid, "r")

	assert.True(t, o.Evict(sid, "test"))
	assert.True(t, sig.IsClosed())
	assert.False(t, o.Rooms.Has("r"))
	assert.Equal(t, 0, o.Registry.Len())
	assertConsistent(t, o)
}

func TestShutdown_ClosesEverything(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	var sigs []*fakeSignal
	for i := 0; i < 5; i++ {
		sid, sig := connect(o)
		sigs = append(sigs, sig)
		_, _ = o.Subscribe(sid, domain.RoomName(fmt.Sprintf("r%d", i%2)))
	}

	o.Shutdown()
	assert.Equal(t, 0, o.Registry.Len())
	assert.Equal(t, 0, o.Rooms.Len())
	for _, sig := range sigs {
		assert.True(t, sig.IsClosed())
	}
	assert.Equal(t, 0.0, testutil.ToFloat64(o.Metrics.ActiveConnections))
	assert.Equal(t, 0.0, testutil.ToFloat64(o.Metrics.ActiveRooms))
}

func TestAuthorizePublish(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	assert.NoError(t, o.AuthorizePublish(""))

	o.Policy = app.SharedSecretPolicy{Secret: "k"}
	assert.ErrorIs(t, o.AuthorizePublish("x"), app.ErrUnauthorized)
	assert.NoError(t, o.AuthorizePublish("k"))

	o.Policy = nil
	assert.NoError(t, o.AuthorizePublish("x"))
}

func TestConcurrentChurnKeepsIndexConsistent(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	rooms := []domain.RoomName{"a", "b", "c", "d"}

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			sid, _ := connect(o)
			for i := 0; i < 200; i++ {
				room := rooms[(w+i)%len(rooms)]
				switch i % 4 {
				case 0, 1:
					_, _ = o.Subscribe(sid, room)
				case 2:
					_, _ = o.Unsubscribe(sid, room)
				case 3:
					_, _ = o.Publish(room, json.RawMessage(`1`), nil)
				}
			}
			if w%2 == 0 {
				o.CleanupOnDisconnect(sid)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 8, o.Registry.Len())
	assertConsistent(t, o)
}

func TestConnectionGaugeFollowsConcurrentChurn(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	var wg sync.WaitGroup
	for w := 0; w < 32; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				sid, _ := connect(o)
				if i%2 == 0 || w%4 != 0 {
					o.CleanupOnDisconnect(sid)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 8*25, o.Registry.Len())
	assert.Equal(t, float64(o.Registry.Len()), testutil.ToFloat64(o.Metrics.ActiveConnections))
}

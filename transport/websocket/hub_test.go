package websocket

import (
	"testing"
	"time"

	"github.com/potluckhq/potluck/collab/session"
)

func newTestHub(ttl time.Duration) *Hub {
	return NewHub(session.NewStore(ttl))
}

func TestNewHub(t *testing.T) {
	hub := newTestHub(time.Hour)

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.clients == nil {
		t.Error("Hub clients map is nil")
	}
	if hub.users == nil {
		t.Error("Hub users map is nil")
	}
}

func TestHubRegisterLookup(t *testing.T) {
	hub := newTestHub(time.Hour)
	c := newClient(hub, nil, "conn-1")

	if _, ok := hub.lookup(c); ok {
		t.Error("Unregistered connection should not resolve")
	}

	hub.register(c, "U1", "S", "Alice")

	info, ok := hub.lookup(c)
	if !ok {
		t.Fatal("Registered connection did not resolve")
	}
	if info.userID != "U1" || info.sessionID != "S" || info.displayName != "Alice" {
		t.Errorf("Unexpected registry entry: %+v", info)
	}

	if got, ok := hub.userClient("U1"); !ok || got != c {
		t.Error("User mapping should point at the registered connection")
	}
	if hub.ConnectionCount() != 1 {
		t.Errorf("ConnectionCount = %d, want 1", hub.ConnectionCount())
	}
}

func TestHubUnregister(t *testing.T) {
	hub := newTestHub(time.Hour)
	c := newClient(hub, nil, "conn-1")
	hub.register(c, "U1", "S", "Alice")

	info, ok := hub.unregister(c)
	if !ok || info.userID != "U1" {
		t.Fatalf("unregister = (%+v, %v)", info, ok)
	}
	if _, ok := hub.userClient("U1"); ok {
		t.Error("User mapping should be cleared")
	}
	if _, ok := hub.unregister(c); ok {
		t.Error("Second unregister should report false")
	}
}

func TestHubUnregisterKeepsNewerUserMapping(t *testing.T) {
	hub := newTestHub(time.Hour)
	old := newClient(hub, nil, "conn-old")
	hub.register(old, "U1", "S", "Alice")

	// A rejoin claims the user id with a fresh connection before the old
	// one finishes disconnecting.
	fresh := newClient(hub, nil, "conn-new")
	hub.register(fresh, "U1", "S", "Alice")

	hub.unregister(old)

	if got, ok := hub.userClient("U1"); !ok || got != fresh {
		t.Error("Unregistering a stale connection must not clear the fresh user mapping")
	}
}

func TestHubDisplaceUser(t *testing.T) {
	hub := newTestHub(time.Hour)
	old := newClient(hub, nil, "conn-old")
	hub.register(old, "U1", "S", "Alice")

	fresh := newClient(hub, nil, "conn-new")
	hub.displaceUser("U1", fresh)

	if _, ok := hub.lookup(old); ok {
		t.Error("Displaced connection should be out of the registry")
	}
	if !old.closed {
		t.Error("Displaced connection should be shut down")
	}
}

func TestBroadcastToSessionExcludesUser(t *testing.T) {
	hub := newTestHub(time.Hour)

	a := newClient(hub, nil, "conn-a")
	b := newClient(hub, nil, "conn-b")
	other := newClient(hub, nil, "conn-c")
	hub.register(a, "U1", "S", "Alice")
	hub.register(b, "U2", "S", "Bob")
	hub.register(other, "U3", "T", "Carol")

	hub.BroadcastToSession("S", errorEvent{Type: EvtError, Message: "hi"}, "U1")

	select {
	case <-b.send:
	default:
		t.Error("Peer in the session should receive the broadcast")
	}
	select {
	case <-a.send:
		t.Error("Excluded user should not receive the broadcast")
	default:
	}
	select {
	case <-other.send:
		t.Error("Connection in another session should not receive the broadcast")
	default:
	}
}

func TestBroadcastSkipsClosedClient(t *testing.T) {
	hub := newTestHub(time.Hour)
	a := newClient(hub, nil, "conn-a")
	hub.register(a, "U1", "S", "Alice")
	a.shutdown(1000, "")

	// Must not panic or block.
	hub.BroadcastToSession("S", errorEvent{Type: EvtError, Message: "hi"}, "")
}

func TestSessionEndedPurgesRegistry(t *testing.T) {
	hub := newTestHub(time.Hour)
	a := newClient(hub, nil, "conn-a")
	b := newClient(hub, nil, "conn-b")
	hub.register(a, "U1", "S", "Alice")
	hub.register(b, "U2", "S", "Bob")

	hub.SessionEnded("S", "Session ended by host")

	if hub.ConnectionCount() != 0 {
		t.Errorf("ConnectionCount = %d after end, want 0", hub.ConnectionCount())
	}
	if !a.closed || !b.closed {
		t.Error("All session connections should be shut down")
	}

	// The terminal event was queued before the close.
	msg, ok := <-a.send
	if !ok {
		t.Fatal("Expected the session:ended event before channel close")
	}
	if string(msg) == "" {
		t.Error("Empty terminal event")
	}
}

func TestReapExpiredRemovesSessions(t *testing.T) {
	store := session.NewStore(50 * time.Millisecond)
	hub := NewHub(store)

	store.Create("S", "U1", "Alice")
	a := newClient(hub, nil, "conn-a")
	hub.register(a, "U1", "S", "Alice")

	time.Sleep(80 * time.Millisecond)

	if n := hub.ReapExpired(); n != 1 {
		t.Fatalf("ReapExpired = %d, want 1", n)
	}
	if _, err := store.Get("S"); err == nil {
		t.Error("Reaped session should be gone from the store")
	}

	// The lingering connection was notified but stays registered until it
	// disconnects naturally.
	select {
	case <-a.send:
	default:
		t.Error("Lingering connection should receive session:expired")
	}
	if _, ok := hub.lookup(a); !ok {
		t.Error("Reaping must not purge registry entries")
	}
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/potluckhq/potluck/collab/session"
)

// fakeRealtime records terminal notifications instead of touching sockets.
type fakeRealtime struct {
	ended   []string
	reasons []string
}

func (f *fakeRealtime) SessionEnded(sessionID, reason string) {
	f.ended = append(f.ended, sessionID)
	f.reasons = append(f.reasons, reason)
}

func (f *fakeRealtime) ConnectionCount() int { return 7 }

func TestListSessionsSummaries(t *testing.T) {
	store := session.NewStore(time.Hour)
	svc := New(store, &fakeRealtime{})

	sess, _ := store.Create("S", "U1", "Alice")
	sess.Join("U2", "Bob")
	sess.MarkDisconnected("U2")
	sess.AddIngredient("flour", "U1")
	sess.AddRecipe(session.Recipe{Title: "Chili"})

	summaries := svc.ListSessions(context.Background())
	if len(summaries) != 1 {
		t.Fatalf("Expected 1 summary, got %d", len(summaries))
	}
	s := summaries[0]
	if s.ID != "S" || s.HostName != "Alice" {
		t.Errorf("Unexpected summary: %+v", s)
	}
	if s.Participants != 2 || s.Connected != 1 {
		t.Errorf("participants=%d connected=%d, want 2/1", s.Participants, s.Connected)
	}
	if s.Ingredients != 1 || s.Recipes != 1 {
		t.Errorf("ingredients=%d recipes=%d, want 1/1", s.Ingredients, s.Recipes)
	}
}

func TestGetSessionSnapshot(t *testing.T) {
	store := session.NewStore(time.Hour)
	svc := New(store, &fakeRealtime{})
	store.Create("S", "U1", "Alice")

	snap, err := svc.GetSession(context.Background(), "S")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if snap.HostID != "U1" {
		t.Errorf("hostId = %s", snap.HostID)
	}

	if _, err := svc.GetSession(context.Background(), "nope"); err == nil {
		t.Error("GetSession of unknown id should fail")
	}
}

func TestEndSessionNotifies(t *testing.T) {
	store := session.NewStore(time.Hour)
	rt := &fakeRealtime{}
	svc := New(store, rt)
	store.Create("S", "U1", "Alice")

	if err := svc.EndSession(context.Background(), "S", "Session ended by operator"); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if _, err := store.Get("S"); err == nil {
		t.Error("Session should be deleted")
	}
	if len(rt.ended) != 1 || rt.ended[0] != "S" {
		t.Errorf("Realtime notification = %v", rt.ended)
	}
	if rt.reasons[0] != "Session ended by operator" {
		t.Errorf("reason = %q", rt.reasons[0])
	}

	if err := svc.EndSession(context.Background(), "S", ""); err == nil {
		t.Error("Ending a missing session should fail")
	}
}

func TestStatsCounts(t *testing.T) {
	store := session.NewStore(time.Hour)
	svc := New(store, &fakeRealtime{})
	store.Create("S", "U1", "Alice")

	stats := svc.Stats(context.Background())
	if stats.Sessions != 1 || stats.Connections != 7 {
		t.Errorf("stats = %+v", stats)
	}
}

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/potluckhq/potluck/collab/service"
	"github.com/potluckhq/potluck/collab/session"
	"github.com/potluckhq/potluck/transport/websocket"
)

func testAPI(t *testing.T) (*session.Store, *httptest.Server) {
	t.Helper()
	store := session.NewStore(time.Hour)
	hub := websocket.NewHub(store)
	svc := service.New(store, hub)
	srv := httptest.NewServer(NewServer(svc, hub))
	t.Cleanup(srv.Close)
	return store, srv
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("Decode of %s failed: %v", url, err)
		}
	}
	return resp
}

func TestHealth(t *testing.T) {
	_, srv := testAPI(t)

	var body map[string]string
	resp := getJSON(t, srv.URL+"/api/health", &body)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if body["status"] != "healthy" {
		t.Errorf("body = %v", body)
	}
}

func TestListSessions(t *testing.T) {
	store, srv := testAPI(t)
	store.Create("S1", "U1", "Alice")
	store.Create("S2", "U2", "Bob")

	var body struct {
		Count    int                       `json:"count"`
		Sessions []service.SessionSummary `json:"sessions"`
	}
	getJSON(t, srv.URL+"/api/sessions", &body)
	if body.Count != 2 {
		t.Fatalf("count = %d, want 2", body.Count)
	}

	// Limit applies after sorting.
	getJSON(t, srv.URL+"/api/sessions?limit=1", &body)
	if body.Count != 1 {
		t.Errorf("limited count = %d, want 1", body.Count)
	}
}

func TestGetSessionSnapshot(t *testing.T) {
	store, srv := testAPI(t)
	sess, _ := store.Create("S", "U1", "Alice")
	sess.AddIngredient("flour", "U1")

	var snap session.Snapshot
	resp := getJSON(t, srv.URL+"/api/sessions/S", &snap)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if snap.HostID != "U1" || len(snap.Ingredients) != 1 {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	_, srv := testAPI(t)
	resp := getJSON(t, srv.URL+"/api/sessions/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestEndSession(t *testing.T) {
	store, srv := testAPI(t)
	store.Create("S", "U1", "Alice")

	req, _ := http.NewRequest("DELETE", srv.URL+"/api/sessions/S", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	if _, err := store.Get("S"); err == nil {
		t.Error("Session should be gone after DELETE")
	}
}

func TestStats(t *testing.T) {
	store, srv := testAPI(t)
	store.Create("S", "U1", "Alice")

	var stats service.Stats
	getJSON(t, srv.URL+"/api/stats", &stats)
	if stats.Sessions != 1 {
		t.Errorf("sessions = %d, want 1", stats.Sessions)
	}
	if stats.Connections != 0 {
		t.Errorf("connections = %d, want 0", stats.Connections)
	}
}

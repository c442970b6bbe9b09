package session

import (
	"encoding/json"
	"testing"
)

func newTestSession() *Session {
	return newSession("S", "U1", "Alice")
}

func TestNewSessionHostIsParticipant(t *testing.T) {
	s := newTestSession()

	snap := s.Snapshot()
	if snap.HostID != "U1" {
		t.Errorf("Expected hostId U1, got %s", snap.HostID)
	}
	if len(snap.Participants) != 1 {
		t.Fatalf("Expected 1 participant, got %d", len(snap.Participants))
	}
	p := snap.Participants[0]
	if p.ID != "U1" || p.Name != "Alice" || !p.IsConnected {
		t.Errorf("Unexpected host participant record: %+v", p)
	}
	if snap.LastActivity < snap.CreatedAt {
		t.Errorf("lastActivity %d before createdAt %d", snap.LastActivity, snap.CreatedAt)
	}
}

func TestJoinAppendsParticipant(t *testing.T) {
	s := newTestSession()

	p, snap, rejoined := s.Join("U2", "Bob")
	if rejoined {
		t.Error("First join should not report a rejoin")
	}
	if p.ID != "U2" || p.Name != "Bob" || !p.IsConnected {
		t.Errorf("Unexpected participant record: %+v", p)
	}
	if len(snap.Participants) != 2 {
		t.Errorf("Expected 2 participants in snapshot, got %d", len(snap.Participants))
	}
}

func TestRejoinKeepsParticipantRecord(t *testing.T) {
	s := newTestSession()
	s.Join("U2", "Bob")

	name, ok := s.MarkDisconnected("U2")
	if !ok || name != "Bob" {
		t.Fatalf("MarkDisconnected = (%q, %v), want (Bob, true)", name, ok)
	}

	p, snap, rejoined := s.Join("U2", "Bob")
	if !rejoined {
		t.Error("Second join should report a rejoin")
	}
	if !p.IsConnected {
		t.Error("Rejoined participant should be connected")
	}
	if p.ReconnectedAt == 0 {
		t.Error("Rejoin should stamp reconnectedAt")
	}
	if len(snap.Participants) != 2 {
		t.Errorf("Rejoin must not duplicate the participant; got %d", len(snap.Participants))
	}
}

func TestMarkDisconnectedUnknownUser(t *testing.T) {
	s := newTestSession()
	if _, ok := s.MarkDisconnected("nobody"); ok {
		t.Error("MarkDisconnected of unknown user should report false")
	}
}

func TestAddIngredientLowercasesAndAssignsID(t *testing.T) {
	s := newTestSession()

	ing, added := s.AddIngredient("Flour", "U1")
	if !added {
		t.Fatal("First add should succeed")
	}
	if ing.Name != "flour" {
		t.Errorf("Expected lowercased name, got %q", ing.Name)
	}
	if ing.ID == "" {
		t.Error("Ingredient id should be server-assigned")
	}
	if ing.AddedBy != "U1" || ing.AddedAt == 0 {
		t.Errorf("Unexpected ingredient record: %+v", ing)
	}
}

func TestAddIngredientDuplicateIsNoOp(t *testing.T) {
	s := newTestSession()
	first, _ := s.AddIngredient("Flour", "U1")

	if _, added := s.AddIngredient("FLOUR", "U2"); added {
		t.Error("Re-add of the same name (case-insensitive) should be a no-op")
	}

	snap := s.Snapshot()
	if len(snap.Ingredients) != 1 {
		t.Fatalf("Expected 1 ingredient, got %d", len(snap.Ingredients))
	}
	if snap.Ingredients[0].AddedBy != first.AddedBy {
		t.Error("Duplicate add must not change addedBy")
	}
}

func TestAddRemoveIngredientRoundTrip(t *testing.T) {
	s := newTestSession()
	before := s.Snapshot().Ingredients

	ing, _ := s.AddIngredient("salt", "U1")
	removed, ok := s.RemoveIngredient(ing.ID)
	if !ok {
		t.Fatal("Remove by returned id should succeed")
	}
	if removed.ID != ing.ID {
		t.Errorf("Removed record id %s, want %s", removed.ID, ing.ID)
	}

	after := s.Snapshot().Ingredients
	if len(after) != len(before) {
		t.Errorf("Add-then-remove should restore the ingredient list; got %d entries", len(after))
	}
}

func TestRemoveIngredientUnknownIsNoOp(t *testing.T) {
	s := newTestSession()
	s.AddIngredient("salt", "U1")

	if _, ok := s.RemoveIngredient("no-such-id"); ok {
		t.Error("Remove of unknown id should report false")
	}
	if len(s.Snapshot().Ingredients) != 1 {
		t.Error("Remove of unknown id must not mutate the list")
	}
}

func TestBlacklistRemovesMatchingIngredient(t *testing.T) {
	s := newTestSession()
	s.AddIngredient("Cilantro", "U1")
	s.AddIngredient("salt", "U1")

	name, blacklist, ingredients := s.Blacklist("CILANTRO", true)
	if name != "cilantro" {
		t.Errorf("Expected lowercased name, got %q", name)
	}
	if len(blacklist) != 1 || blacklist[0] != "cilantro" {
		t.Errorf("Unexpected blacklist: %v", blacklist)
	}
	if len(ingredients) != 1 || ingredients[0].Name != "salt" {
		t.Errorf("Blacklisted ingredient should be removed from the list: %v", ingredients)
	}

	// Invariant: blacklist and ingredient names are disjoint after the
	// mutation commits.
	for _, b := range blacklist {
		for _, ing := range ingredients {
			if ing.Name == b {
				t.Errorf("Ingredient %q still present while blacklisted", b)
			}
		}
	}
}

func TestBlacklistWithoutRemovalKeepsIngredients(t *testing.T) {
	s := newTestSession()
	s.AddIngredient("peanuts", "U1")

	_, blacklist, ingredients := s.Blacklist("shellfish", false)
	if len(blacklist) != 1 {
		t.Errorf("Unexpected blacklist: %v", blacklist)
	}
	if len(ingredients) != 1 {
		t.Errorf("fromIngredients=false must not touch the ingredient list: %v", ingredients)
	}
}

func TestBlacklistDuplicateIsIdempotent(t *testing.T) {
	s := newTestSession()
	s.Blacklist("cilantro", false)
	_, blacklist, _ := s.Blacklist("cilantro", false)
	if len(blacklist) != 1 {
		t.Errorf("Re-blacklisting should not duplicate the entry: %v", blacklist)
	}
}

func TestAddRecipeOverwritesServerFields(t *testing.T) {
	s := newTestSession()

	var r Recipe
	if err := json.Unmarshal([]byte(`{"id":"client-id","title":"Pancakes","votes":99,"voterIds":["fake"],"steps":["mix","fry"]}`), &r); err != nil {
		t.Fatal(err)
	}

	rec := s.AddRecipe(r)
	if rec.ID == "client-id" || rec.ID == "" {
		t.Errorf("Recipe id should be server-assigned, got %q", rec.ID)
	}
	if rec.Votes != 0 || len(rec.VoterIDs) != 0 {
		t.Errorf("Client-supplied tallies must be zeroed: votes=%d voterIds=%v", rec.Votes, rec.VoterIDs)
	}
	if rec.CreatedAt == 0 {
		t.Error("createdAt should be stamped")
	}
	if _, ok := rec.Extra["steps"]; !ok {
		t.Error("Opaque body fields should be preserved")
	}
}

func TestVoteRecompute(t *testing.T) {
	s := newTestSession()
	s.Join("U2", "Bob")
	rec := s.AddRecipe(Recipe{Title: "Chili"})

	recipes := s.Vote("U1", rec.ID, VoteUp)
	if recipes[0].Votes != 1 {
		t.Errorf("After one up vote, votes = %d, want 1", recipes[0].Votes)
	}
	if len(recipes[0].VoterIDs) != 1 || recipes[0].VoterIDs[0] != "U1" {
		t.Errorf("voterIds = %v, want [U1]", recipes[0].VoterIDs)
	}

	recipes = s.Vote("U2", rec.ID, VoteDown)
	if recipes[0].Votes != 0 {
		t.Errorf("After up+down, votes = %d, want 0", recipes[0].Votes)
	}
	if len(recipes[0].VoterIDs) != 2 {
		t.Errorf("voterIds = %v, want both voters", recipes[0].VoterIDs)
	}

	recipes = s.Vote("U1", rec.ID, VoteNeutral)
	if recipes[0].Votes != -1 {
		t.Errorf("After U1 goes neutral, votes = %d, want -1", recipes[0].Votes)
	}
	if len(recipes[0].VoterIDs) != 1 || recipes[0].VoterIDs[0] != "U2" {
		t.Errorf("voterIds = %v, want [U2]", recipes[0].VoterIDs)
	}
}

func TestVoteUpThenNeutralRestoresTally(t *testing.T) {
	s := newTestSession()
	rec := s.AddRecipe(Recipe{Title: "Stew"})

	before := s.Snapshot().Recipes[0].Votes
	s.Vote("U1", rec.ID, VoteUp)
	recipes := s.Vote("U1", rec.ID, VoteNeutral)
	if recipes[0].Votes != before {
		t.Errorf("Up then neutral should restore the tally; got %d, want %d", recipes[0].Votes, before)
	}
	if len(recipes[0].VoterIDs) != 0 {
		t.Errorf("Up then neutral should clear the voter set; got %v", recipes[0].VoterIDs)
	}
}

func TestVoteReplacesPriorVote(t *testing.T) {
	s := newTestSession()
	rec := s.AddRecipe(Recipe{Title: "Tacos"})

	s.Vote("U1", rec.ID, VoteUp)
	recipes := s.Vote("U1", rec.ID, VoteDown)
	if recipes[0].Votes != -1 {
		t.Errorf("Changing up to down should yield -1, got %d", recipes[0].Votes)
	}
	if len(recipes[0].VoterIDs) != 1 {
		t.Errorf("One user voting twice is still one voter: %v", recipes[0].VoterIDs)
	}
}

func TestRemoveRecipeIdempotent(t *testing.T) {
	s := newTestSession()
	rec := s.AddRecipe(Recipe{Title: "Soup"})

	removed, ok := s.RemoveRecipe(rec.ID)
	if !ok || removed.ID != rec.ID {
		t.Fatalf("RemoveRecipe = (%v, %v)", removed, ok)
	}
	if _, ok := s.RemoveRecipe(rec.ID); ok {
		t.Error("Second remove should report false")
	}
}

func TestTransferHost(t *testing.T) {
	s := newTestSession()
	s.Join("U2", "Bob")

	name, snap, err := s.TransferHost("U2")
	if err != nil {
		t.Fatalf("TransferHost failed: %v", err)
	}
	if name != "Bob" || snap.HostID != "U2" || snap.HostName != "Bob" {
		t.Errorf("Unexpected transfer result: name=%q snapshot host=%s/%s", name, snap.HostID, snap.HostName)
	}

	// Invariant: hostId always names a participant.
	found := false
	for _, p := range snap.Participants {
		if p.ID == snap.HostID {
			found = true
		}
	}
	if !found {
		t.Error("hostId does not name a participant")
	}
}

func TestTransferHostUnknownParticipant(t *testing.T) {
	s := newTestSession()
	if _, _, err := s.TransferHost("ghost"); err != ErrNoSuchHost {
		t.Errorf("Expected ErrNoSuchHost, got %v", err)
	}
	if s.HostID() != "U1" {
		t.Error("Failed transfer must not change the host")
	}
}

func TestTransferHostToSelf(t *testing.T) {
	s := newTestSession()
	before := s.Snapshot()

	_, snap, err := s.TransferHost("U1")
	if err != nil {
		t.Fatalf("Self-transfer should be accepted: %v", err)
	}
	if snap.HostID != before.HostID || snap.HostName != before.HostName {
		t.Error("Self-transfer must leave host state unchanged")
	}
}

func TestSetContextAndPermissions(t *testing.T) {
	s := newTestSession()

	s.SetContext("dessert")
	if got := s.Snapshot().Context; got != "dessert" {
		t.Errorf("context = %q, want dessert", got)
	}

	snap := s.SetAllowRecipeGeneration(true)
	if !snap.AllowRecipeGeneration {
		t.Error("allowRecipeGeneration should be set")
	}
}

func TestLastActivityMonotonic(t *testing.T) {
	s := newTestSession()

	prev := s.LastActivity()
	for i := 0; i < 10; i++ {
		s.AddIngredient(string(rune('a'+i)), "U1")
		cur := s.LastActivity()
		if cur < prev {
			t.Fatalf("lastActivity went backwards: %d -> %d", prev, cur)
		}
		prev = cur
	}
}

func TestRecipeJSONRoundTrip(t *testing.T) {
	in := []byte(`{"title":"Pie","description":"apple","servings":4}`)

	var r Recipe
	if err := json.Unmarshal(in, &r); err != nil {
		t.Fatal(err)
	}
	r.ID = "R1"
	r.CreatedAt = 42
	r.VoterIDs = []string{}

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["title"] != "Pie" || decoded["description"] != "apple" {
		t.Errorf("Body fields lost in round trip: %v", decoded)
	}
	if decoded["id"] != "R1" {
		t.Errorf("id = %v, want R1", decoded["id"])
	}
	if _, ok := decoded["voterIds"].([]any); !ok {
		t.Errorf("voterIds should marshal as an array, got %T", decoded["voterIds"])
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	s := newTestSession()
	s.AddIngredient("salt", "U1")

	snap := s.Snapshot()
	snap.Ingredients[0].Name = "mutated"
	snap.Blacklist = append(snap.Blacklist, "x")

	if got := s.Snapshot().Ingredients[0].Name; got != "salt" {
		t.Errorf("Snapshot mutation leaked into session state: %q", got)
	}
}

package session

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
	ErrNotHost         = errors.New("caller is not the session host")
	ErrNoSuchHost      = errors.New("new host not found in session")
)

// Session is the authoritative shared document for one group of
// participants. All mutations on a session go through its methods, which
// serialize under the session's own lock; mutations on different sessions
// proceed in parallel. Every successful mutation bumps lastActivity as its
// last step.
type Session struct {
	id        string
	createdAt int64

	// lastActivity is read lock-free by the store's TTL checks.
	lastActivity atomic.Int64

	mu                    sync.Mutex
	hostID                string
	hostName              string
	allowRecipeGeneration bool
	participants          []*Participant
	ingredients           []*Ingredient
	blacklist             []string
	context               string
	recipes               []*Recipe
	votes                 map[string]map[string]VoteType
}

func newSession(id, hostID, hostName string) *Session {
	now := nowMillis()
	s := &Session{
		id:        id,
		createdAt: now,
		hostID:    hostID,
		hostName:  hostName,
		blacklist: []string{},
		votes:     make(map[string]map[string]VoteType),
	}
	s.lastActivity.Store(now)
	s.participants = append(s.participants, &Participant{
		ID:          hostID,
		Name:        hostName,
		JoinedAt:    now,
		IsConnected: true,
	})
	return s
}

// ID returns the session's identifier. Immutable, safe without the lock.
func (s *Session) ID() string { return s.id }

// CreatedAt returns the creation timestamp in epoch milliseconds.
func (s *Session) CreatedAt() int64 { return s.createdAt }

// LastActivity returns the last mutation timestamp in epoch milliseconds.
func (s *Session) LastActivity() int64 { return s.lastActivity.Load() }

// HostID returns the id of the participant currently holding host
// privileges.
func (s *Session) HostID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostID
}

// IsHost reports whether userID currently holds host privileges.
func (s *Session) IsHost(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostID == userID
}

func (s *Session) touchLocked() {
	s.lastActivity.Store(nowMillis())
}

func (s *Session) participantLocked(userID string) *Participant {
	for _, p := range s.participants {
		if p.ID == userID {
			return p
		}
	}
	return nil
}

// Join adds userID as a participant, or reconnects the existing participant
// record. It returns a copy of the participant, the full snapshot, and
// whether this was a reconnection.
func (s *Session) Join(userID, username string) (Participant, *Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowMillis()
	p := s.participantLocked(userID)
	rejoined := p != nil
	if p != nil {
		p.IsConnected = true
		p.ReconnectedAt = now
		if username != "" {
			p.Name = username
		}
	} else {
		p = &Participant{
			ID:          userID,
			Name:        username,
			JoinedAt:    now,
			IsConnected: true,
		}
		s.participants = append(s.participants, p)
	}

	s.touchLocked()
	return *p, s.snapshotLocked(), rejoined
}

// MarkDisconnected flips the participant's connection flag without removing
// the record. It reports whether the participant exists, along with the
// display name for the disconnect broadcast.
func (s *Session) MarkDisconnected(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.participantLocked(userID)
	if p == nil {
		return "", false
	}
	p.IsConnected = false
	p.DisconnectedAt = nowMillis()
	s.touchLocked()
	return p.Name, true
}

// AddIngredient appends a new ingredient with a server-assigned id. The name
// is lowercased; adding a name that already exists is an idempotent no-op
// and returns ok=false.
func (s *Session) AddIngredient(name, addedBy string) (Ingredient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.ToLower(name)
	for _, ing := range s.ingredients {
		if ing.Name == name {
			return Ingredient{}, false
		}
	}

	ing := &Ingredient{
		ID:      uuid.NewString(),
		Name:    name,
		AddedBy: addedBy,
		AddedAt: nowMillis(),
	}
	s.ingredients = append(s.ingredients, ing)
	s.touchLocked()
	return *ing, true
}

// RemoveIngredient removes by id. Removing a missing id is a silent no-op.
func (s *Session) RemoveIngredient(id string) (Ingredient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, ing := range s.ingredients {
		if ing.ID == id {
			s.ingredients = append(s.ingredients[:i], s.ingredients[i+1:]...)
			s.touchLocked()
			return *ing, true
		}
	}
	return Ingredient{}, false
}

// Blacklist adds the lowercased name to the blacklist (if absent) and, when
// fromIngredients is set, removes any ingredient with that name. It returns
// copies of the updated blacklist and ingredient list; clients replace,
// not merge.
func (s *Session) Blacklist(name string, fromIngredients bool) (string, []string, []Ingredient) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.ToLower(name)
	present := false
	for _, b := range s.blacklist {
		if b == name {
			present = true
			break
		}
	}
	if !present {
		s.blacklist = append(s.blacklist, name)
	}

	if fromIngredients {
		kept := s.ingredients[:0]
		for _, ing := range s.ingredients {
			if ing.Name != name {
				kept = append(kept, ing)
			}
		}
		s.ingredients = kept
	}

	s.touchLocked()
	return name, append([]string{}, s.blacklist...), s.ingredientsCopyLocked()
}

// AddRecipe appends the recipe with server-assigned id, creation time, and
// zeroed tallies. The opaque body fields are preserved as sent.
func (s *Session) AddRecipe(r Recipe) *Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = uuid.NewString()
	r.CreatedAt = nowMillis()
	r.Votes = 0
	r.VoterIDs = []string{}
	rec := &r
	s.recipes = append(s.recipes, rec)
	s.touchLocked()
	return rec.clone()
}

// RemoveRecipe removes by id. Removing a missing id is a silent no-op.
func (s *Session) RemoveRecipe(id string) (*Recipe, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.recipes {
		if r.ID == id {
			removed := r.clone()
			s.recipes = append(s.recipes[:i], s.recipes[i+1:]...)
			s.touchLocked()
			return removed, true
		}
	}
	return nil, false
}

// Vote records userID's stance on recipeID, erasing any prior vote first
// (neutral erases without replacing), then recomputes every recipe's tally
// and voter set from the vote table. Returns copies of all recipes.
func (s *Session) Vote(userID, recipeID string, vote VoteType) []*Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()

	userVotes := s.votes[userID]
	if userVotes == nil {
		userVotes = make(map[string]VoteType)
		s.votes[userID] = userVotes
	}
	delete(userVotes, recipeID)
	if vote != VoteNeutral {
		userVotes[recipeID] = vote
	}

	s.recomputeVotesLocked()
	s.touchLocked()
	return s.recipesCopyLocked()
}

// recomputeVotesLocked derives votes and voterIds for every recipe from the
// vote table. The stored tallies are never trusted or incrementally
// adjusted.
func (s *Session) recomputeVotesLocked() {
	for _, r := range s.recipes {
		tally := 0
		voterIDs := []string{}
		for userID, userVotes := range s.votes {
			switch userVotes[r.ID] {
			case VoteUp:
				tally++
			case VoteDown:
				tally--
			default:
				continue
			}
			voterIDs = append(voterIDs, userID)
		}
		r.Votes = tally
		r.VoterIDs = voterIDs
	}
}

// SetContext overwrites the shared context string. Authority is checked by
// the caller; the asymmetric silent-drop rule lives in the dispatcher.
func (s *Session) SetContext(context string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context = context
	s.touchLocked()
}

// TransferHost moves host privileges to newHostID, which must already be a
// participant. A self-transfer is accepted and changes nothing but
// lastActivity.
func (s *Session) TransferHost(newHostID string) (string, *Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.participantLocked(newHostID)
	if p == nil {
		return "", nil, ErrNoSuchHost
	}
	s.hostID = p.ID
	s.hostName = p.Name
	s.touchLocked()
	return p.Name, s.snapshotLocked(), nil
}

// SetAllowRecipeGeneration updates the host's advisory policy flag.
func (s *Session) SetAllowRecipeGeneration(allow bool) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowRecipeGeneration = allow
	s.touchLocked()
	return s.snapshotLocked()
}

// Snapshot returns the full wire form of the session.
func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() *Snapshot {
	snap := &Snapshot{
		ID:                    s.id,
		HostID:                s.hostID,
		HostName:              s.hostName,
		CreatedAt:             s.createdAt,
		LastActivity:          s.lastActivity.Load(),
		AllowRecipeGeneration: s.allowRecipeGeneration,
		Participants:          make([]Participant, 0, len(s.participants)),
		Ingredients:           s.ingredientsCopyLocked(),
		Blacklist:             append([]string{}, s.blacklist...),
		Context:               s.context,
		Recipes:               s.recipesCopyLocked(),
		Votes:                 make(map[string]map[string]VoteType, len(s.votes)),
	}
	for _, p := range s.participants {
		snap.Participants = append(snap.Participants, *p)
	}
	for userID, userVotes := range s.votes {
		cp := make(map[string]VoteType, len(userVotes))
		for recipeID, v := range userVotes {
			cp[recipeID] = v
		}
		snap.Votes[userID] = cp
	}
	return snap
}

func (s *Session) ingredientsCopyLocked() []Ingredient {
	out := make([]Ingredient, 0, len(s.ingredients))
	for _, ing := range s.ingredients {
		out = append(out, *ing)
	}
	return out
}

func (s *Session) recipesCopyLocked() []*Recipe {
	out := make([]*Recipe, 0, len(s.recipes))
	for _, r := range s.recipes {
		out = append(out, r.clone())
	}
	return out
}

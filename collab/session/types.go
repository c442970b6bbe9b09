package session

import (
	"encoding/json"
	"time"
)

// All timestamps in this package are epoch milliseconds. Clients render them
// directly and the TTL bookkeeping compares them, so they never leave this
// representation.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// Participant is a member of a session. A participant is never removed on
// disconnect; only IsConnected and the timestamps change. The record lives
// as long as its session does.
type Participant struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	JoinedAt       int64  `json:"joinedAt"`
	IsConnected    bool   `json:"isConnected"`
	ReconnectedAt  int64  `json:"reconnectedAt,omitempty"`
	DisconnectedAt int64  `json:"disconnectedAt,omitempty"`
}

// Ingredient is a shared list entry. Name is stored lowercased; the ID is
// assigned by the server on insertion and any client-supplied id is ignored.
type Ingredient struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	AddedBy string `json:"addedBy"`
	AddedAt int64  `json:"addedAt"`
}

// VoteType is a participant's stance on a recipe. Neutral erases the vote.
type VoteType string

const (
	VoteUp      VoteType = "up"
	VoteDown    VoteType = "down"
	VoteNeutral VoteType = "neutral"
)

// Valid reports whether v is one of the three accepted vote types.
func (v VoteType) Valid() bool {
	return v == VoteUp || v == VoteDown || v == VoteNeutral
}

// Recipe carries a handful of server-owned fields plus whatever opaque body
// the client sent. Votes and VoterIDs are recomputed from the session's vote
// table after every vote; client-supplied values are overwritten.
type Recipe struct {
	ID        string
	Title     string
	CreatedAt int64
	Votes     int
	VoterIDs  []string

	// Extra holds the client's opaque body fields (description, steps,
	// servings, whatever the generator produced). They round-trip
	// untouched.
	Extra map[string]json.RawMessage
}

// MarshalJSON flattens the opaque body fields alongside the server-owned
// ones. Server-owned keys win on collision.
func (r Recipe) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Extra)+5)
	for k, v := range r.Extra {
		out[k] = v
	}

	voterIDs := r.VoterIDs
	if voterIDs == nil {
		voterIDs = []string{}
	}

	owned := map[string]any{
		"id":        r.ID,
		"title":     r.Title,
		"createdAt": r.CreatedAt,
		"votes":     r.Votes,
		"voterIds":  voterIDs,
	}
	for k, v := range owned {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = b
	}

	return json.Marshal(out)
}

// UnmarshalJSON splits the known fields out of the payload and keeps the
// rest in Extra.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Extra = make(map[string]json.RawMessage)
	for k, v := range raw {
		switch k {
		case "id":
			if err := json.Unmarshal(v, &r.ID); err != nil {
				return err
			}
		case "title":
			if err := json.Unmarshal(v, &r.Title); err != nil {
				return err
			}
		case "createdAt":
			if err := json.Unmarshal(v, &r.CreatedAt); err != nil {
				return err
			}
		case "votes":
			if err := json.Unmarshal(v, &r.Votes); err != nil {
				return err
			}
		case "voterIds":
			if err := json.Unmarshal(v, &r.VoterIDs); err != nil {
				return err
			}
		default:
			r.Extra[k] = v
		}
	}

	return nil
}

// clone returns an independent copy safe to hand to the broadcaster after
// the session lock is released.
func (r *Recipe) clone() *Recipe {
	cp := *r
	cp.VoterIDs = append([]string(nil), r.VoterIDs...)
	if cp.VoterIDs == nil {
		cp.VoterIDs = []string{}
	}
	if r.Extra != nil {
		cp.Extra = make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			cp.Extra[k] = v
		}
	}
	return &cp
}

// Snapshot is the full wire form of a session, delivered on create/join and
// with host transfers. Clients replace their local state with it rather
// than merging.
type Snapshot struct {
	ID                    string                         `json:"id"`
	HostID                string                         `json:"hostId"`
	HostName              string                         `json:"hostName"`
	CreatedAt             int64                          `json:"createdAt"`
	LastActivity          int64                          `json:"lastActivity"`
	AllowRecipeGeneration bool                           `json:"allowRecipeGeneration"`
	Participants          []Participant                  `json:"participants"`
	Ingredients           []Ingredient                   `json:"ingredients"`
	Blacklist             []string                       `json:"blacklist"`
	Context               string                         `json:"context"`
	Recipes               []*Recipe                      `json:"recipes"`
	Votes                 map[string]map[string]VoteType `json:"votes"`
}

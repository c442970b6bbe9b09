package websocket

import (
	"encoding/json"

	"github.com/potluckhq/potluck/collab/session"
)

// Inbound commands arrive as {"type": ..., "data": {...}} text frames, one
// JSON object per frame. Outbound events are flat objects with a top-level
// type field and no data wrapper.

// Command types.
const (
	CmdSessionCreate        = "session:create"
	CmdSessionJoin          = "session:join"
	CmdIngredientsAdd       = "ingredients:add"
	CmdIngredientsRemove    = "ingredients:remove"
	CmdIngredientsBlacklist = "ingredients:blacklist"
	CmdRecipesAdd           = "recipes:add"
	CmdRecipesVote          = "recipes:vote"
	CmdRecipesRemove        = "recipes:remove"
	CmdContextUpdate        = "context:update"
	CmdHostTransfer         = "host:transfer"
	CmdHostPermissions      = "host:permissions"
	CmdSessionEnd           = "session:end"
)

// Event types.
const (
	EvtConnectionEstablished   = "connection:established"
	EvtSessionCreated          = "session:created"
	EvtSessionJoined           = "session:joined"
	EvtSessionError            = "session:error"
	EvtSessionExpired          = "session:expired"
	EvtSessionEnded            = "session:ended"
	EvtParticipantJoined       = "session:participant:joined"
	EvtParticipantDisconnected = "session:participant:disconnected"
	EvtIngredientsAdded        = "ingredients:added"
	EvtIngredientsRemoved      = "ingredients:removed"
	EvtIngredientsBlacklisted  = "ingredients:blacklisted"
	EvtRecipesAdded            = "recipes:added"
	EvtRecipesVoted            = "recipes:voted"
	EvtRecipesRemoved          = "recipes:removed"
	EvtContextUpdated          = "context:updated"
	EvtHostTransferred         = "host:transferred"
	EvtHostPermissionsUpdated  = "host:permissions:updated"
	EvtError                   = "error"
)

// envelope is the inbound frame. Data stays raw until the dispatcher knows
// which payload struct to decode it into.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Command payloads.

type sessionCreatePayload struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
}

type sessionJoinPayload struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
}

type ingredientsAddPayload struct {
	Ingredient struct {
		Name    string `json:"name"`
		AddedBy string `json:"addedBy"`
	} `json:"ingredient"`
}

type ingredientsRemovePayload struct {
	IngredientID string `json:"ingredientId"`
}

type ingredientsBlacklistPayload struct {
	IngredientName  string `json:"ingredientName"`
	FromIngredients bool   `json:"fromIngredients"`
}

type recipesAddPayload struct {
	Recipe session.Recipe `json:"recipe"`
}

type recipesVotePayload struct {
	RecipeID string           `json:"recipeId"`
	VoteType session.VoteType `json:"voteType"`
}

type recipesRemovePayload struct {
	RecipeID string `json:"recipeId"`
}

type contextUpdatePayload struct {
	Context string `json:"context"`
}

type hostTransferPayload struct {
	NewHostID string `json:"newHostId"`
}

type hostPermissionsPayload struct {
	AllowRecipeGeneration bool `json:"allowRecipeGeneration"`
}

// Events.

type connectionEstablishedEvent struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connectionId"`
}

type sessionSnapshotEvent struct {
	Type    string            `json:"type"`
	Session *session.Snapshot `json:"session"`
}

type sessionErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type sessionExpiredEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

type sessionEndedEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type participantJoinedEvent struct {
	Type        string              `json:"type"`
	Participant session.Participant `json:"participant"`
}

type participantDisconnectedEvent struct {
	Type     string `json:"type"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type ingredientsAddedEvent struct {
	Type       string             `json:"type"`
	Ingredient session.Ingredient `json:"ingredient"`
}

type ingredientsRemovedEvent struct {
	Type         string             `json:"type"`
	IngredientID string             `json:"ingredientId"`
	Ingredient   session.Ingredient `json:"ingredient"`
}

type ingredientsBlacklistedEvent struct {
	Type           string               `json:"type"`
	IngredientName string               `json:"ingredientName"`
	Blacklist      []string             `json:"blacklist"`
	Ingredients    []session.Ingredient `json:"ingredients"`
}

type recipesAddedEvent struct {
	Type   string          `json:"type"`
	Recipe *session.Recipe `json:"recipe"`
}

type recipesVotedEvent struct {
	Type     string            `json:"type"`
	RecipeID string            `json:"recipeId"`
	VoteType session.VoteType  `json:"voteType"`
	UserID   string            `json:"userId"`
	Recipes  []*session.Recipe `json:"recipes"`
}

type recipesRemovedEvent struct {
	Type     string          `json:"type"`
	RecipeID string          `json:"recipeId"`
	Recipe   *session.Recipe `json:"recipe"`
}

type contextUpdatedEvent struct {
	Type    string `json:"type"`
	Context string `json:"context"`
}

type hostTransferredEvent struct {
	Type        string            `json:"type"`
	NewHostID   string            `json:"newHostId"`
	NewHostName string            `json:"newHostName"`
	Session     *session.Snapshot `json:"session"`
}

type hostPermissionsUpdatedEvent struct {
	Type                  string            `json:"type"`
	AllowRecipeGeneration bool              `json:"allowRecipeGeneration"`
	Session               *session.Snapshot `json:"session"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

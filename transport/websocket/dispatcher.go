package websocket

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/potluckhq/potluck/collab/session"
	"github.com/potluckhq/potluck/metrics"
)

// dispatch routes an inbound command to its handler. Unknown types get a
// non-fatal error event; the connection stays up.
func (h *Hub) dispatch(c *Client, env envelope) {
	metrics.Incr("hub.commands", 1)

	switch env.Type {
	case CmdSessionCreate:
		h.handleSessionCreate(c, env.Data)
	case CmdSessionJoin:
		h.handleSessionJoin(c, env.Data)
	case CmdIngredientsAdd:
		h.handleIngredientsAdd(c, env.Data)
	case CmdIngredientsRemove:
		h.handleIngredientsRemove(c, env.Data)
	case CmdIngredientsBlacklist:
		h.handleIngredientsBlacklist(c, env.Data)
	case CmdRecipesAdd:
		h.handleRecipesAdd(c, env.Data)
	case CmdRecipesVote:
		h.handleRecipesVote(c, env.Data)
	case CmdRecipesRemove:
		h.handleRecipesRemove(c, env.Data)
	case CmdContextUpdate:
		h.handleContextUpdate(c, env.Data)
	case CmdHostTransfer:
		h.handleHostTransfer(c, env.Data)
	case CmdHostPermissions:
		h.handleHostPermissions(c, env.Data)
	case CmdSessionEnd:
		h.handleSessionEnd(c)
	default:
		c.sendJSON(errorEvent{Type: EvtError, Message: "Unknown message type: " + env.Type})
	}
}

// decode unmarshals a command payload, answering with a protocol error on
// malformed data. Returns false when the handler should bail.
func (h *Hub) decode(c *Client, data json.RawMessage, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		c.sendJSON(errorEvent{Type: EvtError, Message: "Invalid message format"})
		return false
	}
	return true
}

// resolveSession looks up the registered connection's session. Commands
// from unregistered connections are ignored; commands against a session
// that has since expired or ended get a session:error.
func (h *Hub) resolveSession(c *Client) (clientInfo, *session.Session, bool) {
	info, ok := h.lookup(c)
	if !ok {
		return clientInfo{}, nil, false
	}
	sess, err := h.store.Get(info.sessionID)
	if err != nil {
		c.sendJSON(sessionErrorEvent{Type: EvtSessionError, Message: "Session not found or expired"})
		return info, nil, false
	}
	return info, sess, true
}

func (h *Hub) handleSessionCreate(c *Client, data json.RawMessage) {
	var p sessionCreatePayload
	if !h.decode(c, data, &p) {
		return
	}
	if p.SessionID == "" || p.UserID == "" {
		c.sendJSON(sessionErrorEvent{Type: EvtSessionError, Message: "sessionId and userId are required"})
		return
	}

	sess, err := h.store.Create(p.SessionID, p.UserID, p.Username)
	if err == nil {
		h.register(c, p.UserID, p.SessionID, p.Username)
		metrics.Incr("sessions.created", 1)
		log.Printf("[SESSION] created id=%s host=%s", p.SessionID, p.UserID)
		c.sendJSON(sessionSnapshotEvent{Type: EvtSessionCreated, Session: sess.Snapshot()})
		return
	}
	if !errors.Is(err, session.ErrSessionExists) {
		c.sendJSON(sessionErrorEvent{Type: EvtSessionError, Message: err.Error()})
		return
	}

	existing, err := h.store.Get(p.SessionID)
	if err != nil {
		c.sendJSON(sessionErrorEvent{Type: EvtSessionError, Message: "Session not found or expired"})
		return
	}

	// A create against a live session is only legal for the host coming
	// back; anyone else has to join.
	if existing.HostID() != p.UserID {
		c.sendJSON(sessionErrorEvent{Type: EvtSessionError, Message: "Session already exists"})
		return
	}

	h.displaceUser(p.UserID, c)
	participant, snap, _ := existing.Join(p.UserID, p.Username)
	h.register(c, p.UserID, p.SessionID, p.Username)
	log.Printf("[SESSION] host rejoined id=%s host=%s", p.SessionID, p.UserID)

	c.sendJSON(sessionSnapshotEvent{Type: EvtSessionCreated, Session: snap})
	h.BroadcastToSession(p.SessionID, participantJoinedEvent{
		Type:        EvtParticipantJoined,
		Participant: participant,
	}, p.UserID)
}

func (h *Hub) handleSessionJoin(c *Client, data json.RawMessage) {
	var p sessionJoinPayload
	if !h.decode(c, data, &p) {
		return
	}

	sess, err := h.store.Get(p.SessionID)
	if err != nil {
		c.sendJSON(sessionErrorEvent{Type: EvtSessionError, Message: "Session not found or expired"})
		return
	}

	if other, ok := h.userClient(p.UserID); ok && other != c {
		c.sendJSON(sessionErrorEvent{Type: EvtSessionError, Message: "User already connected from another client"})
		return
	}

	participant, snap, rejoined := sess.Join(p.UserID, p.Username)
	h.register(c, p.UserID, p.SessionID, p.Username)
	if rejoined {
		log.Printf("[SESSION] rejoined id=%s user=%s", p.SessionID, p.UserID)
	} else {
		log.Printf("[SESSION] joined id=%s user=%s", p.SessionID, p.UserID)
	}

	c.sendJSON(sessionSnapshotEvent{Type: EvtSessionJoined, Session: snap})
	h.BroadcastToSession(p.SessionID, participantJoinedEvent{
		Type:        EvtParticipantJoined,
		Participant: participant,
	}, p.UserID)
}

func (h *Hub) handleIngredientsAdd(c *Client, data json.RawMessage) {
	var p ingredientsAddPayload
	if !h.decode(c, data, &p) {
		return
	}
	info, sess, ok := h.resolveSession(c)
	if !ok || p.Ingredient.Name == "" {
		return
	}

	addedBy := p.Ingredient.AddedBy
	if addedBy == "" {
		addedBy = info.userID
	}

	// Duplicate names are an idempotent no-op; nothing is broadcast and
	// the original addedBy stands.
	ing, added := sess.AddIngredient(p.Ingredient.Name, addedBy)
	if !added {
		return
	}

	// The originator is included so it can adopt the server-assigned id.
	h.BroadcastToSession(info.sessionID, ingredientsAddedEvent{
		Type:       EvtIngredientsAdded,
		Ingredient: ing,
	}, "")
}

func (h *Hub) handleIngredientsRemove(c *Client, data json.RawMessage) {
	var p ingredientsRemovePayload
	if !h.decode(c, data, &p) {
		return
	}
	info, sess, ok := h.resolveSession(c)
	if !ok {
		return
	}

	ing, removed := sess.RemoveIngredient(p.IngredientID)
	if !removed {
		return
	}

	h.BroadcastToSession(info.sessionID, ingredientsRemovedEvent{
		Type:         EvtIngredientsRemoved,
		IngredientID: p.IngredientID,
		Ingredient:   ing,
	}, "")
}

func (h *Hub) handleIngredientsBlacklist(c *Client, data json.RawMessage) {
	var p ingredientsBlacklistPayload
	if !h.decode(c, data, &p) {
		return
	}
	info, sess, ok := h.resolveSession(c)
	if !ok || p.IngredientName == "" {
		return
	}

	name, blacklist, ingredients := sess.Blacklist(p.IngredientName, p.FromIngredients)

	// Snapshot semantics: clients replace both arrays rather than merging.
	h.BroadcastToSession(info.sessionID, ingredientsBlacklistedEvent{
		Type:           EvtIngredientsBlacklisted,
		IngredientName: name,
		Blacklist:      blacklist,
		Ingredients:    ingredients,
	}, "")
}

func (h *Hub) handleRecipesAdd(c *Client, data json.RawMessage) {
	var p recipesAddPayload
	if !h.decode(c, data, &p) {
		return
	}
	info, sess, ok := h.resolveSession(c)
	if !ok {
		return
	}

	rec := sess.AddRecipe(p.Recipe)
	h.BroadcastToSession(info.sessionID, recipesAddedEvent{
		Type:   EvtRecipesAdded,
		Recipe: rec,
	}, "")
}

func (h *Hub) handleRecipesVote(c *Client, data json.RawMessage) {
	var p recipesVotePayload
	if !h.decode(c, data, &p) {
		return
	}
	info, sess, ok := h.resolveSession(c)
	if !ok {
		return
	}
	if !p.VoteType.Valid() {
		c.sendJSON(errorEvent{Type: EvtError, Message: "Invalid vote type: " + string(p.VoteType)})
		return
	}

	// The voter is whoever this connection registered as, never a field
	// of the payload.
	recipes := sess.Vote(info.userID, p.RecipeID, p.VoteType)
	h.BroadcastToSession(info.sessionID, recipesVotedEvent{
		Type:     EvtRecipesVoted,
		RecipeID: p.RecipeID,
		VoteType: p.VoteType,
		UserID:   info.userID,
		Recipes:  recipes,
	}, "")
}

func (h *Hub) handleRecipesRemove(c *Client, data json.RawMessage) {
	var p recipesRemovePayload
	if !h.decode(c, data, &p) {
		return
	}
	info, sess, ok := h.resolveSession(c)
	if !ok {
		return
	}

	rec, removed := sess.RemoveRecipe(p.RecipeID)
	if !removed {
		return
	}

	h.BroadcastToSession(info.sessionID, recipesRemovedEvent{
		Type:     EvtRecipesRemoved,
		RecipeID: p.RecipeID,
		Recipe:   rec,
	}, "")
}

func (h *Hub) handleContextUpdate(c *Client, data json.RawMessage) {
	var p contextUpdatePayload
	if !h.decode(c, data, &p) {
		return
	}
	info, sess, ok := h.resolveSession(c)
	if !ok {
		return
	}

	// Non-host context updates are dropped without a reply. The other
	// host-only commands answer with typed errors; this one is fire-and-
	// forget on the client side and a reply would race the host's own
	// echo suppression.
	if !sess.IsHost(info.userID) {
		return
	}

	sess.SetContext(p.Context)

	// The host's own UI already holds the value it sent.
	h.BroadcastToSession(info.sessionID, contextUpdatedEvent{
		Type:    EvtContextUpdated,
		Context: p.Context,
	}, info.userID)
}

func (h *Hub) handleHostTransfer(c *Client, data json.RawMessage) {
	var p hostTransferPayload
	if !h.decode(c, data, &p) {
		return
	}
	info, sess, ok := h.resolveSession(c)
	if !ok {
		return
	}

	if !sess.IsHost(info.userID) {
		c.sendJSON(errorEvent{Type: EvtError, Message: "Only host can transfer privileges"})
		return
	}

	newHostName, snap, err := sess.TransferHost(p.NewHostID)
	if err != nil {
		c.sendJSON(errorEvent{Type: EvtError, Message: "New host not found in session"})
		return
	}

	log.Printf("[SESSION] host transferred id=%s from=%s to=%s", info.sessionID, info.userID, p.NewHostID)
	h.BroadcastToSession(info.sessionID, hostTransferredEvent{
		Type:        EvtHostTransferred,
		NewHostID:   p.NewHostID,
		NewHostName: newHostName,
		Session:     snap,
	}, "")
}

func (h *Hub) handleHostPermissions(c *Client, data json.RawMessage) {
	var p hostPermissionsPayload
	if !h.decode(c, data, &p) {
		return
	}
	info, sess, ok := h.resolveSession(c)
	if !ok {
		return
	}

	if !sess.IsHost(info.userID) {
		c.sendJSON(errorEvent{Type: EvtError, Message: "Only host can update permissions"})
		return
	}

	snap := sess.SetAllowRecipeGeneration(p.AllowRecipeGeneration)
	h.BroadcastToSession(info.sessionID, hostPermissionsUpdatedEvent{
		Type:                  EvtHostPermissionsUpdated,
		AllowRecipeGeneration: p.AllowRecipeGeneration,
		Session:               snap,
	}, "")
}

func (h *Hub) handleSessionEnd(c *Client) {
	info, sess, ok := h.resolveSession(c)
	if !ok {
		return
	}

	if !sess.IsHost(info.userID) {
		c.sendJSON(errorEvent{Type: EvtError, Message: "Only host can end the session"})
		return
	}

	log.Printf("[SESSION] ended id=%s by host=%s", info.sessionID, info.userID)
	h.store.Delete(info.sessionID)
	h.SessionEnded(info.sessionID, "Session ended by host")
}

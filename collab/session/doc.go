// Package session holds the authoritative state for collaborative
// meal-planning sessions.
//
// The session package implements:
//   - The shared session document: participants, ingredients, blacklist,
//     context, recipes, and the vote table
//   - Per-session mutation serialization
//   - Thread-safe session storage and retrieval
//   - TTL-aware lookup and expired-session sweeping
//
// Core Types:
//
// Session is one group's shared document. Store maps session ids to
// sessions and is the only owner of the session map.
//
// Concurrency:
//
// The store guards its map with its own lock; each session serializes its
// mutations under a per-session lock, so operations on different sessions
// never contend. lastActivity is an atomic so the store's TTL checks do not
// take the session lock.
//
// Server authority:
//
// Ingredient and recipe ids are assigned on insertion; client-supplied ids
// are ignored. Recipe tallies and voter sets are recomputed from the vote
// table after every vote rather than adjusted incrementally, so they can
// never drift from the votes actually recorded.
//
// Lifecycle:
//
// Sessions are created by the first session:create, mutated by commands,
// and destroyed by host-initiated end or by the TTL sweep. Participants
// persist across disconnects and are destroyed only with their session.
package session

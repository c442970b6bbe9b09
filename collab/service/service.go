package service

import (
	"context"

	"github.com/potluckhq/potluck/collab/session"
)

// SessionService is the read-mostly surface consumed by the REST API and
// the MCP tools. All collaborative mutation flows through the websocket
// commands; this layer only lists, inspects, and terminates.
type SessionService interface {
	ListSessions(ctx context.Context) []*SessionSummary
	GetSession(ctx context.Context, id string) (*session.Snapshot, error)
	EndSession(ctx context.Context, id, reason string) error
	Stats(ctx context.Context) *Stats
}

// Realtime is what the service needs from the websocket hub: terminal
// notification plus a connection gauge. Keeping it an interface here keeps
// the transport dependency pointing in one direction.
type Realtime interface {
	SessionEnded(sessionID, reason string)
	ConnectionCount() int
}

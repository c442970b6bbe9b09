package service

import (
	"context"
	"fmt"

	"github.com/potluckhq/potluck/collab/session"
)

type sessionServiceImpl struct {
	store    *session.Store
	realtime Realtime
}

// New creates the session service over the store and the realtime hub.
func New(store *session.Store, realtime Realtime) SessionService {
	return &sessionServiceImpl{store: store, realtime: realtime}
}

func (s *sessionServiceImpl) ListSessions(ctx context.Context) []*SessionSummary {
	sessions := s.store.List()
	out := make([]*SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		snap := sess.Snapshot()
		connected := 0
		for _, p := range snap.Participants {
			if p.IsConnected {
				connected++
			}
		}
		out = append(out, &SessionSummary{
			ID:           snap.ID,
			HostID:       snap.HostID,
			HostName:     snap.HostName,
			CreatedAt:    snap.CreatedAt,
			LastActivity: snap.LastActivity,
			Participants: len(snap.Participants),
			Connected:    connected,
			Ingredients:  len(snap.Ingredients),
			Recipes:      len(snap.Recipes),
		})
	}
	return out
}

func (s *sessionServiceImpl) GetSession(ctx context.Context, id string) (*session.Snapshot, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return sess.Snapshot(), nil
}

// EndSession is the operator path for terminating a session: same terminal
// broadcast and connection closure as a host-initiated end.
func (s *sessionServiceImpl) EndSession(ctx context.Context, id, reason string) error {
	if _, err := s.store.Get(id); err != nil {
		return fmt.Errorf("session %s: %w", id, err)
	}
	if reason == "" {
		reason = "Session ended"
	}
	s.store.Delete(id)
	s.realtime.SessionEnded(id, reason)
	return nil
}

func (s *sessionServiceImpl) Stats(ctx context.Context) *Stats {
	return &Stats{
		Sessions:    s.store.Count(),
		Connections: s.realtime.ConnectionCount(),
	}
}

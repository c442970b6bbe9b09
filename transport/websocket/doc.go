// Package websocket is the realtime transport for collaborative sessions.
//
// The websocket package implements:
//   - The connection endpoint: upgrade, JSON framing, keepalive
//   - The client registry: live connection <-> (userId, sessionId)
//   - The command dispatcher: typed routing with authority checks
//   - The broadcaster: session fan-out with optional single-user exclusion
//   - The reaper: periodic TTL sweep with session:expired notification
//
// Message Protocol:
//
// Inbound frames are JSON envelopes {type, data}; outbound events are flat
// objects with a top-level type field. The exhaustive command and event
// vocabularies live in protocol.go.
//
// Connection Lifecycle:
//
// 1. Client connects and receives connection:established
// 2. A successful session:create or session:join registers the connection
// 3. Commands mutate session state; events fan out to the session
// 4. Disconnection flips the participant offline and notifies the others
//
// A connection that never completes a create/join can only be greeted and
// refused; every other command is ignored until registration.
//
// Concurrency:
//
// Each connection runs a read pump and a write pump. The registry is guarded
// by the hub lock; broadcast targets are snapshotted under it and written
// outside it. Session mutations serialize per session inside the session
// package, so events for one session are observed by every peer in mutation
// order. Writes to a peer are best-effort: a full send buffer drops the
// message rather than blocking the session.
package websocket

// Package api provides the HTTP surface for the session hub.
//
// The api package implements:
//   - RESTful inspection endpoints for operators
//   - Operator-initiated session termination
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Health and stats:
//   - GET /api/health - Liveness check
//   - GET /api/stats - Session and connection counts
//
// Session inspection:
//   - GET /api/sessions - List session summaries (sort, order, limit)
//   - GET /api/sessions/{id} - Full session snapshot
//   - DELETE /api/sessions/{id} - End a session; participants receive
//     session:ended and their connections are closed
//
// Realtime:
//   - GET /ws - WebSocket upgrade; all collaborative commands flow over
//     this connection
//
// Request/Response Format:
//
// All REST endpoints return JSON. Errors are returned as JSON with
// appropriate HTTP status codes:
//
//	{
//	  "error": "error message"
//	}
package api

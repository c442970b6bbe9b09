// Package service provides the operations layer between the transports and
// the session store.
//
// The REST API and the MCP tools both consume SessionService. It is
// read-mostly: listing, inspection, stats, and operator-initiated
// termination. All collaborative mutation (ingredients, recipes,
// votes, context, host controls) flows through the websocket commands,
// which own the per-session serialization and broadcasting.
package service

// Package mcp exposes the session hub over the Model Context Protocol.
//
// The MCP surface is a thin proxy over the REST API: listing, snapshot
// inspection, hub stats, and operator termination. It offers no
// collaborative mutation; those commands belong to the websocket protocol
// where per-session ordering is enforced.
//
// The server runs in two shapes, mirroring main.go's modes:
//   - mounted at /mcp on the HTTP server
//   - as a stdio server (stdio-mcp mode), probing for an external API and
//     falling back to an internal one
package mcp

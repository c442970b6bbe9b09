package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/potluckhq/potluck/collab/service"
	"github.com/potluckhq/potluck/collab/session"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Potluck Session Hub",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Potluck Session Hub - MCP Interface

This is a thin client that proxies inspection requests to the REST API.

Sessions are live collaborative meal-planning documents: participants,
a shared ingredient list, a blacklist, a context string, and voted-on
recipes. All collaborative mutation happens over the websocket protocol;
these tools observe and, when necessary, terminate.

AVAILABLE TOOLS:
- list_sessions: List all live sessions
- get_session: Full snapshot of one session
- session_stats: Hub-wide session and connection counts
- end_session: Terminate a session (participants are notified and
  disconnected)`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all live collaborative sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get the full snapshot of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "The session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "session_stats",
		Description: "Get hub-wide session and connection counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleSessionStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "end_session",
		Description: "Terminate a session; participants receive session:ended and are disconnected",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "The session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleEndSession)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                       `json:"count"`
		Sessions []service.SessionSummary `json:"sessions"`
	}

	err := c.apiCall("GET", "/api/sessions", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Live Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- %s (Host: %s, Participants: %d/%d connected, Ingredients: %d, Recipes: %d)\n",
			s.ID, s.HostName, s.Connected, s.Participants, s.Ingredients, s.Recipes)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var snap session.Snapshot
	err := c.apiCall("GET", fmt.Sprintf("/api/sessions/%s", sessionID), nil, &snap)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snap)), nil
}

func (c *Client) handleSessionStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats service.Stats
	err := c.apiCall("GET", "/api/stats", nil, &stats)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Sessions: %d\nConnections: %d\n", stats.Sessions, stats.Connections)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleEndSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	err := c.apiCall("DELETE", fmt.Sprintf("/api/sessions/%s", sessionID), nil, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Session %s ended", sessionID)), nil
}

// formatSnapshot renders a session snapshot for tool output.
func formatSnapshot(snap *session.Snapshot) string {
	result := fmt.Sprintf("Session %s\n", snap.ID)
	result += fmt.Sprintf("Host: %s (%s)\n", snap.HostName, snap.HostID)
	result += fmt.Sprintf("Created: %s\n", time.UnixMilli(snap.CreatedAt).Format(time.RFC3339))
	result += fmt.Sprintf("Last activity: %s\n", time.UnixMilli(snap.LastActivity).Format(time.RFC3339))
	result += fmt.Sprintf("Recipe generation allowed: %v\n", snap.AllowRecipeGeneration)

	result += fmt.Sprintf("\nParticipants (%d):\n", len(snap.Participants))
	for _, p := range snap.Participants {
		state := "disconnected"
		if p.IsConnected {
			state = "connected"
		}
		result += fmt.Sprintf("- %s (%s): %s\n", p.Name, p.ID, state)
	}

	result += fmt.Sprintf("\nIngredients (%d):\n", len(snap.Ingredients))
	for _, ing := range snap.Ingredients {
		result += fmt.Sprintf("- %s (added by %s)\n", ing.Name, ing.AddedBy)
	}

	if len(snap.Blacklist) > 0 {
		result += fmt.Sprintf("\nBlacklist: %v\n", snap.Blacklist)
	}
	if snap.Context != "" {
		result += fmt.Sprintf("\nContext: %s\n", snap.Context)
	}

	result += fmt.Sprintf("\nRecipes (%d):\n", len(snap.Recipes))
	for _, r := range snap.Recipes {
		result += fmt.Sprintf("- %s (votes: %d, voters: %v)\n", r.Title, r.Votes, r.VoterIDs)
	}

	return result
}

// apiCall makes an HTTP request to the REST API
func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

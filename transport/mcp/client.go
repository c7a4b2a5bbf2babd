package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/co2-logistics-game/game/engine"
	"github.com/wricardo/co2-logistics-game/game/service"
)

// Version is reported to MCP clients
const Version = "1.0.0"

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// route recomputes may wait on several road lookups
			Timeout: 30 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"CO2 Logistics Game",
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`CO2 Logistics Game - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Deliver cargo between Japanese storages and ports while emitting less CO2 than the
quest's baseline. Every kg of CO2 saved is worth 10 points.

TURN FLOW:
start_game -> roll_dice (issues a quest) -> toggle_stop ... -> complete_quest -> next player

AVAILABLE TOOLS:
- create_session, get_session, list_sessions: session management
- start_game, roll_dice, complete_quest, reset_game, set_year: turn flow
- toggle_stop, remove_stop, clear_route, recompute_route: route building
- game_state, quest_history: inspection
- list_locations, port_destinations, port_years, estimate_emissions, list_configs: reference data
- game_instructions: full rules`),
	)

	c.registerTools()
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func numberProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": description}
}

var (
	sessionProp = stringProp("Session ID")
	kindProp    = map[string]interface{}{
		"type":        "string",
		"enum":        []string{string(engine.Storage), string(engine.Port)},
		"description": "Location kind",
	}
	locationIDProp = numberProp("Location id within its kind (see list_locations)")
	playersProp    = map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": "Player names in seating order (1 to 4)",
	}
)

// sessionTool declares a tool that takes a session_id plus extra properties
func sessionTool(name, description string, extra map[string]interface{}, required ...string) mcp.Tool {
	props := map[string]interface{}{"session_id": sessionProp}
	for k, v := range extra {
		props[k] = v
	}
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
			Required:   append([]string{"session_id"}, required...),
		},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session on a board, optionally seating players",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": stringProp("Board to use (optional, see list_configs)"),
				"players":   playersProp,
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(sessionTool("get_session", "Get details of a specific session", nil), c.handleGetSession)

	// Turn flow
	c.mcpServer.AddTool(sessionTool("game_state", "Get the current game state", nil), c.handleGameState)
	c.mcpServer.AddTool(sessionTool("start_game", "Seat players and start (or restart) the game",
		map[string]interface{}{"players": playersProp}, "players"), c.handleStartGame)
	c.mcpServer.AddTool(sessionTool("roll_dice", "Roll for the current player, move them and issue a delivery quest", nil), c.handleRollDice)
	c.mcpServer.AddTool(sessionTool("complete_quest", "Score the route when it ends at the quest destination", nil), c.handleCompleteQuest)
	c.mcpServer.AddTool(sessionTool("reset_game", "Clear players, quest, route and history", nil), c.handleReset)
	c.mcpServer.AddTool(sessionTool("set_year", "Select which year's shipping lanes apply",
		map[string]interface{}{"year": stringProp("Year, e.g. 2017 (see port_years)")}, "year"), c.handleSetYear)
	c.mcpServer.AddTool(sessionTool("quest_history", "View completed quests",
		map[string]interface{}{
			"page":  numberProp("Page number (default 1)"),
			"limit": numberProp("Quests per page (default 20)"),
		}), c.handleQuestHistory)

	// Route building
	locationProps := map[string]interface{}{"kind": kindProp, "location_id": locationIDProp}
	c.mcpServer.AddTool(sessionTool("toggle_stop", "Add a location to the route, or remove it if already a stop",
		locationProps, "kind", "location_id"), c.handleToggleStop)
	c.mcpServer.AddTool(sessionTool("remove_stop", "Remove a stop from anywhere in the route",
		locationProps, "kind", "location_id"), c.handleRemoveStop)
	c.mcpServer.AddTool(sessionTool("clear_route", "Remove every stop from the route", nil), c.handleClearRoute)
	c.mcpServer.AddTool(sessionTool("recompute_route", "Reprice every leg of the route", nil), c.handleRecomputeRoute)

	// Reference data
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_locations",
		Description: "List storages and ports with their ids",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"kind": kindProp},
		},
	}, c.handleListLocations)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "port_years",
		Description: "List years with shipping-lane data",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}, c.handlePortYears)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "port_destinations",
		Description: "List ports reachable by ship from a port in a year",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"from": stringProp("Origin port name"),
				"year": stringProp("Year (default 2017)"),
			},
			Required: []string{"from"},
		},
	}, c.handlePortDestinations)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "estimate_emissions",
		Description: "Fuel and CO2 for moving cargo a distance with one method",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"method": map[string]interface{}{
					"type": "string",
					"enum": []string{string(engine.Truck), string(engine.Ship), string(engine.Air)},
				},
				"distance_km": numberProp("Distance in kilometres"),
			},
			Required: []string{"method", "distance_km"},
		},
	}, c.handleEstimateEmissions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available boards",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the full game rules",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
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

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// intArg accepts JSON numbers and numeric strings
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}

func stringsArg(args map[string]interface{}, key string) []string {
	raw, _ := args[key].([]interface{})
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func sessionPath(args map[string]interface{}, suffix string) string {
	return "/api/sessions/" + url.PathEscape(stringArg(args, "session_id")) + suffix
}

// action posts to a session endpoint that answers with an ActionResult
func (c *Client) action(ctx context.Context, method, path string, body interface{}) (*mcp.CallToolResult, error) {
	var result service.ActionResult
	if err := c.apiCall(ctx, method, path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	body := map[string]interface{}{}
	if configID := stringArg(args, "config_id"); configID != "" {
		body["config_id"] = configID
	}
	if players := stringsArg(args, "players"); len(players) > 0 {
		body["players"] = players
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nBoard: %s\n", session.ID, session.ConfigID)
	if session.GameState != nil {
		result += "\n" + formatGameState(session.GameState)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		phase := "not started"
		if s.GameState != nil && s.GameState.Started {
			phase = string(s.GameState.Phase)
		}
		fmt.Fprintf(&b, "- %s (Board: %s, Phase: %s, Created: %s)\n",
			s.ID, s.ConfigID, phase, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(arguments(request), ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(arguments(request), "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleStartGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	return c.action(ctx, "POST", sessionPath(args, "/start"), map[string]interface{}{"players": stringsArg(args, "players")})
}

func (c *Client) handleRollDice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.action(ctx, "POST", sessionPath(arguments(request), "/roll"), nil)
}

func (c *Client) handleCompleteQuest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.action(ctx, "POST", sessionPath(arguments(request), "/complete"), nil)
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.action(ctx, "POST", sessionPath(arguments(request), "/reset"), nil)
}

func (c *Client) handleSetYear(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	return c.action(ctx, "PUT", sessionPath(args, "/year"), map[string]string{"year": stringArg(args, "year")})
}

func (c *Client) handleToggleStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	id, ok := intArg(args, "location_id")
	if !ok {
		return mcp.NewToolResultError("location_id must be a number"), nil
	}
	body := map[string]interface{}{"kind": stringArg(args, "kind"), "id": id}
	return c.action(ctx, "POST", sessionPath(args, "/route/toggle"), body)
}

func (c *Client) handleRemoveStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	id, ok := intArg(args, "location_id")
	if !ok {
		return mcp.NewToolResultError("location_id must be a number"), nil
	}
	path := sessionPath(args, fmt.Sprintf("/route/stops/%s/%d", url.PathEscape(stringArg(args, "kind")), id))
	return c.action(ctx, "DELETE", path, nil)
}

func (c *Client) handleClearRoute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.action(ctx, "POST", sessionPath(arguments(request), "/route/clear"), nil)
}

func (c *Client) handleRecomputeRoute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.action(ctx, "POST", sessionPath(arguments(request), "/route/recompute"), nil)
}

func (c *Client) handleQuestHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", strconv.Itoa(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := sessionPath(args, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListLocations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/locations"
	if kind := stringArg(arguments(request), "kind"); kind != "" {
		path += "?kind=" + url.QueryEscape(kind)
	}

	var locations []engine.Location
	if err := c.apiCall(ctx, "GET", path, nil, &locations); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Locations (%d):\n\n", len(locations))
	for _, l := range locations {
		fmt.Fprintf(&b, "- %s %d: %s (%.4f, %.4f)\n", l.Kind, l.ID, l.Name, l.Coords.Latitude, l.Coords.Longitude)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handlePortYears(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Years []string `json:"years"`
	}
	if err := c.apiCall(ctx, "GET", "/api/port-routes/years", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(response.Years) == 0 {
		return mcp.NewToolResultText("No shipping-lane data loaded; every port pair is allowed."), nil
	}
	return mcp.NewToolResultText("Shipping-lane years: " + strings.Join(response.Years, ", ")), nil
}

func (c *Client) handlePortDestinations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	params := url.Values{}
	params.Set("from", stringArg(args, "from"))
	if year := stringArg(args, "year"); year != "" {
		params.Set("year", year)
	}

	var response struct {
		From         string   `json:"from"`
		Year         string   `json:"year"`
		Destinations []string `json:"destinations"`
	}
	if err := c.apiCall(ctx, "GET", "/api/port-routes/destinations?"+params.Encode(), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(response.Destinations) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No shipping lanes from %s in %s.", response.From, response.Year)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Ships from %s in %s reach: %s",
		response.From, response.Year, strings.Join(response.Destinations, ", "))), nil
}

func (c *Client) handleEstimateEmissions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	distance, _ := args["distance_km"].(float64)

	params := url.Values{}
	params.Set("method", stringArg(args, "method"))
	params.Set("distance_km", strconv.FormatFloat(distance, 'f', -1, 64))

	var est service.EmissionEstimate
	if err := c.apiCall(ctx, "GET", "/api/emissions/estimate?"+params.Encode(), nil, &est); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s over %.1f km: %.2f L fuel, %.2f kg CO2",
		est.Method, est.DistanceKm, est.FuelLiters, est.CO2Kg)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Boards:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Squares: %d (%d storages, %d ports), Players: up to %d, Year: %s\n\n",
			config.ConfigID, config.Name, config.Description,
			config.Squares, config.Storages, config.Ports, config.MaxPlayers, config.DefaultYear)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `CO2 Logistics Game - Complete Instructions

GAME OBJECTIVE:
Plan deliveries across Japan that emit less CO2 than the quest baseline.
Points = floor(CO2 saved in kg x 10). The highest score when the game ends wins.

TURN FLOW:
1. roll_dice: the current player moves 1-6 squares (never past the last square)
   and receives a quest from their square to another board square.
2. Build a route with toggle_stop. The route starts at the quest origin.
3. complete_quest once the last stop is the destination.
4. The turn passes to the next player.

The game ends when a player standing on the last square completes a quest.

TRANSPORT METHODS:
• A leg into a storage travels by truck over roads (7.5 km per litre)
• A leg into a port travels by ship (0.015 L per km)
• Air (0.2 L per km) only appears in the quest baseline
• Every litre emits 2.31 kg CO2

ROUTE RULES:
• Toggling a stop that is already on the route removes it
• Port to port legs need a historical shipping lane for the selected year
  (port_destinations, set_year)
• A truck leg with no road-only route (ferries count as blocked) removes that
  stop and every stop after it

BASELINE:
Each quest compares truck, ship (port to port with a lane only) and air for the
direct trip and keeps the lowest CO2 as the target to beat.

STRATEGY:
• Ships emit far less per km than trucks; reach a port by truck, sail, then truck
  to the destination
• Check lanes before chaining ports
• Use estimate_emissions to compare options

Good luck, and keep it green!`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nBoard: %s\nCreated: %s\nLast Accessed: %s\n",
		session.ID, session.ConfigID,
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339))
	if len(session.Board) > 0 {
		b.WriteString("\nBoard squares:\n")
		for i, sq := range session.Board {
			fmt.Fprintf(&b, "  %2d. %s (%s %d)\n", i, sq.Name, sq.Kind, sq.ID)
		}
	}
	if session.GameState != nil {
		b.WriteString("\n" + formatGameState(session.GameState))
	}
	return b.String()
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "Game state unavailable"
	}

	var b strings.Builder
	switch {
	case state.Phase == engine.PhaseGameOver:
		b.WriteString("🏁 GAME OVER")
		if state.Winner != nil {
			fmt.Fprintf(&b, " - %s wins with %d points", state.Winner.Name, state.Winner.Score)
		}
		b.WriteString("\n")
	case !state.Started:
		b.WriteString("Game not started\n")
	default:
		fmt.Fprintf(&b, "Phase: %s\n", state.Phase)
	}

	fmt.Fprintf(&b, "Board: %s (%d squares), Lane year: %s\n", state.ConfigName, state.BoardSize, state.Year)

	if len(state.Players) > 0 {
		b.WriteString("\nPlayers:\n")
		for i, p := range state.Players {
			marker := "  "
			if i == state.CurrentPlayer && state.Phase != engine.PhaseGameOver {
				marker = "▶ "
			}
			fmt.Fprintf(&b, "%s%s - square %d, %d points, %.2f kg CO2 saved, %d quests\n",
				marker, p.Name, p.Position, p.Score, p.TotalCO2Saved, p.CompletedQuests)
		}
	}

	if state.Quest != nil {
		b.WriteString("\n" + formatQuest(state.Quest))
		b.WriteString("\n" + formatRoute(&state.Route))
	}

	if state.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", state.Message)
	}
	return b.String()
}

func formatQuest(q *engine.DeliveryQuest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Quest: %s\n", q.Description)
	fmt.Fprintf(&b, "  From %s (%s %d) to %s (%s %d)\n", q.From.Name, q.From.Kind, q.From.ID, q.To.Name, q.To.Kind, q.To.ID)
	fmt.Fprintf(&b, "  Baseline: %s, %.1f km, %.2f kg CO2\n", q.OptimalMethod, q.OptimalDistanceKm, q.OptimalCO2Kg)
	for _, opt := range q.Options {
		if opt.Eligible {
			fmt.Fprintf(&b, "    %s: %.1f km, %.2f kg CO2\n", opt.Method, opt.DistanceKm, opt.CO2Kg)
		} else {
			fmt.Fprintf(&b, "    %s: not available (%s)\n", opt.Method, opt.Reason)
		}
	}
	return b.String()
}

func formatRoute(route *engine.RouteView) string {
	if len(route.Stops) == 0 {
		return "Route: no stops yet\n"
	}

	var b strings.Builder
	b.WriteString("Route:\n")
	for i, seg := range route.Segments {
		flag := ""
		if seg.Degraded {
			flag = " (distance unavailable)"
		}
		fmt.Fprintf(&b, "  %d. %s → %s by %s: %.1f km, %.2f kg CO2%s\n",
			i+1, seg.From.Name, seg.To.Name, seg.Method, seg.DistanceKm, seg.CO2Kg, flag)
	}
	fmt.Fprintf(&b, "  Total: %.1f km, %.2f L fuel, %.2f kg CO2\n",
		route.Result.DistanceKm, route.Result.FuelLiters, route.Result.CO2Kg)
	if route.Pending {
		b.WriteString("  (recalculating)\n")
	}
	return b.String()
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "✓ %s\n", result.Message)
	} else {
		fmt.Fprintf(&b, "✗ %s\n", result.Message)
	}

	if result.Roll != nil {
		fmt.Fprintf(&b, "\n🎲 %s rolled %d: square %d → %d (%s)\n",
			result.Roll.Player.Name, result.Roll.Dice, result.Roll.FromPosition, result.Roll.ToPosition, result.Roll.Square.Name)
	}
	if result.Quest != nil {
		r := result.Quest.Record
		fmt.Fprintf(&b, "\nQuest #%d: baseline %.2f kg, actual %.2f kg, saved %.2f kg → %d points\n",
			r.QuestNumber, r.OptimalCO2Kg, r.ActualCO2Kg, r.CO2SavedKg, r.Points)
	}
	for _, ev := range result.Events {
		if ev.Type == service.EventRouteTruncated {
			fmt.Fprintf(&b, "⚠ %s\n", ev.Message)
		}
	}

	if result.GameState != nil {
		b.WriteString("\n" + formatGameState(result.GameState))
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Quest History (Page %d/%d) - Total: %d\n\n", history.Page, history.TotalPages, history.TotalQuests)
	if len(history.Quests) == 0 {
		b.WriteString("(no completed quests)\n")
	}
	for _, q := range history.Quests {
		fmt.Fprintf(&b, "#%d %s: %s → %s, %d stops, saved %.2f kg (%d points)\n",
			q.QuestNumber, q.PlayerName, q.From.Name, q.To.Name, q.Stops, q.CO2SavedKg, q.Points)
	}
	return b.String()
}

package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wricardo/co2-logistics-game/game/engine"
	"github.com/wricardo/co2-logistics-game/game/service"
)

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("Expected result, got nil")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func sampleState() *engine.GameState {
	tokyo := engine.Location{ID: 1, Name: "東京倉庫", Kind: engine.Storage}
	yokohama := engine.Location{ID: 3, Name: "横浜", Kind: engine.Port}
	return &engine.GameState{
		Started:       true,
		Phase:         engine.PhaseDelivery,
		ConfigName:    "classic",
		BoardSize:     10,
		Year:          "2017",
		CurrentPlayer: 0,
		Players: []engine.Player{
			{ID: 0, Name: "Aiko", Position: 4, Score: 120, TotalCO2Saved: 12.5, CompletedQuests: 2},
			{ID: 1, Name: "Ben", Position: 2},
		},
		Quest: &engine.DeliveryQuest{
			From:              tokyo,
			To:                yokohama,
			OptimalMethod:     engine.Truck,
			OptimalDistanceKm: 30,
			OptimalCO2Kg:      9.24,
			Description:       "Deliver electronics from 東京倉庫 to 横浜",
			Options: []engine.MethodEstimate{
				{Method: engine.Truck, Eligible: true, DistanceKm: 30, CO2Kg: 9.24},
				{Method: engine.Ship, Reason: "origin is not a port"},
			},
		},
		Route: engine.RouteView{
			Start: &tokyo,
			Stops: []engine.Location{yokohama},
			Segments: []engine.RouteSegment{
				{From: tokyo, To: yokohama, Method: engine.Ship, DistanceKm: 25, CO2Kg: 0.87},
			},
			Result: engine.DeliveryResult{DistanceKm: 25, FuelLiters: 0.375, CO2Kg: 0.87},
		},
		Message: "Aiko rolled 4 and landed on 東京倉庫.",
	}
}

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL + "/")

	if client == nil {
		t.Fatal("Expected client to be created")
	}
	if client.baseURL != baseURL {
		t.Errorf("Expected baseURL %s, got %s", baseURL, client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.mcpServer == nil || client.GetMCPServer() != client.mcpServer {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"echo":` + string(body) + `}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var result struct {
		Echo map[string]int `json:"echo"`
	}
	err := client.apiCall(context.Background(), "POST", "/api/test", map[string]int{"year": 2017}, &result)
	if err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if result.Echo["year"] != 2017 {
		t.Errorf("Expected echoed year 2017, got %v", result.Echo)
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	err := client.apiCall(context.Background(), "GET", "/api", nil, nil)
	if err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall(context.Background(), "GET", "/api", nil, nil)
	if err == nil {
		t.Fatal("Expected error for HTTP 500 response")
	}
	if !strings.Contains(err.Error(), "API error") {
		t.Errorf("Expected 'API error' in error message, got: %v", err)
	}
}

func TestClient_apiCall_ErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall(context.Background(), "GET", "/api/sessions/nope", nil, nil)
	if err == nil || err.Error() != "session not found" {
		t.Errorf("Expected server error message, got: %v", err)
	}
}

func TestClient_createSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions" {
			t.Errorf("Expected POST /api/sessions, got %s %s", r.Method, r.URL.Path)
		}

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["config_id"] != "coastal" {
			t.Errorf("Expected config_id coastal, got %v", body["config_id"])
		}
		if players, _ := body["players"].([]interface{}); len(players) != 2 {
			t.Errorf("Expected 2 players, got %v", body["players"])
		}

		resp := service.SessionInfo{
			ID:        "ab12",
			ConfigID:  "coastal",
			GameState: sampleState(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handleCreateSession(context.Background(), callRequest("create_session", map[string]interface{}{
		"config_id": "coastal",
		"players":   []interface{}{"Aiko", "Ben"},
	}))
	if err != nil {
		t.Fatalf("createSession failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"ab12", "coastal", "Aiko"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestClient_toggleStop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions/ab12/route/toggle" {
			t.Errorf("Expected POST toggle, got %s %s", r.Method, r.URL.Path)
		}

		var body struct {
			Kind string `json:"kind"`
			ID   int    `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Kind != "port" || body.ID != 3 {
			t.Errorf("Expected port 3, got %+v", body)
		}

		json.NewEncoder(w).Encode(service.ActionResult{
			Success:   true,
			Message:   "Added 横浜 to the route.",
			GameState: sampleState(),
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	// location_id arrives as a string from some clients
	result, err := client.handleToggleStop(context.Background(), callRequest("toggle_stop", map[string]interface{}{
		"session_id":  "ab12",
		"kind":        "port",
		"location_id": "3",
	}))
	if err != nil {
		t.Fatalf("toggleStop failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "✓ Added 横浜") {
		t.Errorf("Expected success line, got: %s", text)
	}
	if !strings.Contains(text, "東京倉庫 → 横浜 by ship") {
		t.Errorf("Expected route segment, got: %s", text)
	}
}

func TestClient_toggleStop_BadLocationID(t *testing.T) {
	client := NewClient("http://localhost:0")

	result, err := client.handleToggleStop(context.Background(), callRequest("toggle_stop", map[string]interface{}{
		"session_id": "ab12",
		"kind":       "port",
	}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected tool error for missing location_id")
	}
}

func TestClient_removeStopPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "DELETE" || r.URL.Path != "/api/sessions/ab12/route/stops/storage/7" {
			t.Errorf("Expected DELETE stop path, got %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(service.ActionResult{Success: true, Message: "Removed."})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.handleRemoveStop(context.Background(), callRequest("remove_stop", map[string]interface{}{
		"session_id":  "ab12",
		"kind":        "storage",
		"location_id": float64(7),
	}))
	if err != nil {
		t.Fatalf("removeStop failed: %v", err)
	}
}

func TestClient_actionRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(service.ActionResult{
			Success: false,
			Message: "Not at destination: the route must end at 横浜.",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handleCompleteQuest(context.Background(), callRequest("complete_quest", map[string]interface{}{
		"session_id": "ab12",
	}))
	if err != nil {
		t.Fatalf("completeQuest failed: %v", err)
	}
	if text := resultText(t, result); !strings.HasPrefix(text, "✗ Not at destination") {
		t.Errorf("Expected rejection line, got: %s", text)
	}
}

func TestClient_sessionNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handleRollDice(context.Background(), callRequest("roll_dice", map[string]interface{}{
		"session_id": "zzzz",
	}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected tool error result")
	}
}

func TestClient_estimateEmissions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/emissions/estimate" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("method") != "truck" || r.URL.Query().Get("distance_km") != "75" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(service.EmissionEstimate{Method: engine.Truck, DistanceKm: 75, FuelLiters: 10, CO2Kg: 23.1})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handleEstimateEmissions(context.Background(), callRequest("estimate_emissions", map[string]interface{}{
		"method":      "truck",
		"distance_km": float64(75),
	}))
	if err != nil {
		t.Fatalf("estimateEmissions failed: %v", err)
	}
	if text := resultText(t, result); !strings.Contains(text, "10.00 L fuel, 23.10 kg CO2") {
		t.Errorf("Unexpected estimate text: %s", text)
	}
}

func TestClient_portDestinations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("from") != "横浜" {
			t.Errorf("Expected from=横浜, got %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"from":         "横浜",
			"year":         "2017",
			"destinations": []string{"神戸", "苫小牧"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handlePortDestinations(context.Background(), callRequest("port_destinations", map[string]interface{}{
		"from": "横浜",
	}))
	if err != nil {
		t.Fatalf("portDestinations failed: %v", err)
	}
	if text := resultText(t, result); !strings.Contains(text, "神戸, 苫小牧") {
		t.Errorf("Unexpected destinations text: %s", text)
	}
}

func TestFormatGameState(t *testing.T) {
	text := formatGameState(sampleState())

	expected := []string{
		"Phase: delivery",
		"Board: classic (10 squares), Lane year: 2017",
		"▶ Aiko - square 4, 120 points",
		"Quest: Deliver electronics",
		"truck: 30.0 km, 9.24 kg CO2",
		"ship: not available (origin is not a port)",
		"Total: 25.0 km",
	}
	for _, want := range expected {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in state, got:\n%s", want, text)
		}
	}
}

func TestFormatGameState_NotStarted(t *testing.T) {
	text := formatGameState(&engine.GameState{ConfigName: "classic", BoardSize: 10, Year: "2017"})
	if !strings.Contains(text, "Game not started") {
		t.Errorf("Expected not started, got: %s", text)
	}
	if strings.Contains(text, "Quest:") {
		t.Error("Did not expect a quest section")
	}
}

func TestFormatGameState_GameOver(t *testing.T) {
	state := sampleState()
	state.Phase = engine.PhaseGameOver
	state.Winner = &state.Players[0]

	text := formatGameState(state)
	if !strings.Contains(text, "GAME OVER - Aiko wins with 120 points") {
		t.Errorf("Expected winner line, got: %s", text)
	}
	if strings.Contains(text, "▶") {
		t.Error("No current player marker after game over")
	}
}

func TestFormatActionResult(t *testing.T) {
	result := &service.ActionResult{
		Success: true,
		Message: "Delivered!",
		Quest: &engine.QuestOutcome{
			Record: engine.QuestRecord{QuestNumber: 3, OptimalCO2Kg: 9.24, ActualCO2Kg: 0.87, CO2SavedKg: 8.37, Points: 83},
		},
		Events: []service.GameEvent{
			{Type: service.EventRouteTruncated, Message: "No road from 神戸 to 高松倉庫."},
		},
	}

	text := formatActionResult(result)
	if !strings.Contains(text, "Quest #3") || !strings.Contains(text, "83 points") {
		t.Errorf("Expected quest summary, got: %s", text)
	}
	if !strings.Contains(text, "⚠ No road from 神戸") {
		t.Errorf("Expected truncation warning, got: %s", text)
	}
}

func TestFormatHistory(t *testing.T) {
	history := &service.HistoryResponse{
		TotalQuests: 1,
		Page:        1,
		TotalPages:  1,
		Quests: []engine.QuestRecord{
			{QuestNumber: 1, PlayerName: "Aiko", From: engine.Location{Name: "東京倉庫"}, To: engine.Location{Name: "横浜"}, Stops: 1, CO2SavedKg: 8.37, Points: 83},
		},
	}

	text := formatHistory(history)
	if !strings.Contains(text, "#1 Aiko: 東京倉庫 → 横浜, 1 stops, saved 8.37 kg (83 points)") {
		t.Errorf("Unexpected history text: %s", text)
	}

	empty := formatHistory(&service.HistoryResponse{Page: 1})
	if !strings.Contains(empty, "(no completed quests)") {
		t.Errorf("Expected empty marker, got: %s", empty)
	}
}

func TestClient_handleGameInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleGameInstructions(context.Background(), callRequest("game_instructions", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handleGameInstructions failed: %v", err)
	}

	text := resultText(t, result)
	expectedContent := []string{
		"CO2 Logistics Game - Complete Instructions",
		"GAME OBJECTIVE:",
		"TURN FLOW:",
		"TRANSPORT METHODS:",
		"ROUTE RULES:",
		"BASELINE:",
		"2.31 kg CO2",
	}
	for _, content := range expectedContent {
		if !strings.Contains(text, content) {
			t.Errorf("Expected '%s' in instructions", content)
		}
	}
}

func TestArguments_NilSafe(t *testing.T) {
	args := arguments(mcp.CallToolRequest{})
	if args == nil {
		t.Fatal("Expected empty map")
	}
	if stringArg(args, "session_id") != "" {
		t.Error("Expected empty session id")
	}
	if _, ok := intArg(map[string]interface{}{"n": "x"}, "n"); ok {
		t.Error("Expected non-numeric string to be rejected")
	}
}

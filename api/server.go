package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/wricardo/co2-logistics-game/game/engine"
	"github.com/wricardo/co2-logistics-game/game/service"
	"github.com/wricardo/co2-logistics-game/roads"
	"github.com/wricardo/co2-logistics-game/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  zerolog.Logger
}

// NewServer creates a new API server. hub may be nil when no live view is served.
func NewServer(gameService service.GameService, hub *websocket.Hub, logger zerolog.Logger) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(requestID)

	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Turn flow
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/start", s.handleStartGame).Methods("POST")
	api.HandleFunc("/sessions/{id}/roll", s.handleRollDice).Methods("POST")
	api.HandleFunc("/sessions/{id}/complete", s.handleCompleteQuest).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/year", s.handleSetYear).Methods("PUT")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Route building
	api.HandleFunc("/sessions/{id}/route/toggle", s.handleToggleStop).Methods("POST")
	api.HandleFunc("/sessions/{id}/route/stops/{kind}/{locationID:[0-9]+}", s.handleRemoveStop).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/route/clear", s.handleClearRoute).Methods("POST")
	api.HandleFunc("/sessions/{id}/route/recompute", s.handleRecomputeRoute).Methods("POST")

	// Reference data
	api.HandleFunc("/locations", s.handleListLocations).Methods("GET")
	api.HandleFunc("/port-routes/years", s.handlePortYears).Methods("GET")
	api.HandleFunc("/port-routes/destinations", s.handlePortDestinations).Methods("GET")
	api.HandleFunc("/emissions/estimate", s.handleEstimateEmissions).Methods("GET")

	// Boards
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestID tags each request so road lookups can be traced back to it
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), roads.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors to HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrConfigNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidArgument):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeBody decodes an optional JSON body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// broadcast pushes the new state and any notable events to live views
func (s *Server) broadcast(sessionID string, result *service.ActionResult) {
	if s.hub == nil || result == nil || result.GameState == nil {
		return
	}
	s.hub.BroadcastToSession(sessionID, result.GameState)
	if result.Quest != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventQuestCompleted, result.Quest)
	}
}

// respondAction writes an action result, broadcasting it on success
func (s *Server) respondAction(w http.ResponseWriter, r *http.Request, action string, result *service.ActionResult, err error) {
	sessionID := mux.Vars(r)["id"]
	if err != nil {
		s.logger.Warn().Err(err).Str("session", sessionID).Str("action", action).Msg("Action failed")
		respondServiceError(w, err)
		return
	}

	s.logger.Debug().
		Str("session", sessionID).
		Str("action", action).
		Bool("success", result.Success).
		Msg(result.Message)

	s.broadcast(sessionID, result)
	respondJSON(w, http.StatusOK, result)
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID string   `json:"config_id,omitempty"`
		Players  []string `json:"players,omitempty"`
	}

	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := s.service.CreateSession(r.Context(), strings.TrimSuffix(req.ConfigID, ".json"), req.Players)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.logger.Info().Str("session", session.ID).Str("config", session.ConfigID).Msg("Session created")
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default)
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy != "created" {
		sortBy = "accessed"
	}
	if order != "asc" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < total {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Turn Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Players []string `json:"players"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.StartGame(r.Context(), mux.Vars(r)["id"], req.Players)
	s.respondAction(w, r, "start", result, err)
}

func (s *Server) handleRollDice(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.RollDice(r.Context(), mux.Vars(r)["id"])
	s.respondAction(w, r, "roll", result, err)
}

func (s *Server) handleCompleteQuest(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.CompleteQuest(r.Context(), mux.Vars(r)["id"])
	s.respondAction(w, r, "complete", result, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.ResetGame(r.Context(), mux.Vars(r)["id"])
	s.respondAction(w, r, "reset", result, err)
}

func (s *Server) handleSetYear(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Year json.Number `json:"year"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Year == "" {
		respondError(w, http.StatusBadRequest, "Invalid request body: year is required")
		return
	}

	result, err := s.service.SetYear(r.Context(), mux.Vars(r)["id"], req.Year.String())
	s.respondAction(w, r, "year", result, err)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetQuestHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Route Handlers

func (s *Server) handleToggleStop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind engine.LocationKind `json:"kind"`
		ID   int                 `json:"id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Kind != engine.Port && req.Kind != engine.Storage {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("kind must be %q or %q", engine.Port, engine.Storage))
		return
	}

	result, err := s.service.ToggleStop(r.Context(), mux.Vars(r)["id"], req.Kind, req.ID)
	s.respondAction(w, r, "toggle", result, err)
}

func (s *Server) handleRemoveStop(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	kind := engine.LocationKind(vars["kind"])
	if kind != engine.Port && kind != engine.Storage {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("kind must be %q or %q", engine.Port, engine.Storage))
		return
	}
	locationID, err := strconv.Atoi(vars["locationID"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid location id")
		return
	}

	result, err := s.service.RemoveStop(r.Context(), vars["id"], kind, locationID)
	s.respondAction(w, r, "remove", result, err)
}

func (s *Server) handleClearRoute(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.ClearRoute(r.Context(), mux.Vars(r)["id"])
	s.respondAction(w, r, "clear", result, err)
}

func (s *Server) handleRecomputeRoute(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.RecomputeRoute(r.Context(), mux.Vars(r)["id"])
	s.respondAction(w, r, "recompute", result, err)
}

// Reference Data Handlers

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := s.service.ListLocations(r.Context(), engine.LocationKind(r.URL.Query().Get("kind")))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, locations)
}

func (s *Server) handlePortYears(w http.ResponseWriter, r *http.Request) {
	years, err := s.service.AvailableYears(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if years == nil {
		years = []string{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"years": years})
}

func (s *Server) handlePortDestinations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from := query.Get("from")
	year := query.Get("year")
	if year == "" {
		year = engine.DefaultYear
	}

	destinations, err := s.service.ValidDestinations(r.Context(), from, year)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if destinations == nil {
		destinations = []string{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"from":         from,
		"year":         year,
		"destinations": destinations,
	})
}

func (s *Server) handleEstimateEmissions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	distance, err := strconv.ParseFloat(query.Get("distance_km"), 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "distance_km must be a number")
		return
	}

	estimate, err := s.service.EstimateEmissions(r.Context(), engine.TransportMethod(query.Get("method")), distance)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, estimate)
}

// Board Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	name = strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(name, ".json"), ".yaml"), ".yml")

	config, err := s.service.GetConfig(r.Context(), name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, config)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"config_id"`
		engine.BoardConfig
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id := req.ID
	if id == "" {
		id = req.Name
	}
	if id == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	if err := s.service.SaveConfig(r.Context(), id, &req.BoardConfig); err != nil {
		if errors.Is(err, service.ErrInvalidArgument) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save config: %v", err))
		return
	}

	s.logger.Info().Str("config", id).Int("squares", len(req.Squares)).Msg("Board saved")
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": id,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	if s.hub == nil {
		http.Error(w, "live updates disabled", http.StatusServiceUnavailable)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

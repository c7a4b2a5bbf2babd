package service

import (
	"time"

	"github.com/wricardo/co2-logistics-game/game/engine"
)

// SessionInfo contains session metadata
type SessionInfo struct {
	ID             string              `json:"id"`
	ConfigID       string              `json:"config_id"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	GameState      *engine.GameState   `json:"game_state,omitempty"`
	Board          []engine.Location   `json:"board,omitempty"`
	BoardConfig    *engine.BoardConfig `json:"board_config,omitempty"`
}

// ActionResult is the outcome of a game action. Success is false when a game
// rule rejected the action; Message then tells the player why.
type ActionResult struct {
	Success   bool                    `json:"success"`
	Message   string                  `json:"message"`
	GameState *engine.GameState       `json:"game_state"`
	Events    []GameEvent             `json:"events,omitempty"`
	Roll      *engine.RollOutcome     `json:"roll,omitempty"`
	Toggle    *engine.ToggleResult    `json:"toggle,omitempty"`
	Recompute *engine.RecomputeResult `json:"recompute,omitempty"`
	Quest     *engine.QuestOutcome    `json:"quest,omitempty"`
}

// Event types
const (
	EventStarted        = "game_started"
	EventReset          = "game_reset"
	EventRolled         = "dice_rolled"
	EventQuestIssued    = "quest_issued"
	EventStopAdded      = "stop_added"
	EventStopRemoved    = "stop_removed"
	EventStopRejected   = "stop_rejected"
	EventRouteTruncated = "route_truncated"
	EventRouteCleared   = "route_cleared"
	EventQuestCompleted = "quest_completed"
	EventGameOver       = "game_over"
	EventYearChanged    = "year_changed"
)

// GameEvent represents a game event
type GameEvent struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryOptions for paginated quest history
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated quest history
type HistoryResponse struct {
	SessionID   string               `json:"session_id"`
	TotalQuests int                  `json:"total_quests"`
	Page        int                  `json:"page"`
	PageSize    int                  `json:"page_size"`
	TotalPages  int                  `json:"total_pages"`
	Quests      []engine.QuestRecord `json:"quests"`
	HasNext     bool                 `json:"has_next"`
	HasPrevious bool                 `json:"has_previous"`
}

// EmissionEstimate prices a distance with one transport method
type EmissionEstimate struct {
	Method     engine.TransportMethod `json:"method"`
	DistanceKm float64                `json:"distance_km"`
	FuelLiters float64                `json:"fuel_liters"`
	CO2Kg      float64                `json:"co2_kg"`
}

// ConfigInfo contains board configuration metadata
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Squares     int    `json:"squares"`
	Ports       int    `json:"ports"`
	Storages    int    `json:"storages"`
	MaxPlayers  int    `json:"max_players"`
	DefaultYear string `json:"default_year"`
}

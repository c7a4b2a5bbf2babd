package engine

import (
	"fmt"
	"time"
)

// LocationKind distinguishes the two location datasets
type LocationKind string

const (
	Port    LocationKind = "port"
	Storage LocationKind = "storage"
)

// TransportMethod is how a single leg of a delivery travels
type TransportMethod string

const (
	Truck TransportMethod = "truck"
	Ship  TransportMethod = "ship"
	Air   TransportMethod = "air"
)

// GamePhase is the turn phase of a started game
type GamePhase string

const (
	PhaseDice     GamePhase = "dice"
	PhaseDelivery GamePhase = "delivery"
	PhaseGameOver GamePhase = "gameOver"
)

// Urgency flavours a quest description
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

const (
	// Game limits
	MinPlayers     = 1
	MaxPlayers     = 4
	MinBoardSize   = 2
	DiceFaces      = 6
	PointsPerKgCO2 = 10
	DefaultYear    = "2017"
)

// Coordinates are WGS84 degrees
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location is an immutable port or storage point loaded from a dataset
type Location struct {
	ID     int          `json:"id"`
	Name   string       `json:"name"`
	Kind   LocationKind `json:"kind"`
	Coords Coordinates  `json:"coords"`
}

// LocationKey identifies a location across both datasets
type LocationKey struct {
	Kind LocationKind `json:"kind"`
	ID   int          `json:"id"`
}

func (k LocationKey) String() string {
	return fmt.Sprintf("%s:%d", k.Kind, k.ID)
}

// Key returns the identity of the location
func (l Location) Key() LocationKey {
	return LocationKey{Kind: l.Kind, ID: l.ID}
}

// SameAs reports whether both values refer to the same dataset entry
func (l Location) SameAs(other Location) bool {
	return l.Key() == other.Key()
}

// IsPort reports whether the location is a port
func (l Location) IsPort() bool {
	return l.Kind == Port
}

// RouteSegment is a priced leg between two consecutive points of a route
type RouteSegment struct {
	From       Location        `json:"from"`
	To         Location        `json:"to"`
	Method     TransportMethod `json:"method"`
	DistanceKm float64         `json:"distance_km"`
	FuelLiters float64         `json:"fuel_liters"`
	CO2Kg      float64         `json:"co2_kg"`
	Degraded   bool            `json:"degraded,omitempty"` // road lookup failed, distance counted as zero
}

// DeliveryResult aggregates all segments of a route
type DeliveryResult struct {
	DistanceKm float64 `json:"distance_km"`
	FuelLiters float64 `json:"fuel_liters"`
	CO2Kg      float64 `json:"co2_kg"`
}

// Add accumulates a segment into the result
func (r DeliveryResult) Add(seg RouteSegment) DeliveryResult {
	r.DistanceKm += seg.DistanceKm
	r.FuelLiters += seg.FuelLiters
	r.CO2Kg += seg.CO2Kg
	return r
}

// MethodEstimate is one candidate method considered for a quest baseline
type MethodEstimate struct {
	Method     TransportMethod `json:"method"`
	Eligible   bool            `json:"eligible"`
	Reason     string          `json:"reason,omitempty"`
	DistanceKm float64         `json:"distance_km"`
	FuelLiters float64         `json:"fuel_liters"`
	CO2Kg      float64         `json:"co2_kg"`
	Degraded   bool            `json:"degraded,omitempty"`
}

// DeliveryQuest is the single active origin to destination challenge
type DeliveryQuest struct {
	ID                string           `json:"id"`
	From              Location         `json:"from"`
	To                Location         `json:"to"`
	OptimalMethod     TransportMethod  `json:"optimal_method"`
	OptimalDistanceKm float64          `json:"optimal_distance_km"`
	OptimalCO2Kg      float64          `json:"optimal_co2_kg"`
	Options           []MethodEstimate `json:"options"`
	CargoType         string           `json:"cargo_type"`
	CargoWeightKg     int              `json:"cargo_weight_kg"`
	Urgency           Urgency          `json:"urgency"`
	Description       string           `json:"description"`
}

// Player is a member of the roster
type Player struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	Position        int     `json:"position"`
	Score           int     `json:"score"`
	TotalCO2Saved   float64 `json:"total_co2_saved"`
	CompletedQuests int     `json:"completed_quests"`
}

// QuestRecord is a completed quest in the session history
type QuestRecord struct {
	QuestNumber   int             `json:"quest_number"`
	PlayerID      int             `json:"player_id"`
	PlayerName    string          `json:"player_name"`
	From          Location        `json:"from"`
	To            Location        `json:"to"`
	Stops         int             `json:"stops"`
	OptimalMethod TransportMethod `json:"optimal_method"`
	OptimalCO2Kg  float64         `json:"optimal_co2_kg"`
	ActualCO2Kg   float64         `json:"actual_co2_kg"`
	CO2SavedKg    float64         `json:"co2_saved_kg"`
	Points        int             `json:"points"`
	CompletedAt   time.Time       `json:"completed_at"`
}

// GameState is a snapshot of a session's game
type GameState struct {
	Started       bool           `json:"started"`
	Phase         GamePhase      `json:"phase"`
	Players       []Player       `json:"players"`
	CurrentPlayer int            `json:"current_player"`
	DiceValue     int            `json:"dice_value"`
	Quest         *DeliveryQuest `json:"quest,omitempty"`
	Route         RouteView      `json:"route"`
	Year          string         `json:"year"`
	Message       string         `json:"message"`
	ConfigName    string         `json:"config_name"`
	BoardSize     int            `json:"board_size"`
	Winner        *Player        `json:"winner,omitempty"`
	TotalQuests   int            `json:"total_quests"`
	QuestHistory  []QuestRecord  `json:"quest_history"`
}

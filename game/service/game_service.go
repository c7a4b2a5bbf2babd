package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/wricardo/co2-logistics-game/game/engine"
)

// GameService defines the main game service interface
type GameService interface {
	// Session management
	CreateSession(ctx context.Context, configID string, players []string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Turn flow
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	StartGame(ctx context.Context, sessionID string, players []string) (*ActionResult, error)
	RollDice(ctx context.Context, sessionID string) (*ActionResult, error)
	CompleteQuest(ctx context.Context, sessionID string) (*ActionResult, error)
	ResetGame(ctx context.Context, sessionID string) (*ActionResult, error)
	SetYear(ctx context.Context, sessionID, year string) (*ActionResult, error)
	GetQuestHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Route building
	ToggleStop(ctx context.Context, sessionID string, kind engine.LocationKind, locationID int) (*ActionResult, error)
	RemoveStop(ctx context.Context, sessionID string, kind engine.LocationKind, locationID int) (*ActionResult, error)
	ClearRoute(ctx context.Context, sessionID string) (*ActionResult, error)
	RecomputeRoute(ctx context.Context, sessionID string) (*ActionResult, error)

	// Reference data
	ListLocations(ctx context.Context, kind engine.LocationKind) ([]engine.Location, error)
	AvailableYears(ctx context.Context) ([]string, error)
	ValidDestinations(ctx context.Context, fromPort, year string) ([]string, error)
	EstimateEmissions(ctx context.Context, method engine.TransportMethod, distanceKm float64) (*EmissionEstimate, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	GetConfig(ctx context.Context, name string) (*engine.BoardConfig, error)
	SaveConfig(ctx context.Context, name string, config *engine.BoardConfig) error
}

// SessionManager handles session lifecycle
type SessionManager interface {
	Create(id string, configID string, config *engine.BoardConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles board loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.BoardConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.BoardConfig
	SaveConfig(name string, config *engine.BoardConfig) error
}

// LocationCatalog resolves dataset locations
type LocationCatalog interface {
	Lookup(kind engine.LocationKind, id int) (engine.Location, error)
	List(kind engine.LocationKind) []engine.Location
}

// PortLanes answers questions about historical shipping lanes
type PortLanes interface {
	AvailableYears() []string
	ValidDestinations(fromPort, year string) []string
}

// Session represents a game session. Only the access time changes after
// creation; use Touch and AccessedAt for it.
type Session struct {
	ID        string
	ConfigID  string
	Engine    *engine.GameEngine
	Config    *engine.BoardConfig
	CreatedAt time.Time

	lastAccessed atomic.Int64 // unix nanos
}

// Touch records an access at t
func (s *Session) Touch(t time.Time) {
	s.lastAccessed.Store(t.UnixNano())
}

// AccessedAt returns the time of the last access
func (s *Session) AccessedAt() time.Time {
	return time.Unix(0, s.lastAccessed.Load())
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/co2-logistics-game/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	catalog  LocationCatalog
	lanes    PortLanes
	logger   zerolog.Logger
	now      func() time.Time
}

// Dependencies groups the collaborators of the game service
type Dependencies struct {
	Sessions SessionManager
	Configs  ConfigManager
	Catalog  LocationCatalog
	Lanes    PortLanes
	Logger   zerolog.Logger
}

// NewGameService creates a new game service instance
func NewGameService(deps Dependencies) GameService {
	return &gameServiceImpl{
		sessions: deps.Sessions,
		configs:  deps.Configs,
		catalog:  deps.Catalog,
		lanes:    deps.Lanes,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigID:       sess.ConfigID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.AccessedAt(),
		GameState:      sess.Engine.GetState(),
		Board:          sess.Engine.GetBoard(),
		BoardConfig:    sess.Config,
	}
}

func (s *gameServiceImpl) event(kind, msg string) GameEvent {
	return GameEvent{Type: kind, Message: msg, Timestamp: s.now()}
}

// result converts an engine call into an ActionResult. Rule violations become
// unsuccessful results; anything else is returned as an error.
func (s *gameServiceImpl) result(sess *Session, err error) (*ActionResult, error) {
	if err != nil && !engine.IsRuleError(err) {
		return nil, err
	}
	state := sess.Engine.GetState()
	res := &ActionResult{
		Success:   err == nil,
		Message:   state.Message,
		GameState: state,
	}
	if err != nil {
		res.Message = err.Error()
	}
	return res, nil
}

// CreateSession creates a session for a board and optionally starts the game
func (s *gameServiceImpl) CreateSession(ctx context.Context, configID string, players []string) (*SessionInfo, error) {
	var (
		config *engine.BoardConfig
		err    error
	)
	if configID != "" {
		config, err = s.configs.LoadConfig(configID)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				return nil, s.configNotFound(configID)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configID, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = s.configIDFor(config)
	}

	sess, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if len(players) > 0 {
		if err := sess.Engine.StartGame(players); err != nil {
			s.sessions.Delete(sess.ID)
			if engine.IsRuleError(err) {
				return nil, fmt.Errorf("%w: %s", ErrInvalidArgument, err.Error())
			}
			return nil, err
		}
	}

	s.logger.Info().
		Str("session", sess.ID).
		Str("config", configID).
		Int("players", len(players)).
		Msg("Session created")

	return s.sessionInfo(sess), nil
}

func (s *gameServiceImpl) configNotFound(configID string) error {
	available, err := s.configs.ListConfigs()
	if err == nil && len(available) > 0 {
		ids := make([]string, 0, len(available))
		for _, cfg := range available {
			ids = append(ids, cfg.ConfigID)
		}
		return fmt.Errorf("%w: '%s'. Available configs: %s", ErrConfigNotFound, configID, strings.Join(ids, ", "))
	}
	return fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configID)
}

// configIDFor finds the id of an already loaded board by its display name
func (s *gameServiceImpl) configIDFor(config *engine.BoardConfig) string {
	if available, err := s.configs.ListConfigs(); err == nil {
		for _, cfg := range available {
			if cfg.Name == config.Name {
				return cfg.ConfigID
			}
		}
	}
	return "default"
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		info := s.sessionInfo(sess)
		info.Board = nil
		info.BoardConfig = nil
		result = append(result, info)
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

// GetGameState returns the current state of a session
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetState(), nil
}

// StartGame seats the players and starts (or restarts) the game
func (s *gameServiceImpl) StartGame(ctx context.Context, sessionID string, players []string) (*ActionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	res, err := s.result(sess, sess.Engine.StartGame(players))
	if err != nil || !res.Success {
		return res, err
	}
	res.Events = []GameEvent{s.event(EventStarted, res.Message)}
	return res, nil
}

// RollDice moves the current player and issues a quest
func (s *gameServiceImpl) RollDice(ctx context.Context, sessionID string) (*ActionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	roll, rollErr := sess.Engine.RollDice(ctx)
	res, err := s.result(sess, rollErr)
	if err != nil || !res.Success {
		return res, err
	}

	res.Roll = roll
	res.Events = []GameEvent{
		s.event(EventRolled, fmt.Sprintf("%s rolled %d and moved to %s", roll.Player.Name, roll.Dice, roll.Square.Name)),
		s.event(EventQuestIssued, roll.Quest.Description),
	}
	return res, nil
}

// CompleteQuest scores the current route against the quest baseline
func (s *gameServiceImpl) CompleteQuest(ctx context.Context, sessionID string) (*ActionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	outcome, questErr := sess.Engine.CompleteQuest(ctx)
	res, err := s.result(sess, questErr)
	if err != nil || !res.Success {
		return res, err
	}

	res.Quest = outcome
	res.Events = []GameEvent{
		s.event(EventQuestCompleted, fmt.Sprintf("%s saved %.2f kg CO2 for %d points",
			outcome.Player.Name, outcome.Record.CO2SavedKg, outcome.Record.Points)),
	}
	if outcome.GameOver && outcome.Winner != nil {
		res.Events = append(res.Events, s.event(EventGameOver,
			fmt.Sprintf("%s wins with %d points", outcome.Winner.Name, outcome.Winner.Score)))
	}

	s.logger.Info().
		Str("session", sess.ID).
		Str("player", outcome.Player.Name).
		Float64("co2_saved", outcome.Record.CO2SavedKg).
		Int("points", outcome.Record.Points).
		Msg("Quest completed")

	return res, nil
}

// ResetGame clears roster, quest, route and history
func (s *gameServiceImpl) ResetGame(ctx context.Context, sessionID string) (*ActionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.ResetGame()
	return &ActionResult{
		Success:   true,
		Message:   state.Message,
		GameState: state,
		Events:    []GameEvent{s.event(EventReset, "Game reset to initial state")},
	}, nil
}

// SetYear selects the shipping-lane year
func (s *gameServiceImpl) SetYear(ctx context.Context, sessionID, year string) (*ActionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	res, err := s.result(sess, sess.Engine.SetYear(year))
	if err != nil || !res.Success {
		return res, err
	}
	res.Events = []GameEvent{s.event(EventYearChanged, res.Message)}
	return res, nil
}

// lookup resolves a location or produces an unsuccessful result for it
func (s *gameServiceImpl) lookup(sess *Session, kind engine.LocationKind, id int) (engine.Location, *ActionResult) {
	loc, err := s.catalog.Lookup(kind, id)
	if err != nil {
		return engine.Location{}, &ActionResult{
			Success:   false,
			Message:   fmt.Sprintf("Unknown %s %d.", kind, id),
			GameState: sess.Engine.GetState(),
		}
	}
	return loc, nil
}

// ToggleStop adds the location to the route, or removes it when already a stop
func (s *gameServiceImpl) ToggleStop(ctx context.Context, sessionID string, kind engine.LocationKind, locationID int) (*ActionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	loc, unknown := s.lookup(sess, kind, locationID)
	if unknown != nil {
		return unknown, nil
	}

	toggle, toggleErr := sess.Engine.ToggleStop(ctx, loc)
	res, err := s.result(sess, toggleErr)
	if err != nil || !res.Success {
		return res, err
	}

	res.Toggle = toggle
	res.Message = toggle.Message
	switch toggle.Outcome {
	case engine.Added:
		res.Events = append(res.Events, s.event(EventStopAdded, toggle.Message))
	case engine.Removed:
		res.Events = append(res.Events, s.event(EventStopRemoved, toggle.Message))
	case engine.RejectedInvalidRoute, engine.RejectedBlockedRoad:
		res.Success = false
		res.Events = append(res.Events, s.event(EventStopRejected, toggle.Message))
	}
	if toggle.Truncation != nil {
		res.Events = append(res.Events, s.event(EventRouteTruncated, toggle.Truncation.Message))
	}
	return res, nil
}

// RemoveStop removes a location from the route
func (s *gameServiceImpl) RemoveStop(ctx context.Context, sessionID string, kind engine.LocationKind, locationID int) (*ActionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	loc, unknown := s.lookup(sess, kind, locationID)
	if unknown != nil {
		return unknown, nil
	}

	toggle, removeErr := sess.Engine.RemoveStop(ctx, loc)
	res, err := s.result(sess, removeErr)
	if err != nil || !res.Success {
		return res, err
	}

	res.Toggle = toggle
	res.Message = toggle.Message
	res.Events = []GameEvent{s.event(EventStopRemoved, toggle.Message)}
	if toggle.Truncation != nil {
		res.Events = append(res.Events, s.event(EventRouteTruncated, toggle.Truncation.Message))
	}
	return res, nil
}

// ClearRoute removes every stop
func (s *gameServiceImpl) ClearRoute(ctx context.Context, sessionID string) (*ActionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	_, clearErr := sess.Engine.ClearRoute()
	res, err := s.result(sess, clearErr)
	if err != nil || !res.Success {
		return res, err
	}
	res.Events = []GameEvent{s.event(EventRouteCleared, "Route cleared")}
	return res, nil
}

// RecomputeRoute reprices every leg of the current route
func (s *gameServiceImpl) RecomputeRoute(ctx context.Context, sessionID string) (*ActionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	rec, recErr := sess.Engine.RecomputeRoute(ctx)
	res, err := s.result(sess, recErr)
	if err != nil || !res.Success {
		return res, err
	}

	res.Recompute = rec
	if rec.Truncation != nil {
		res.Events = []GameEvent{s.event(EventRouteTruncated, rec.Truncation.Message)}
	}
	return res, nil
}

// GetQuestHistory returns paginated quest history
func (s *gameServiceImpl) GetQuestHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetQuestHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := min((opts.Page-1)*opts.Limit, total)
	end := min(start+opts.Limit, total)

	quests := make([]engine.QuestRecord, 0, end-start)
	if opts.Order == "desc" {
		// most recent first
		for i := total - 1 - start; i >= total-end; i-- {
			quests = append(quests, history[i])
		}
	} else {
		quests = append(quests, history[start:end]...)
	}

	return &HistoryResponse{
		SessionID:   sess.ID,
		TotalQuests: total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		Quests:      quests,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListLocations lists dataset locations; an empty kind lists both datasets
func (s *gameServiceImpl) ListLocations(ctx context.Context, kind engine.LocationKind) ([]engine.Location, error) {
	switch kind {
	case "", engine.Port, engine.Storage:
	default:
		return nil, fmt.Errorf("%w: unknown location kind %q", ErrInvalidArgument, kind)
	}
	return s.catalog.List(kind), nil
}

// AvailableYears lists the years with shipping-lane data
func (s *gameServiceImpl) AvailableYears(ctx context.Context) ([]string, error) {
	return s.lanes.AvailableYears(), nil
}

// ValidDestinations lists the ports reachable by ship from a port in a year
func (s *gameServiceImpl) ValidDestinations(ctx context.Context, fromPort, year string) ([]string, error) {
	if strings.TrimSpace(fromPort) == "" {
		return nil, fmt.Errorf("%w: from port is required", ErrInvalidArgument)
	}
	if year == "" {
		year = engine.DefaultYear
	}
	return s.lanes.ValidDestinations(fromPort, year), nil
}

// EstimateEmissions prices a distance with a single method
func (s *gameServiceImpl) EstimateEmissions(ctx context.Context, method engine.TransportMethod, distanceKm float64) (*EmissionEstimate, error) {
	if !engine.IsValidMethod(method) {
		return nil, fmt.Errorf("%w: unknown method %q", ErrInvalidArgument, method)
	}
	if distanceKm < 0 {
		return nil, fmt.Errorf("%w: distance must not be negative", ErrInvalidArgument)
	}
	fuel := engine.FuelLiters(method, distanceKm)
	return &EmissionEstimate{
		Method:     method,
		DistanceKm: distanceKm,
		FuelLiters: fuel,
		CO2Kg:      engine.CO2Kg(fuel),
	}, nil
}

// ListConfigs returns available boards
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// GetConfig loads a specific board
func (s *gameServiceImpl) GetConfig(ctx context.Context, name string) (*engine.BoardConfig, error) {
	config, err := s.configs.LoadConfig(name)
	if err != nil && errors.Is(err, ErrConfigNotFound) {
		return nil, s.configNotFound(name)
	}
	return config, err
}

// SaveConfig checks that every square exists before writing the board
func (s *gameServiceImpl) SaveConfig(ctx context.Context, name string, config *engine.BoardConfig) error {
	if config == nil {
		return fmt.Errorf("%w: board is required", ErrInvalidArgument)
	}
	if err := engine.ValidateBoardConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	for i, sq := range config.Squares {
		if _, err := s.catalog.Lookup(sq.Kind, sq.ID); err != nil {
			return fmt.Errorf("%w: square %d refers to unknown %s %d", ErrInvalidArgument, i+1, sq.Kind, sq.ID)
		}
	}
	return s.configs.SaveConfig(name, config)
}

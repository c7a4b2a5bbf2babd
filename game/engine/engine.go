package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrGameNotStarted     = errors.New("game not started")
	ErrWrongPhase         = errors.New("action not allowed in current phase")
	ErrNoActiveQuest      = errors.New("no active quest")
	ErrNotAtDestination   = errors.New("not at destination")
	ErrInvalidPlayerCount = errors.New("invalid player count")
	ErrRoutePending       = errors.New("route recompute pending")
	ErrInvalidYear        = errors.New("invalid year")
	ErrRollInProgress     = errors.New("roll in progress")
)

// RuleError is a game-rule precondition violation. Error returns the player-facing
// message; errors.Is matches the wrapped sentinel.
type RuleError struct {
	Err     error
	Message string
}

func (e *RuleError) Error() string { return e.Message }
func (e *RuleError) Unwrap() error { return e.Err }

// IsRuleError reports whether err is a precondition violation rather than a failure
func IsRuleError(err error) bool {
	var re *RuleError
	return errors.As(err, &re)
}

// Engine provides the main interface for game operations
type Engine interface {
	// Game state
	GetState() *GameState
	GetConfig() *BoardConfig
	GetBoard() []Location
	CurrentPlayer() (Player, bool)
	IsGameOver() bool
	GetQuestHistory() []QuestRecord

	// Turn flow
	StartGame(names []string) error
	RollDice(ctx context.Context) (*RollOutcome, error)
	CompleteQuest(ctx context.Context) (*QuestOutcome, error)
	ResetGame() *GameState
	SetYear(year string) error

	// Route building
	ToggleStop(ctx context.Context, loc Location) (*ToggleResult, error)
	RemoveStop(ctx context.Context, loc Location) (*ToggleResult, error)
	ClearRoute() (*RouteView, error)
	RecomputeRoute(ctx context.Context) (*RecomputeResult, error)
}

// RollOutcome describes a dice roll and the quest it produced
type RollOutcome struct {
	Player       Player         `json:"player"`
	Dice         int            `json:"dice"`
	FromPosition int            `json:"from_position"`
	ToPosition   int            `json:"to_position"`
	Square       Location       `json:"square"`
	Quest        *DeliveryQuest `json:"quest"`
}

// QuestOutcome describes a completed quest and the turn that follows
type QuestOutcome struct {
	Record     QuestRecord `json:"record"`
	Player     Player      `json:"player"`
	GameOver   bool        `json:"game_over"`
	Winner     *Player     `json:"winner,omitempty"`
	NextPlayer *Player     `json:"next_player,omitempty"`
}

// Option configures a GameEngine
type Option func(*GameEngine)

func WithRoadProvider(p RoadDistanceProvider) Option {
	return func(e *GameEngine) { e.roads = p }
}

func WithRouteValidator(v RouteValidator) Option {
	return func(e *GameEngine) { e.validator = v }
}

func WithRand(r *rand.Rand) Option {
	return func(e *GameEngine) { e.rng = r }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *GameEngine) { e.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *GameEngine) { e.now = now }
}

// GameEngine implements the Engine interface. It is the aggregate for one session:
// roster, turn, active quest, route stack and history.
type GameEngine struct {
	mu        sync.Mutex
	config    *BoardConfig
	board     []Location
	stack     *DeliveryStack
	roads     RoadDistanceProvider
	validator RouteValidator
	rng       *rand.Rand
	logger    zerolog.Logger
	now       func() time.Time
	state     GameState

	// epoch changes on start and reset so a roll that priced its quest
	// outside the lock can tell the game moved on
	epoch   uint64
	rolling bool
}

// NewEngine creates an engine for a validated board whose squares are already
// resolved to locations.
func NewEngine(config *BoardConfig, squares []Location, opts ...Option) (*GameEngine, error) {
	if err := ValidateBoardConfig(config); err != nil {
		return nil, err
	}
	if len(squares) < MinBoardSize {
		return nil, fmt.Errorf("board '%s' needs at least %d squares, got %d", config.Name, MinBoardSize, len(squares))
	}

	e := &GameEngine{
		config: config,
		board:  slices.Clone(squares),
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.roads == nil {
		e.roads = straightLineRoads{}
	}
	if e.validator == nil {
		e.validator = allowAllRoutes{}
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	e.stack = NewDeliveryStack(e.roads, e.validator, e.logger)
	e.state = e.initialState(config.DefaultYear)

	return e, nil
}

func (e *GameEngine) initialState(year string) GameState {
	return GameState{
		Phase:        PhaseDice,
		Players:      []Player{},
		Year:         year,
		Message:      "Add players and start the game.",
		ConfigName:   e.config.Name,
		BoardSize:    len(e.board),
		QuestHistory: []QuestRecord{},
	}
}

// reject records msg as the state message and returns it as a RuleError
func (e *GameEngine) reject(err error, msg string) error {
	e.state.Message = msg
	return &RuleError{Err: err, Message: msg}
}

func (e *GameEngine) requirePhaseLocked(phase GamePhase) error {
	if !e.state.Started {
		return e.reject(ErrGameNotStarted, "Start a game first.")
	}
	if e.state.Phase == PhaseGameOver {
		return e.reject(ErrWrongPhase, "The game is over. Reset or start a new game.")
	}
	if e.state.Phase != phase {
		switch phase {
		case PhaseDice:
			return e.reject(ErrWrongPhase, "Finish the current delivery before rolling again.")
		default:
			return e.reject(ErrWrongPhase, "Roll the dice to receive a delivery quest first.")
		}
	}
	return nil
}

func (e *GameEngine) requireQuestLocked() error {
	if err := e.requirePhaseLocked(PhaseDelivery); err != nil {
		return err
	}
	if e.state.Quest == nil {
		return e.reject(ErrNoActiveQuest, "There is no active delivery quest.")
	}
	return nil
}

// StartGame seats players in the given order and begins the first turn.
// Starting again while a game is running restarts it.
func (e *GameEngine) StartGame(names []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(names) < MinPlayers || len(names) > e.config.MaxPlayers {
		return e.reject(ErrInvalidPlayerCount,
			fmt.Sprintf("Choose between %d and %d players.", MinPlayers, e.config.MaxPlayers))
	}

	players := make([]Player, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Player %d", i+1)
		}
		players[i] = Player{ID: i, Name: name}
	}

	e.stack.SetStart(nil)
	e.epoch++
	e.rolling = false

	state := e.initialState(e.state.Year)
	state.Started = true
	state.Players = players
	state.Message = fmt.Sprintf(e.config.Messages.Welcome, players[0].Name)
	e.state = state

	e.logger.Info().
		Str("board", e.config.Name).
		Int("players", len(players)).
		Msg("Game started")

	return nil
}

// RollDice moves the current player and generates their delivery quest.
// The quest baseline is priced without holding the engine lock.
func (e *GameEngine) RollDice(ctx context.Context) (*RollOutcome, error) {
	e.mu.Lock()
	if err := e.requirePhaseLocked(PhaseDice); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if e.rolling {
		err := e.reject(ErrRollInProgress, "The dice are already rolling.")
		e.mu.Unlock()
		return nil, err
	}

	roll := e.rng.IntN(DiceFaces) + 1
	current := e.state.CurrentPlayer
	from := e.state.Players[current].Position
	to := min(from+roll, len(e.board)-1)

	origin := e.board[to]
	dest := e.board[pickDestination(e.rng, len(e.board), to)]
	year := e.state.Year
	epoch := e.epoch
	e.rolling = true
	est := Estimator{Roads: e.roads, Validator: e.validator, Logger: e.logger}
	e.mu.Unlock()

	best, options := est.Estimate(ctx, origin, dest, year)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.epoch != epoch {
		// the new game's message stays untouched
		return nil, &RuleError{Err: ErrWrongPhase, Message: "The game was restarted while the dice were rolling."}
	}
	e.rolling = false

	player := &e.state.Players[current]
	player.Position = to
	quest := questFromEstimate(e.rng, origin, dest, best, options)

	e.stack.SetStart(&origin)

	e.state.DiceValue = roll
	e.state.Quest = quest
	e.state.Phase = PhaseDelivery
	e.state.Message = fmt.Sprintf(e.config.Messages.Rolled, player.Name, roll, origin.Name) + " " + quest.Description

	e.logger.Debug().
		Str("player", player.Name).
		Int("dice", roll).
		Str("from", origin.Name).
		Str("to", dest.Name).
		Str("optimal", string(quest.OptimalMethod)).
		Float64("optimal_co2_kg", quest.OptimalCO2Kg).
		Msg("Quest generated")

	q := *quest
	return &RollOutcome{
		Player:       *player,
		Dice:         roll,
		FromPosition: from,
		ToPosition:   player.Position,
		Square:       origin,
		Quest:        &q,
	}, nil
}

// ToggleStop adds or removes a stop on the active quest's route
func (e *GameEngine) ToggleStop(ctx context.Context, loc Location) (*ToggleResult, error) {
	e.mu.Lock()
	if err := e.requireQuestLocked(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	year := e.state.Year
	e.mu.Unlock()

	res := e.stack.Toggle(ctx, loc, year)

	e.mu.Lock()
	e.state.Message = res.Message
	e.mu.Unlock()

	return &res, nil
}

// RemoveStop removes a stop from anywhere in the route
func (e *GameEngine) RemoveStop(ctx context.Context, loc Location) (*ToggleResult, error) {
	e.mu.Lock()
	if err := e.requireQuestLocked(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.mu.Unlock()

	res, err := e.stack.Remove(ctx, loc)
	if err != nil {
		e.mu.Lock()
		defer e.mu.Unlock()
		if errors.Is(err, ErrStopNotFound) {
			return nil, e.reject(ErrStopNotFound, fmt.Sprintf("%s is not on the route.", loc.Name))
		}
		return nil, err
	}

	e.mu.Lock()
	e.state.Message = res.Message
	e.mu.Unlock()

	return &res, nil
}

// ClearRoute removes every stop; the quest start stays
func (e *GameEngine) ClearRoute() (*RouteView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireQuestLocked(); err != nil {
		return nil, err
	}

	e.stack.Reset()
	e.state.Message = "Route cleared."

	view := e.stack.View()
	return &view, nil
}

// RecomputeRoute re-prices the current route
func (e *GameEngine) RecomputeRoute(ctx context.Context) (*RecomputeResult, error) {
	e.mu.Lock()
	if err := e.requireQuestLocked(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.mu.Unlock()

	res := e.stack.Recompute(ctx)
	if res.Truncation != nil {
		e.mu.Lock()
		e.state.Message = res.Truncation.Message
		e.mu.Unlock()
	}
	return &res, nil
}

// CompleteQuest scores the route when it ends at the destination and advances the turn
func (e *GameEngine) CompleteQuest(ctx context.Context) (*QuestOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireQuestLocked(); err != nil {
		return nil, err
	}

	quest := e.state.Quest
	view := e.stack.View()
	if view.Pending {
		return nil, e.reject(ErrRoutePending, "The route is still being calculated. Try again in a moment.")
	}

	var arrived bool
	if n := len(view.Stops); n > 0 {
		arrived = view.Stops[n-1].SameAs(quest.To)
	} else {
		arrived = quest.From.SameAs(quest.To)
	}
	if !arrived {
		return nil, e.reject(ErrNotAtDestination, fmt.Sprintf(e.config.Messages.NotAtDestination, quest.To.Name))
	}

	saved, points := ScoreQuest(quest.OptimalCO2Kg, view.Result.CO2Kg)

	player := &e.state.Players[e.state.CurrentPlayer]
	player.Score += points
	player.TotalCO2Saved += saved
	player.CompletedQuests++

	e.state.TotalQuests++
	record := QuestRecord{
		QuestNumber:   e.state.TotalQuests,
		PlayerID:      player.ID,
		PlayerName:    player.Name,
		From:          quest.From,
		To:            quest.To,
		Stops:         len(view.Stops),
		OptimalMethod: quest.OptimalMethod,
		OptimalCO2Kg:  quest.OptimalCO2Kg,
		ActualCO2Kg:   view.Result.CO2Kg,
		CO2SavedKg:    saved,
		Points:        points,
		CompletedAt:   e.now(),
	}
	e.state.QuestHistory = append(e.state.QuestHistory, record)
	e.state.Quest = nil
	e.stack.SetStart(nil)

	outcome := &QuestOutcome{Record: record, Player: *player}
	completeMsg := fmt.Sprintf(e.config.Messages.QuestComplete, player.Name, saved, points)

	if player.Position == len(e.board)-1 {
		winner := e.winnerLocked()
		e.state.Phase = PhaseGameOver
		e.state.Winner = &winner
		e.state.Message = completeMsg + " " + fmt.Sprintf(e.config.Messages.GameOver, winner.Name, winner.Score)

		outcome.GameOver = true
		w := winner
		outcome.Winner = &w

		e.logger.Info().
			Str("winner", winner.Name).
			Int("score", winner.Score).
			Int("quests", e.state.TotalQuests).
			Msg("Game over")
		return outcome, nil
	}

	e.state.CurrentPlayer = (e.state.CurrentPlayer + 1) % len(e.state.Players)
	e.state.Phase = PhaseDice
	next := e.state.Players[e.state.CurrentPlayer]
	e.state.Message = completeMsg + " " + fmt.Sprintf(e.config.Messages.NextTurn, next.Name)
	outcome.NextPlayer = &next

	return outcome, nil
}

// winnerLocked returns the highest scorer; the earliest seat wins ties
func (e *GameEngine) winnerLocked() Player {
	best := e.state.Players[0]
	for _, p := range e.state.Players[1:] {
		if p.Score > best.Score {
			best = p
		}
	}
	return best
}

// ResetGame clears the roster, quest, route and history. The selected year is kept.
func (e *GameEngine) ResetGame() *GameState {
	e.mu.Lock()
	e.stack.SetStart(nil)
	e.epoch++
	e.rolling = false
	e.state = e.initialState(e.state.Year)
	e.mu.Unlock()

	return e.GetState()
}

// SetYear selects which year's shipping lanes apply to later toggles and quests
func (e *GameEngine) SetYear(year string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	year = strings.TrimSpace(year)
	if year == "" {
		return e.reject(ErrInvalidYear, "Year must not be empty.")
	}
	e.state.Year = year
	e.state.Message = fmt.Sprintf("Shipping lanes now follow %s.", year)
	return nil
}

// GetState returns a snapshot copy of the game state including the published route
func (e *GameEngine) GetState() *GameState {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state
	s.Players = slices.Clone(e.state.Players)
	s.QuestHistory = slices.Clone(e.state.QuestHistory)
	if e.state.Quest != nil {
		q := *e.state.Quest
		q.Options = slices.Clone(q.Options)
		s.Quest = &q
	}
	if e.state.Winner != nil {
		w := *e.state.Winner
		s.Winner = &w
	}
	s.Route = e.stack.View()

	return &s
}

// GetConfig returns the board configuration
func (e *GameEngine) GetConfig() *BoardConfig {
	return e.config
}

// GetBoard returns the ordered board squares
func (e *GameEngine) GetBoard() []Location {
	return slices.Clone(e.board)
}

// CurrentPlayer returns the player whose turn it is
func (e *GameEngine) CurrentPlayer() (Player, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Started || len(e.state.Players) == 0 {
		return Player{}, false
	}
	return e.state.Players[e.state.CurrentPlayer], true
}

// IsGameOver returns whether the game has ended
func (e *GameEngine) IsGameOver() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Phase == PhaseGameOver
}

// GetQuestHistory returns completed quests, oldest first
func (e *GameEngine) GetQuestHistory() []QuestRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.state.QuestHistory)
}

// Year returns the selected lane year
func (e *GameEngine) Year() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Year
}

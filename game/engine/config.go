package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// SquareRef points a board square at an atlas location
type SquareRef struct {
	Kind LocationKind `json:"kind" yaml:"kind" validate:"required,oneof=port storage"`
	ID   int          `json:"id" yaml:"id" validate:"min=1"`
}

func (r SquareRef) Key() LocationKey {
	return LocationKey{Kind: r.Kind, ID: r.ID}
}

// BoardMessages are the format strings shown to players
type BoardMessages struct {
	Welcome          string `json:"welcome" yaml:"welcome"`                       // %s first player
	Rolled           string `json:"rolled" yaml:"rolled"`                         // %s player, %d dice, %s square
	QuestComplete    string `json:"quest_complete" yaml:"quest_complete"`         // %s player, %.2f saved, %d points
	NotAtDestination string `json:"not_at_destination" yaml:"not_at_destination"` // %s destination
	NextTurn         string `json:"next_turn" yaml:"next_turn"`                   // %s player
	GameOver         string `json:"game_over" yaml:"game_over"`                   // %s winner, %d score
}

// BoardConfig defines a playable board
type BoardConfig struct {
	Name        string        `json:"name" yaml:"name" validate:"required"`
	Description string        `json:"description" yaml:"description"`
	DefaultYear string        `json:"default_year,omitempty" yaml:"default_year,omitempty"`
	MaxPlayers  int           `json:"max_players,omitempty" yaml:"max_players,omitempty" validate:"omitempty,min=1,max=4"`
	Squares     []SquareRef   `json:"squares" yaml:"squares" validate:"min=2,dive"`
	Messages    BoardMessages `json:"messages" yaml:"messages"`
}

// DefaultMessages returns the English message set
func DefaultMessages() BoardMessages {
	return BoardMessages{
		Welcome:          "Game started! %s rolls first.",
		Rolled:           "%s rolled %d and landed on %s.",
		QuestComplete:    "Delivered! %s saved %.2f kg CO2 and earned %d points.",
		NotAtDestination: "Not at destination: the route must end at %s.",
		NextTurn:         "%s, roll the dice.",
		GameOver:         "Game over! %s wins with %d points.",
	}
}

var configValidator = validator.New()

// ValidateBoardConfig checks a board for playability and fills defaults for
// omitted optional fields.
func ValidateBoardConfig(config *BoardConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	if err := configValidator.Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("config validation: %s", formatFieldError(verrs[0]))
		}
		return fmt.Errorf("config validation: %w", err)
	}

	seen := make(map[LocationKey]int, len(config.Squares))
	for i, sq := range config.Squares {
		if prev, ok := seen[sq.Key()]; ok {
			return fmt.Errorf("config validation: square %d repeats square %d (%s)", i+1, prev+1, sq.Key())
		}
		seen[sq.Key()] = i
	}

	if config.MaxPlayers == 0 {
		config.MaxPlayers = MaxPlayers
	}
	if config.DefaultYear == "" {
		config.DefaultYear = DefaultYear
	}
	fillMessages(&config.Messages)

	for name, msg := range map[string]string{
		"welcome":            config.Messages.Welcome,
		"next_turn":          config.Messages.NextTurn,
		"not_at_destination": config.Messages.NotAtDestination,
	} {
		if !strings.Contains(msg, "%s") {
			return fmt.Errorf("config validation: messages.%s must contain %%s", name)
		}
	}
	if !strings.Contains(config.Messages.QuestComplete, "%d") {
		return fmt.Errorf("config validation: messages.quest_complete must contain %%d for points")
	}
	if !strings.Contains(config.Messages.GameOver, "%d") {
		return fmt.Errorf("config validation: messages.game_over must contain %%d for score")
	}

	return nil
}

func fillMessages(m *BoardMessages) {
	def := DefaultMessages()
	if m.Welcome == "" {
		m.Welcome = def.Welcome
	}
	if m.Rolled == "" {
		m.Rolled = def.Rolled
	}
	if m.QuestComplete == "" {
		m.QuestComplete = def.QuestComplete
	}
	if m.NotAtDestination == "" {
		m.NotAtDestination = def.NotAtDestination
	}
	if m.NextTurn == "" {
		m.NextTurn = def.NextTurn
	}
	if m.GameOver == "" {
		m.GameOver = def.GameOver
	}
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Namespace())
	field = strings.TrimPrefix(field, "boardconfig.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got '%v'", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// ParseBoardConfig decodes a board by file extension (.json, .yaml or .yml) and validates it
func ParseBoardConfig(filename string, data []byte) (*BoardConfig, error) {
	var config BoardConfig

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse board '%s': %w", filename, err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse board '%s': %w", filename, err)
		}
	}

	if err := ValidateBoardConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid board '%s': %w", filename, err)
	}

	return &config, nil
}

// LoadBoardConfig reads and validates a board file
func LoadBoardConfig(filename string) (*BoardConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseBoardConfig(filename, data)
}

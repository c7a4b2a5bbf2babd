package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/wricardo/co2-logistics-game/game/engine"
	"github.com/wricardo/co2-logistics-game/game/service"
	"gopkg.in/yaml.v3"
)

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultConfigName is tried first when picking the default board
const DefaultConfigName = "classic"

// extensions are tried in order when a board name has none
var extensions = []string{".json", ".yaml", ".yml"}

// Manager handles board configuration loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.BoardConfig
	configs       map[string]*engine.BoardConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.BoardConfig),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

func configID(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

func isBoardFile(filename string) bool {
	return slices.Contains(extensions, strings.ToLower(filepath.Ext(filename)))
}

// findFile resolves a board name to a file in the config directory
func (m *Manager) findFile(name string) (string, error) {
	if isBoardFile(name) {
		path := filepath.Join(m.configDir, name)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return "", ErrConfigNotFound
			}
			return "", err
		}
		return path, nil
	}

	for _, ext := range extensions {
		path := filepath.Join(m.configDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrConfigNotFound
}

// LoadConfig loads a board by name, with or without a file extension
func (m *Manager) LoadConfig(name string) (*engine.BoardConfig, error) {
	if strings.ContainsAny(name, `/\`) || name == "" || name == "." || name == ".." {
		return nil, ErrConfigNotFound
	}
	id := configID(name)

	m.mu.RLock()
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	path, err := m.findFile(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := engine.ParseBoardConfig(filepath.Base(path), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, exists := m.configs[id]; exists {
		return cached, nil
	}
	m.configs[id] = config
	return config, nil
}

// ListConfigs returns information about all loadable boards, sorted by id
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	configs := []*service.ConfigInfo{}
	seen := map[string]bool{}

	for _, entry := range entries {
		if entry.IsDir() || !isBoardFile(entry.Name()) {
			continue
		}
		id := configID(entry.Name())
		if seen[id] {
			continue
		}

		config, err := m.LoadConfig(entry.Name())
		if err != nil {
			// Skip invalid configs
			continue
		}
		seen[id] = true

		info := &service.ConfigInfo{
			Filename:    entry.Name(),
			ConfigID:    id,
			Name:        config.Name,
			Description: config.Description,
			Squares:     len(config.Squares),
			MaxPlayers:  config.MaxPlayers,
			DefaultYear: config.DefaultYear,
		}
		for _, sq := range config.Squares {
			if sq.Kind == engine.Port {
				info.Ports++
			} else {
				info.Storages++
			}
		}
		configs = append(configs, info)
	}

	slices.SortFunc(configs, func(a, b *service.ConfigInfo) int {
		return strings.Compare(a.ConfigID, b.ConfigID)
	})
	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.BoardConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops cached boards and reloads the default from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.BoardConfig)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// loadDefaultConfig prefers classic, then the first valid board, then a minimal board
func (m *Manager) loadDefaultConfig() error {
	config, err := m.LoadConfig(DefaultConfigName)
	if err != nil {
		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			config = createMinimalConfig()
		} else if config, err = m.LoadConfig(configs[0].Filename); err != nil {
			config = createMinimalConfig()
		}
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
	return nil
}

// SaveConfig validates and writes a board. Names ending in .yaml or .yml are
// written as YAML, everything else as JSON.
func (m *Manager) SaveConfig(name string, config *engine.BoardConfig) error {
	if strings.ContainsAny(name, `/\`) || configID(name) == "" {
		return fmt.Errorf("%w: invalid board name %q", ErrInvalidConfig, name)
	}
	if err := engine.ValidateBoardConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	filename := name
	if !isBoardFile(filename) {
		filename = name + ".json"
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.configDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[configID(filename)] = config
	m.mu.Unlock()

	return nil
}

// createMinimalConfig is used when no board file loads
func createMinimalConfig() *engine.BoardConfig {
	config := &engine.BoardConfig{
		Name:        "default",
		Description: "Default minimal board",
		Squares: []engine.SquareRef{
			{Kind: engine.Storage, ID: 1},
			{Kind: engine.Port, ID: 1},
			{Kind: engine.Storage, ID: 2},
			{Kind: engine.Port, ID: 2},
		},
	}
	_ = engine.ValidateBoardConfig(config)
	return config
}

// Package config provides board configuration management for the CO2 logistics game.
//
// The config package handles:
//   - Loading boards from JSON or YAML files
//   - Board validation through engine.ValidateBoardConfig
//   - Default board selection
//   - Board discovery and listing
//
// Configuration Format:
//
// Boards are stored in the configs directory as name.json, name.yaml or name.yml.
// Each board defines:
//   - An ordered list of squares, each pointing at a port or storage by id
//   - The default shipping-lane year
//   - The maximum number of players (1 to 4)
//   - Optional message templates
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load specific configuration
//	board, err := manager.LoadConfig("coastal")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// List available configurations
//	configs, err := manager.ListConfigs()
package config

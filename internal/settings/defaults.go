package settings

import (
	"time"

	"github.com/wricardo/co2-logistics-game/roads"
)

// SetDefaults fills every zero-valued field
func SetDefaults(s *Settings) {
	if s.Server.Host == "" {
		s.Server.Host = "localhost"
	}
	if s.Server.Port == 0 {
		s.Server.Port = 8080
	}

	if s.Data.PortsFile == "" {
		s.Data.PortsFile = "data/ports.geojson"
	}
	if s.Data.StoragesFile == "" {
		s.Data.StoragesFile = "data/storages.geojson"
	}
	if s.Data.PortRoutesFile == "" {
		s.Data.PortRoutesFile = "data/port_to_port_data.csv"
	}

	if s.Routing.Provider == "" {
		if s.Routing.ORSAPIKey != "" {
			s.Routing.Provider = "ors"
		} else {
			s.Routing.Provider = "straight"
		}
	}
	if s.Routing.ORSBaseURL == "" {
		s.Routing.ORSBaseURL = roads.DefaultORSBaseURL
	}
	if s.Routing.Profile == "" {
		s.Routing.Profile = roads.DefaultORSProfile
	}
	if s.Routing.RateLimit == 0 {
		s.Routing.RateLimit = 2
	}
	if s.Routing.Burst == 0 {
		s.Routing.Burst = 2
	}
	if s.Routing.Timeout == 0 {
		s.Routing.Timeout = 10 * time.Second
	}
	if s.Routing.DetourFactor == 0 {
		s.Routing.DetourFactor = roads.DefaultDetourFactor
	}

	if s.Cache.Driver == "" {
		s.Cache.Driver = "sqlite"
	}

	if s.Logging.Level == "" {
		s.Logging.Level = "info"
	}
	if s.Logging.Format == "" {
		s.Logging.Format = "console"
	}

	if s.Game.ConfigDir == "" {
		s.Game.ConfigDir = "configs"
	}
	if s.Game.SessionTTL == 0 {
		s.Game.SessionTTL = 24 * time.Hour
	}
	if s.Game.CleanupInterval == 0 {
		s.Game.CleanupInterval = 10 * time.Minute
	}
}

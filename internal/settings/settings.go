package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings is the application configuration
type Settings struct {
	Server  ServerSettings  `mapstructure:"server"`
	Data    DataSettings    `mapstructure:"data"`
	Routing RoutingSettings `mapstructure:"routing"`
	Cache   CacheSettings   `mapstructure:"cache"`
	Logging LoggingSettings `mapstructure:"logging"`
	Game    GameSettings    `mapstructure:"game"`
	Ngrok   NgrokSettings   `mapstructure:"ngrok"`
}

type ServerSettings struct {
	Host string `mapstructure:"host" validate:"required"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
}

// Addr returns host:port
func (s ServerSettings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DataSettings locates the location datasets and the port lane CSV
type DataSettings struct {
	PortsFile      string `mapstructure:"ports_file" validate:"required"`
	StoragesFile   string `mapstructure:"storages_file" validate:"required"`
	PortRoutesFile string `mapstructure:"port_routes_file" validate:"required"`
}

// RoutingSettings selects the road distance provider
type RoutingSettings struct {
	Provider     string        `mapstructure:"provider" validate:"oneof=ors straight"`
	ORSAPIKey    string        `mapstructure:"ors_api_key" validate:"required_if=Provider ors"`
	ORSBaseURL   string        `mapstructure:"ors_base_url" validate:"required,url"`
	Profile      string        `mapstructure:"profile" validate:"required"`
	RateLimit    float64       `mapstructure:"rate_limit" validate:"gt=0"`
	Burst        int           `mapstructure:"burst" validate:"min=1"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	DetourFactor float64       `mapstructure:"detour_factor" validate:"gte=1"`
}

// CacheSettings configures the road distance cache
type CacheSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN     string `mapstructure:"dsn" validate:"required_if=Driver postgres"`
}

type LoggingSettings struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

type GameSettings struct {
	ConfigDir       string        `mapstructure:"config_dir" validate:"required"`
	DefaultBoard    string        `mapstructure:"default_board"`
	SessionTTL      time.Duration `mapstructure:"session_ttl" validate:"gt=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gt=0"`
	Seed            uint64        `mapstructure:"seed"` // 0 picks a random seed
}

type NgrokSettings struct {
	Enabled   bool   `mapstructure:"enabled"`
	AuthToken string `mapstructure:"authtoken" validate:"required_if=Enabled true"`
	Domain    string `mapstructure:"domain"`
}

// envKeys are bound explicitly so Unmarshal sees them without a config file
var envKeys = []string{
	"server.host", "server.port",
	"data.ports_file", "data.storages_file", "data.port_routes_file",
	"routing.provider", "routing.ors_api_key", "routing.ors_base_url", "routing.profile",
	"routing.rate_limit", "routing.burst", "routing.timeout", "routing.detour_factor",
	"cache.enabled", "cache.driver", "cache.dsn",
	"logging.level", "logging.format",
	"game.config_dir", "game.default_board", "game.session_ttl", "game.cleanup_interval", "game.seed",
	"ngrok.enabled", "ngrok.authtoken", "ngrok.domain",
}

// unprefixed environment variables honoured for compatibility with common tooling
var aliases = map[string][]string{
	"routing.ors_api_key": {"ORS_API_KEY"},
	"cache.dsn":           {"DATABASE_URL"},
	"ngrok.authtoken":     {"NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"},
	"ngrok.domain":        {"NGROK_DOMAIN"},
	"game.config_dir":     {"CONFIG_DIR"},
}

// Load reads settings with priority:
// 1. Environment variables (CO2GAME_ prefix, .env supported)
// 2. Config file (settings.yaml)
// 3. Defaults
func Load(configPath string) (*Settings, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("settings")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("CO2GAME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read settings file: %w", err)
		}
	}

	for key, names := range aliases {
		if v.IsSet(key) {
			continue
		}
		for _, name := range names {
			if val := os.Getenv(name); val != "" {
				v.Set(key, val)
				break
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	SetDefaults(&s)

	if err := Validate(&s); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return &s, nil
}

// Default returns settings with every default applied
func Default() *Settings {
	s := &Settings{}
	SetDefaults(s)
	return s
}

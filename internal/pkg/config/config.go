package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Backend    BackendConfig    `mapstructure:"backend"`
	Nominatim  NominatimConfig  `mapstructure:"nominatim"`
	Geofence   GeofenceConfig   `mapstructure:"geofence"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Valkey     ValkeyConfig     `mapstructure:"valkey"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Follow     FollowConfig     `mapstructure:"follow"`
	Anonymous  AnonymousConfig  `mapstructure:"anonymous"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	CORSOrigins  string `mapstructure:"cors_origins"`
}

// BackendConfig points at the EcoAlerta REST backend.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// NominatimConfig configures geocoding and boundary lookup.
type NominatimConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	UserAgent    string        `mapstructure:"user_agent"`
	Email        string        `mapstructure:"email"`
	CountryCodes string        `mapstructure:"country_codes"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type GeofenceConfig struct {
	Place         string        `mapstructure:"place"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	Fallback      domain.Bounds `mapstructure:"fallback"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// SimulationConfig drives the fleet loop and the animation engine.
type SimulationConfig struct {
	Enabled         bool              `mapstructure:"enabled"`
	FrameInterval   time.Duration     `mapstructure:"frame_interval"`
	PublishInterval time.Duration     `mapstructure:"publish_interval"`
	Depot           domain.GeoPoint   `mapstructure:"depot"`
	Disposal        domain.GeoPoint   `mapstructure:"disposal"`
	Destinations    []domain.GeoPoint `mapstructure:"destinations"`
	StartDelay      time.Duration     `mapstructure:"start_delay"`
	MoveDelay       time.Duration     `mapstructure:"move_delay"`
	RestartDelay    time.Duration     `mapstructure:"restart_delay"`
	ToSite          time.Duration     `mapstructure:"to_site"`
	SitePause       time.Duration     `mapstructure:"site_pause"`
	ToDisposal      time.Duration     `mapstructure:"to_disposal"`
	DisposalPause   time.Duration     `mapstructure:"disposal_pause"`
	ToDepot         time.Duration     `mapstructure:"to_depot"`
}

type FollowConfig struct {
	Steps        int           `mapstructure:"steps"`
	StepInterval time.Duration `mapstructure:"step_interval"`
	Linger       time.Duration `mapstructure:"linger"`
}

type AnonymousConfig struct {
	DailyLimit int `mapstructure:"daily_limit"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from .env, an optional config file and
// environment variables, in increasing order of precedence.
func Load(service string) (*Config, error) {
	_ = godotenv.Load(".env") // OK if missing

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.cors_origins", "*")
	v.SetDefault("backend.base_url", "http://localhost:5100")
	v.SetDefault("backend.timeout", "10s")
	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "ecoalerta-bff/1.0")
	v.SetDefault("nominatim.email", "")
	v.SetDefault("nominatim.country_codes", "pe")
	v.SetDefault("nominatim.timeout", "10s")
	v.SetDefault("geofence.place", "La Esperanza Trujillo Peru")
	v.SetDefault("geofence.cache_ttl", "24h")
	v.SetDefault("geofence.retry_interval", "30s")
	v.SetDefault("geofence.fallback.min_lat", -8.1)
	v.SetDefault("geofence.fallback.min_lon", -79.07)
	v.SetDefault("geofence.fallback.max_lat", -8.05)
	v.SetDefault("geofence.fallback.max_lon", -79.02)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("simulation.enabled", true)
	v.SetDefault("simulation.frame_interval", "16ms")
	v.SetDefault("simulation.publish_interval", "100ms")
	v.SetDefault("simulation.depot", map[string]any{"lat": -8.082300478046495, "lon": -79.04119366686191})
	v.SetDefault("simulation.disposal", map[string]any{"lat": -8.076757, "lon": -79.068174})
	v.SetDefault("simulation.destinations", []map[string]any{
		{"lat": -8.067452, "lon": -79.061716},
		{"lat": -8.065019, "lon": -79.037704},
		{"lat": -8.049414, "lon": -79.054163},
	})
	v.SetDefault("simulation.start_delay", "3s")
	v.SetDefault("simulation.move_delay", "1s")
	v.SetDefault("simulation.restart_delay", "5s")
	v.SetDefault("simulation.to_site", "3s")
	v.SetDefault("simulation.site_pause", "1500ms")
	v.SetDefault("simulation.to_disposal", "2s")
	v.SetDefault("simulation.disposal_pause", "1s")
	v.SetDefault("simulation.to_depot", "2s")
	v.SetDefault("follow.steps", 100)
	v.SetDefault("follow.step_interval", "200ms")
	v.SetDefault("follow.linger", "1m")
	v.SetDefault("anonymous.daily_limit", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: ECOALERTA_BACKEND_BASE_URL → backend.base_url
	v.SetEnvPrefix("ECOALERTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if !validURL(c.Backend.BaseURL) {
		errs = append(errs, fmt.Sprintf("backend.base_url must be an absolute URL, got %q", c.Backend.BaseURL))
	}
	if !validURL(c.Nominatim.BaseURL) {
		errs = append(errs, fmt.Sprintf("nominatim.base_url must be an absolute URL, got %q", c.Nominatim.BaseURL))
	}
	if c.Nominatim.UserAgent == "" {
		errs = append(errs, "nominatim.user_agent is required by the Nominatim usage policy")
	}
	if c.Geofence.Place == "" {
		errs = append(errs, "geofence.place is required")
	}
	if fb := c.Geofence.Fallback; fb.MinLat >= fb.MaxLat || fb.MinLon >= fb.MaxLon {
		errs = append(errs, "geofence.fallback must have min < max on both axes")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Simulation.FrameInterval <= 0 {
		errs = append(errs, "simulation.frame_interval must be positive")
	}
	if c.Simulation.Enabled && len(c.Simulation.Destinations) == 0 {
		errs = append(errs, "simulation.destinations must not be empty when the simulation is enabled")
	}
	if c.Follow.Steps <= 0 || c.Follow.StepInterval <= 0 {
		errs = append(errs, "follow.steps and follow.step_interval must be positive")
	}
	if c.Anonymous.DailyLimit <= 0 {
		errs = append(errs, "anonymous.daily_limit must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

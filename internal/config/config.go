package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Backend BackendConfig `yaml:"backend" mapstructure:"backend"`
	IBGE    IBGEConfig    `yaml:"ibge" mapstructure:"ibge"`
	Map     MapConfig     `yaml:"map" mapstructure:"map"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Lookup  LookupConfig  `yaml:"lookup" mapstructure:"lookup"`
	Session SessionConfig `yaml:"session" mapstructure:"session"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the web server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// BackendConfig points at the Ecoleta API that lists items and stores points.
type BackendConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// IBGEConfig configures the IBGE localidades API.
type IBGEConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// MapConfig configures the map picker.
type MapConfig struct {
	CenterLat   float64 `yaml:"center_lat" mapstructure:"center_lat"`
	CenterLng   float64 `yaml:"center_lng" mapstructure:"center_lng"`
	Zoom        int     `yaml:"zoom" mapstructure:"zoom"`
	TileURL     string  `yaml:"tile_url" mapstructure:"tile_url"`
	Attribution string  `yaml:"attribution" mapstructure:"attribution"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LookupConfig configures caching of region lookups.
type LookupConfig struct {
	CacheTTLHours int `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// SessionConfig configures the in-memory form session registry and the
// signed browser cookie.
type SessionConfig struct {
	TTLMinutes int    `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
	MaxEntries int    `yaml:"max_entries" mapstructure:"max_entries"`
	Secret     string `yaml:"secret" mapstructure:"secret"`
	Secure     bool   `yaml:"secure" mapstructure:"secure"`
}

// DefaultSessionSecret signs cookies when no secret is configured.
const DefaultSessionSecret = "ecoleta-dev-secret-change-in-production"

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ECOLETA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("backend.base_url", "http://localhost:3333")
	v.SetDefault("backend.timeout_secs", 15)
	v.SetDefault("ibge.base_url", "https://servicodados.ibge.gov.br/api/v1/localidades")
	v.SetDefault("ibge.timeout_secs", 15)
	v.SetDefault("ibge.rate_limit", 10)
	v.SetDefault("map.center_lat", -21.7775479)
	v.SetDefault("map.center_lng", -43.3597565)
	v.SetDefault("map.zoom", 15)
	v.SetDefault("map.tile_url", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("map.attribution", `&copy; <a href="http://osm.org/copyright">OpenStreetMap</a> contributors`)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "ecoleta.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("lookup.cache_ttl_hours", 24)
	v.SetDefault("session.ttl_minutes", 60)
	v.SetDefault("session.max_entries", 1000)
	v.SetDefault("session.secret", DefaultSessionSecret)
	v.SetDefault("session.secure", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Validate checks that the settings required by the given mode are present.
// Modes: "serve" (web server), "lookup" (region CLI), "backend" (item and
// submission CLI).
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Backend.BaseURL == "" {
			errs = append(errs, "backend.base_url is required")
		}
		if c.IBGE.BaseURL == "" {
			errs = append(errs, "ibge.base_url is required")
		}
		if c.Map.Zoom <= 0 {
			errs = append(errs, "map.zoom must be > 0")
		}
		if len(c.Session.Secret) < 16 {
			errs = append(errs, "session.secret must be at least 16 bytes")
		}
	case "lookup":
		if c.IBGE.BaseURL == "" {
			errs = append(errs, "ibge.base_url is required")
		}
	case "backend":
		if c.Backend.BaseURL == "" {
			errs = append(errs, "backend.base_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Prefix of every environment variable read by Load.
const Prefix = "MIGRANTCONNECT_"

type Config struct {
	HTTP      HTTPConfig      `envPrefix:"HTTP_"`
	Log       LogConfig       `envPrefix:"LOG_"`
	Storage   StorageConfig   `envPrefix:"STORAGE_"`
	Uploads   UploadsConfig   `envPrefix:"UPLOAD_"`
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Providers ProvidersConfig `envPrefix:"PROVIDER_"`
	Legal     LegalConfig     `envPrefix:"LEGAL_"`
	Telemetry TelemetryConfig `envPrefix:"OTEL_"`
}

type HTTPConfig struct {
	Addr            string        `env:"ADDR" envDefault:"0.0.0.0:8081"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	AdminAPIKey     string        `env:"ADMIN_API_KEY"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`  // debug|info|warn|error
	Format string `env:"FORMAT" envDefault:"json"` // json|text
}

type StorageConfig struct {
	Driver       string        `env:"DRIVER" envDefault:"mongo"` // mongo|sqlite
	MongoURI     string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB      string        `env:"MONGO_DATABASE" envDefault:"migrantconnect"`
	MongoTimeout time.Duration `env:"MONGO_TIMEOUT" envDefault:"10s"`
	SQLitePath   string        `env:"SQLITE_PATH" envDefault:"instance/migrantconnect.db"`
}

type UploadsConfig struct {
	Dir     string `env:"DIR" envDefault:"uploads"`
	MaxSize int64  `env:"MAX_SIZE" envDefault:"5242880"`
}

type AuthConfig struct {
	JWTSecret    string        `env:"JWT_SECRET"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	RequireToken bool          `env:"REQUIRE_TOKEN" envDefault:"false"`
}

type RateLimitConfig struct {
	RPS   float64 `env:"RPS" envDefault:"10"`
	Burst int     `env:"BURST" envDefault:"20"`
}

type ProvidersConfig struct {
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`

	TranslateURL    string `env:"TRANSLATE_URL"`
	TranslateAPIKey string `env:"TRANSLATE_API_KEY"`

	SpeechURL    string `env:"SPEECH_URL"`
	SpeechAPIKey string `env:"SPEECH_API_KEY"`
	STTModel     string `env:"STT_MODEL" envDefault:"whisper-1"`
	TTSModel     string `env:"TTS_MODEL" envDefault:"tts-1"`
	TTSVoice     string `env:"TTS_VOICE" envDefault:"alloy"`

	DigiLockerURL   string `env:"DIGILOCKER_URL"`
	DigiLockerToken string `env:"DIGILOCKER_TOKEN"`

	PlacesURL string `env:"PLACES_URL" envDefault:"https://overpass-api.de/api/interpreter"`
}

type LegalConfig struct {
	CatalogPath string `env:"CATALOG_PATH"`
}

type TelemetryConfig struct {
	Endpoint    string `env:"ENDPOINT"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"migrantconnect"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	return LoadFrom(nil)
}

// LoadFrom parses vars instead of the process environment when vars is non-nil.
func LoadFrom(vars map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{Prefix: Prefix}
	if vars != nil {
		opts.Environment = vars
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))

	origins := c.HTTP.AllowedOrigins[:0]
	for _, o := range c.HTTP.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.HTTP.AllowedOrigins = origins
}

// Validate checks ranges and enumerations.
func Validate(cfg Config) error {
	if cfg.HTTP.Addr == "" {
		return errors.New("http addr must not be empty")
	}

	switch cfg.Storage.Driver {
	case "mongo":
		if cfg.Storage.MongoURI == "" || cfg.Storage.MongoDB == "" {
			return errors.New("mongo uri and database are required for the mongo driver")
		}
	case "sqlite":
		if cfg.Storage.SQLitePath == "" {
			return errors.New("sqlite path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("invalid storage driver: %q", cfg.Storage.Driver)
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %q", cfg.Log.Format)
	}

	if cfg.Uploads.Dir == "" {
		return errors.New("upload dir must not be empty")
	}
	if cfg.Uploads.MaxSize <= 0 || cfg.Uploads.MaxSize > 100<<20 {
		return fmt.Errorf("upload max size out of range: %d", cfg.Uploads.MaxSize)
	}
	if cfg.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth token ttl must be positive: %s", cfg.Auth.TokenTTL)
	}
	if cfg.RateLimit.RPS < 0 || cfg.RateLimit.Burst < 0 {
		return errors.New("rate limit values must not be negative")
	}
	if cfg.Providers.Timeout <= 0 {
		return fmt.Errorf("provider timeout must be positive: %s", cfg.Providers.Timeout)
	}
	return nil
}

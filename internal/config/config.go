// Package config loads the server configuration.
//
// Values are layered, later layers overriding earlier ones:
//
//	defaults (Default) → .env file (never overrides the real environment) → TRACKER_* environment variables
//
// Each key is the lowercase form of its variable without the prefix, so
// TRACKER_JWT_SECRET sets jwt_secret.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // day_timezone must resolve on hosts without a zoneinfo database

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix every configuration variable carries.
const EnvPrefix = "TRACKER_"

// Config holds every setting the server reads at startup.
type Config struct {
	Port   int    `koanf:"port" validate:"min=1,max=65535"`
	DBPath string `koanf:"db_path" validate:"required"`

	// JWTSecret signs access tokens. It is read once and never rotated.
	JWTSecret string        `koanf:"jwt_secret" validate:"required,min=16"`
	TokenTTL  time.Duration `koanf:"token_ttl" validate:"gt=0"`

	BCryptCost int `koanf:"bcrypt_cost" validate:"min=4,max=31"`

	// DayTimezone is the IANA zone whose midnight starts a stats day.
	DayTimezone string `koanf:"day_timezone" validate:"required"`

	EnforceRecordOwnership bool `koanf:"enforce_record_ownership"`

	// AuthRatePerMinute limits register and login attempts per client IP.
	// Zero disables the limiter.
	AuthRatePerMinute int `koanf:"auth_rate_per_minute" validate:"min=0"`
	AuthRateBurst     int `koanf:"auth_rate_burst" validate:"min=1"`

	DebugEndpoints bool `koanf:"debug_endpoints"`

	LogLevel        string        `koanf:"log_level" validate:"oneof=debug info warn error"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Default returns the configuration used when nothing is set.
// JWTSecret has no default and must always be provided.
func Default() Config {
	return Config{
		Port:                   8080,
		DBPath:                 "data/tracker.db",
		TokenTTL:               8 * 24 * time.Hour,
		BCryptCost:             12,
		DayTimezone:            "UTC",
		EnforceRecordOwnership: true,
		AuthRatePerMinute:      30,
		AuthRateBurst:          10,
		LogLevel:               "info",
		ShutdownTimeout:        30 * time.Second,
	}
}

// Load builds the configuration. envFile is an optional dotenv file; a
// missing file is not an error. Pass "" to skip it.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: reading %s: %w", envFile, err)
		}
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("config: loading defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
		},
	}), nil); err != nil {
		return Config{}, fmt.Errorf("config: loading environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}); err != nil {
		return Config{}, fmt.Errorf("config: decoding: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the struct tags and the timezone name.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	if _, err := time.LoadLocation(c.DayTimezone); err != nil {
		return fmt.Errorf("config: invalid day_timezone %q: %w", c.DayTimezone, err)
	}
	return nil
}

// Location resolves DayTimezone. It falls back to UTC on a config that
// skipped Validate.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel maps LogLevel onto slog. Unknown values mean Info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

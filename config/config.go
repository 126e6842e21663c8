package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hunter-progression/services"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the service configuration, read from the environment.
type Config struct {
	Port           string   `env:"PORT" envDefault:"5200"`
	DatabaseURL    string   `env:"DATABASE_URL,required,notEmpty"`
	ServiceToken   string   `env:"PROGRESSION_SERVICE_TOKEN,required,notEmpty"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`

	// Direct event XP
	WorkoutXP        int64 `env:"XP_WORKOUT" envDefault:"20"`
	PersonalRecordXP int64 `env:"XP_PERSONAL_RECORD" envDefault:"50"`

	// Gate spawn policy
	GateSpawnChance         float64 `env:"GATE_SPAWN_CHANCE" envDefault:"0.35"`
	GateRareChance          float64 `env:"GATE_RARE_CHANCE" envDefault:"0.05"`
	GateStretchChance       float64 `env:"GATE_STRETCH_CHANCE" envDefault:"0.15"`
	GateStretchBonusPercent int     `env:"GATE_STRETCH_BONUS_PERCENT" envDefault:"50"`
	MaxOpenGates            int     `env:"GATE_MAX_OPEN" envDefault:"3"`
	MaxActiveGates          int     `env:"GATE_MAX_ACTIVE" envDefault:"1"`

	// Catalog override stored in R2; empty key means the built-in catalog.
	CatalogObjectKey    string `env:"CATALOG_OBJECT_KEY"`
	CloudflareAccountID string `env:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID       string `env:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret   string `env:"R2_ACCESS_KEY_SECRET"`
	R2BucketName        string `env:"R2_BUCKET_NAME"`

	// Workout-history feed for lift achievements; empty URL disables the worker.
	StrengthSyncURL      string        `env:"STRENGTH_SYNC_URL"`
	StrengthSyncPath     string        `env:"STRENGTH_SYNC_PATH" envDefault:"/api/v1/public/lifts"`
	StrengthSyncToken    string        `env:"STRENGTH_SYNC_TOKEN"`
	StrengthSyncInterval time.Duration `env:"STRENGTH_SYNC_INTERVAL" envDefault:"1m"`

	RetentionDays     int           `env:"RETENTION_DAYS" envDefault:"30"`
	RetentionInterval time.Duration `env:"RETENTION_INTERVAL" envDefault:"24h"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("⚠️  No .env file found, reading environment variables directly")
	}
	return Parse()
}

// Parse reads and validates configuration from the process environment.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	for i, o := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(o)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	chances := map[string]float64{
		"GATE_SPAWN_CHANCE":   c.GateSpawnChance,
		"GATE_RARE_CHANCE":    c.GateRareChance,
		"GATE_STRETCH_CHANCE": c.GateStretchChance,
	}
	for name, v := range chances {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", name, v)
		}
	}
	if c.WorkoutXP < 0 || c.PersonalRecordXP < 0 {
		return fmt.Errorf("XP weights must be non-negative")
	}
	if c.MaxOpenGates < 1 || c.MaxActiveGates < 1 {
		return fmt.Errorf("GATE_MAX_OPEN and GATE_MAX_ACTIVE must be at least 1")
	}
	if c.CatalogObjectKey != "" && (c.CloudflareAccountID == "" || c.R2BucketName == "") {
		return fmt.Errorf("CATALOG_OBJECT_KEY needs CLOUDFLARE_ACCOUNT_ID and R2_BUCKET_NAME")
	}
	return nil
}

// XPWeights maps the XP settings onto the ledger.
func (c *Config) XPWeights() services.XPWeights {
	return services.XPWeights{WorkoutXP: c.WorkoutXP, PersonalRecordXP: c.PersonalRecordXP}
}

// GateSettings maps the gate settings onto the gate manager.
func (c *Config) GateSettings() services.GateSettings {
	return services.GateSettings{
		SpawnChance:         c.GateSpawnChance,
		RareChance:          c.GateRareChance,
		StretchChance:       c.GateStretchChance,
		StretchBonusPercent: c.GateStretchBonusPercent,
		MaxOpenGates:        c.MaxOpenGates,
		MaxActiveGates:      c.MaxActiveGates,
	}
}

// SlogLevel parses LogLevel, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment
// variables. It is immutable after Load() returns.
type Config struct {
	Port             int
	Environment      string
	DatabaseURL      string
	DatabaseMaxConns int
	RedisURL         string
	FrontendURL      string

	DemoMode bool

	TSInitStrength         float64
	TSUpdateStrengthDemo   float64
	TSUpdateStrengthNormal float64
	TSMaxTotal             float64
	TSBaseWeightDemo       float64
	TSWeightHalflife       float64

	MMREnabled    bool
	MMRRecallSize int
	MMRReturnSize int
	MMRPureTopK   int
	MMRWindowSize int
	MMRLambda     float64
	MMRMinScore   float64

	RRFK float64

	PriceThreshold  float64
	PriceMaxPenalty float64
}

// Load reads configuration from environment variables.
// DATABASE_URL is required; everything else has a sensible default.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("config.Load: DATABASE_URL is required")
	}

	cfg := &Config{
		Port:             envInt("PORT", 8080),
		Environment:      envStr("ENVIRONMENT", "development"),
		DatabaseURL:      dbURL,
		DatabaseMaxConns: envInt("DATABASE_MAX_CONNS", 25),
		RedisURL:         envStr("REDIS_URL", ""),
		FrontendURL:      envStr("FRONTEND_URL", "http://localhost:3000"),

		DemoMode: envBool("DEMO_MODE", true),

		TSInitStrength:         envFloat("TS_INIT_STRENGTH", 4.0),
		TSUpdateStrengthDemo:   envFloat("TS_UPDATE_STRENGTH_DEMO", 10.0),
		TSUpdateStrengthNormal: envFloat("TS_UPDATE_STRENGTH_NORMAL", 1.0),
		TSMaxTotal:             envFloat("TS_MAX_TOTAL", 100.0),
		TSBaseWeightDemo:       envFloat("TS_BASE_WEIGHT_DEMO", 0.8),
		TSWeightHalflife:       envFloat("TS_WEIGHT_HALFLIFE", 10.0),

		MMREnabled:    envBool("MMR_ENABLED", true),
		MMRRecallSize: envInt("MMR_RECALL_SIZE", 60),
		MMRReturnSize: envInt("MMR_RETURN_SIZE", 20),
		MMRPureTopK:   envInt("MMR_PURE_TOP_K", 3),
		MMRWindowSize: envInt("MMR_WINDOW_SIZE", 5),
		MMRLambda:     envFloat("MMR_LAMBDA", 0.7),
		MMRMinScore:   envFloat("MMR_MIN_SCORE", 0.2),

		RRFK: envFloat("RRF_K", 60),

		PriceThreshold:  envFloat("PRICE_THRESHOLD", 1.5),
		PriceMaxPenalty: envFloat("PRICE_MAX_PENALTY", 0.3),
	}

	return cfg, nil
}

// UpdateStrength returns U, the feedback update strength for the
// active mode.
func (c *Config) UpdateStrength() float64 {
	if c.DemoMode {
		return c.TSUpdateStrengthDemo
	}
	return c.TSUpdateStrengthNormal
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

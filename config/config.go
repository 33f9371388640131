package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Infrastructure
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
	MetricsAddr   string
	ListenAddr    string

	// Historical data files
	FairValueCSV string
	HashrateCSV  string
	EventsJSON   string

	// Admin auth (PIN, TOTP secret, or both)
	AdminPIN        string
	AdminTOTPSecret string

	// Simulation
	RoomID    string
	StartDate string
	EndDate   string
	TickMs    int
	Seed      int64
}

// Load reads configuration from environment variables with sensible defaults.
// The fair value CSV path has no fallback data behind it; main fails fast if
// the file is missing.
func Load() *Config {
	cfg := &Config{
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SQLitePath:    getEnv("SQLITE_PATH", "data/simulation.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),

		FairValueCSV: getEnv("FAIR_VALUE_CSV", "data/btc_fair_value_2013_2017.csv"),
		HashrateCSV:  getEnv("HASHRATE_CSV", "data/network_hashrate_monthly_2013_2017.csv"),
		EventsJSON:   getEnv("EVENTS_JSON", "data/events_2013_2017.json"),

		AdminPIN:        getEnv("ADMIN_PIN", ""),
		AdminTOTPSecret: getEnv("ADMIN_TOTP_SECRET", ""),

		RoomID:    getEnv("ROOM_ID", "default"),
		StartDate: getEnv("SIM_START_DATE", "2013-01-01"),
		EndDate:   getEnv("SIM_END_DATE", "2017-12-31"),
		TickMs:    getEnvInt("TICK_MS", 1000),
		Seed:      getEnvInt64("SIM_SEED", time.Now().UnixNano()),
	}
	if cfg.AdminPIN == "" && cfg.AdminTOTPSecret == "" {
		log.Fatalf("[config] set ADMIN_PIN or ADMIN_TOTP_SECRET; the control surface cannot run unauthenticated")
	}
	return cfg
}

// ParseDates resolves the simulation window. Malformed dates are fatal since
// every tick maps onto a calendar day in that window.
func (c *Config) ParseDates() (start, end time.Time) {
	var err error
	start, err = time.Parse("2006-01-02", c.StartDate)
	if err != nil {
		log.Fatalf("[config] bad SIM_START_DATE %q: %v", c.StartDate, err)
	}
	end, err = time.Parse("2006-01-02", c.EndDate)
	if err != nil {
		log.Fatalf("[config] bad SIM_END_DATE %q: %v", c.EndDate, err)
	}
	if end.Before(start) {
		log.Fatalf("[config] SIM_END_DATE %s precedes SIM_START_DATE %s", c.EndDate, c.StartDate)
	}
	return start, end
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("[config] %s must be an integer, got %q", key, v)
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Fatalf("[config] %s must be an integer, got %q", key, v)
	}
	return n
}

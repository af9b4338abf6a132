package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port             string
	DatabaseURL      string // empty = in-memory store
	GoogleMapsAPIKey string // empty = no geocoding
	Env              string // development, staging, production

	// Matching
	SimilarityThreshold float64
	GazetteerPath       string // empty = embedded gazetteer
	DefaultCountry      string // empty = gazetteer default_country
	MaxGroupSize        int

	// Geocoding
	GeocodeRegion   string
	GeocodeRPS      float64
	GeocodeTimeout  time.Duration
	BackfillWorkers int

	// Database performance settings
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime int // minutes
	DBReadTimeout     time.Duration
	DBWriteTimeout    time.Duration

	// Logging
	LogLevel  string
	LogFormat string // "json" or "text"
	LogOutput string // "stdout", "stderr" or file path

	// Admin listener: profiling and metrics
	AdminPort        string
	ProfilingEnabled bool
	MetricsEnabled   bool
	MetricsPath      string

	ConfigReloadIntervalSeconds int
}

func Load() *Config {
	env := strings.ToLower(getEnv("ENV", "development"))

	threshold, _ := strconv.ParseFloat(getEnv("SIMILARITY_THRESHOLD", "0.8"), 64)
	maxGroupSize, _ := strconv.Atoi(getEnv("MAX_GROUP_SIZE", "500"))

	geocodeRPS, _ := strconv.ParseFloat(getEnv("GEOCODE_RPS", "5"), 64)
	geocodeTO, _ := time.ParseDuration(getEnv("GEOCODE_TIMEOUT", "5s"))
	backfillWorkers, _ := strconv.Atoi(getEnv("BACKFILL_WORKERS", "4"))

	dbMaxOpenConns, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	dbMaxIdleConns, _ := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "10"))
	dbConnMaxLifetime, _ := strconv.Atoi(getEnv("DB_CONN_MAX_LIFETIME_MINUTES", "10"))
	dbReadTO, _ := time.ParseDuration(getEnv("DB_READ_TIMEOUT", "5s"))
	dbWriteTO, _ := time.ParseDuration(getEnv("DB_WRITE_TIMEOUT", "5s"))

	// profiling and metrics default on outside production
	devDefault := env == "development" || env == "staging"
	profilingEnabled, _ := strconv.ParseBool(getEnv("PROFILING_ENABLED", strconv.FormatBool(devDefault)))
	metricsEnabled, _ := strconv.ParseBool(getEnv("METRICS_ENABLED", strconv.FormatBool(devDefault)))

	reloadIntSec, _ := strconv.Atoi(getEnv("CONFIG_RELOAD_INTERVAL_SECONDS", "5"))

	return &Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		GoogleMapsAPIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),
		Env:              env,

		SimilarityThreshold: threshold,
		GazetteerPath:       getEnv("GAZETTEER_PATH", ""),
		DefaultCountry:      getEnv("DEFAULT_COUNTRY", ""),
		MaxGroupSize:        maxGroupSize,

		GeocodeRegion:   strings.ToLower(getEnv("GEOCODE_REGION", "tn")),
		GeocodeRPS:      geocodeRPS,
		GeocodeTimeout:  geocodeTO,
		BackfillWorkers: backfillWorkers,

		DBMaxOpenConns:    dbMaxOpenConns,
		DBMaxIdleConns:    dbMaxIdleConns,
		DBConnMaxLifetime: dbConnMaxLifetime,
		DBReadTimeout:     dbReadTO,
		DBWriteTimeout:    dbWriteTO,

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogOutput: getEnv("LOG_OUTPUT", "stdout"),

		AdminPort:        getEnv("ADMIN_PORT", "6060"),
		ProfilingEnabled: profilingEnabled,
		MetricsEnabled:   metricsEnabled,
		MetricsPath:      getEnv("METRICS_PATH", "/metrics"),

		ConfigReloadIntervalSeconds: reloadIntSec,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

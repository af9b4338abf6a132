package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	errs "pickup-address-matcher/pkg/errors"
	"pickup-address-matcher/pkg/logging"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error for field '%s' with value '%s': %s", e.Field, e.Value, e.Message)
}

// ConfigValidator accumulates validation errors so all of them are reported
// at once.
type ConfigValidator struct {
	errors []ValidationError
}

func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{errors: make([]ValidationError, 0)}
}

func (cv *ConfigValidator) AddError(field, value, message string) {
	cv.errors = append(cv.errors, ValidationError{Field: field, Value: value, Message: message})
}

func (cv *ConfigValidator) HasErrors() bool { return len(cv.errors) > 0 }

func (cv *ConfigValidator) GetErrors() []ValidationError { return cv.errors }

func (cv *ConfigValidator) GetErrorsAsString() string {
	var lines []string
	for _, err := range cv.errors {
		lines = append(lines, err.Error())
	}
	return strings.Join(lines, "\n")
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	validator := NewConfigValidator()

	c.validateFormats(validator)
	c.validateRanges(validator)
	c.validateEnvironment(validator)

	if validator.HasErrors() {
		return errs.NewValidation("config.Validate", fmt.Sprintf("configuration validation failed:\n%s", validator.GetErrorsAsString()), nil)
	}
	return nil
}

func (c *Config) validateFormats(validator *ConfigValidator) {
	if c.DatabaseURL != "" {
		if _, err := mysql.ParseDSN(c.DatabaseURL); err != nil {
			validator.AddError("DATABASE_URL", maskString(c.DatabaseURL, 8), fmt.Sprintf("invalid mysql DSN: %v", err))
		}
	}

	validatePort(validator, "PORT", c.Port)
	if c.ProfilingEnabled || c.MetricsEnabled {
		validatePort(validator, "ADMIN_PORT", c.AdminPort)
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		validator.AddError("LOG_LEVEL", c.LogLevel, "invalid log level (must be one of: trace, debug, info, warn, error, fatal)")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		validator.AddError("LOG_FORMAT", c.LogFormat, "invalid log format (must be 'json' or 'text')")
	}

	if c.MetricsEnabled && !strings.HasPrefix(c.MetricsPath, "/") {
		validator.AddError("METRICS_PATH", c.MetricsPath, "metrics path must start with '/'")
	}

	if c.GeocodeRegion != "" && len(c.GeocodeRegion) != 2 {
		validator.AddError("GEOCODE_REGION", c.GeocodeRegion, "region must be a two-letter country code")
	}
}

func validatePort(validator *ConfigValidator, field, value string) {
	if value == "" {
		validator.AddError(field, value, "port is required")
		return
	}
	if port, err := strconv.Atoi(value); err != nil || port < 1 || port > 65535 {
		validator.AddError(field, value, "invalid port number (must be 1-65535)")
	}
}

func (c *Config) validateRanges(validator *ConfigValidator) {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		validator.AddError("SIMILARITY_THRESHOLD", strconv.FormatFloat(c.SimilarityThreshold, 'f', -1, 64), "similarity threshold must be between 0 and 1")
	}
	if c.MaxGroupSize < 1 || c.MaxGroupSize > 10000 {
		validator.AddError("MAX_GROUP_SIZE", strconv.Itoa(c.MaxGroupSize), "max group size must be between 1 and 10000")
	}

	if c.GeocodeRPS <= 0 || c.GeocodeRPS > 50 {
		validator.AddError("GEOCODE_RPS", strconv.FormatFloat(c.GeocodeRPS, 'f', -1, 64), "geocode rate must be in (0, 50]")
	}
	if c.GeocodeTimeout <= 0 {
		validator.AddError("GEOCODE_TIMEOUT", c.GeocodeTimeout.String(), "geocode timeout must be positive")
	}
	if c.BackfillWorkers < 1 || c.BackfillWorkers > 32 {
		validator.AddError("BACKFILL_WORKERS", strconv.Itoa(c.BackfillWorkers), "backfill workers must be between 1 and 32")
	}

	if c.DatabaseURL != "" {
		if c.DBMaxOpenConns < 1 || c.DBMaxOpenConns > 1000 {
			validator.AddError("DB_MAX_OPEN_CONNS", strconv.Itoa(c.DBMaxOpenConns), "max open connections must be between 1 and 1000")
		}
		if c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
			validator.AddError("DB_MAX_IDLE_CONNS", strconv.Itoa(c.DBMaxIdleConns), "max idle connections must be between 0 and max open connections")
		}
		if c.DBConnMaxLifetime < 1 || c.DBConnMaxLifetime > 60 {
			validator.AddError("DB_CONN_MAX_LIFETIME_MINUTES", strconv.Itoa(c.DBConnMaxLifetime), "connection max lifetime must be between 1 and 60 minutes")
		}
		if c.DBReadTimeout <= 0 || c.DBWriteTimeout <= 0 {
			validator.AddError("DB_READ_TIMEOUT", c.DBReadTimeout.String(), "database timeouts must be positive")
		}
	}

	if c.ConfigReloadIntervalSeconds < 1 {
		validator.AddError("CONFIG_RELOAD_INTERVAL_SECONDS", strconv.Itoa(c.ConfigReloadIntervalSeconds), "reload interval must be at least 1 second")
	}
}

func (c *Config) validateEnvironment(validator *ConfigValidator) {
	if c.GazetteerPath != "" {
		if _, err := os.Stat(c.GazetteerPath); err != nil {
			validator.AddError("GAZETTEER_PATH", c.GazetteerPath, fmt.Sprintf("gazetteer file not readable: %v", err))
		}
	}

	if c.Env == "production" && c.DatabaseURL == "" {
		validator.AddError("DATABASE_URL", "", "database URL is required in production")
	}

	if (c.ProfilingEnabled || c.MetricsEnabled) && c.AdminPort == c.Port {
		validator.AddError("ADMIN_PORT", c.AdminPort, "port conflict with PORT")
	}
}

// GetConfigSummary returns a summary of the configuration (excluding sensitive data)
func (c *Config) GetConfigSummary() map[string]interface{} {
	return map[string]interface{}{
		"port":                 c.Port,
		"env":                  c.Env,
		"database_url":         maskString(c.DatabaseURL, 8),
		"google_maps_api_key":  maskString(c.GoogleMapsAPIKey, 6),
		"similarity_threshold": c.SimilarityThreshold,
		"gazetteer_path":       c.GazetteerPath,
		"default_country":      c.DefaultCountry,
		"max_group_size":       c.MaxGroupSize,
		"geocode_region":       c.GeocodeRegion,
		"geocode_rps":          c.GeocodeRPS,
		"backfill_workers":     c.BackfillWorkers,
		"log_level":            c.LogLevel,
		"log_format":           c.LogFormat,
		"admin_port":           c.AdminPort,
		"profiling_enabled":    c.ProfilingEnabled,
		"metrics_enabled":      c.MetricsEnabled,
	}
}

// maskString masks sensitive strings for logging/display
func maskString(s string, keepFirst int) string {
	if s == "" {
		return ""
	}
	if len(s) <= keepFirst {
		return strings.Repeat("*", len(s))
	}
	return s[:keepFirst] + strings.Repeat("*", len(s)-keepFirst)
}

package constants

import "time"

// Default timeouts and intervals. pkg/config overrides the ones it exposes.

const (
	// Database
	DBReadTimeoutDefault  = 5 * time.Second
	DBWriteTimeoutDefault = 5 * time.Second
	DBConnMaxIdleTime     = 5 * time.Minute

	// Google Maps geocoding
	GeocodeOperationTimeout  = 5 * time.Second
	GeocodeOpenFor           = 30 * time.Second
	GeocodeSlowCallThreshold = 1500 * time.Millisecond

	// Health
	HealthTimeoutDefault = 3 * time.Second

	// HTTP server
	ReadHeaderTimeout = 5 * time.Second
	WriteTimeout      = 30 * time.Second
	IdleTimeout       = 60 * time.Second

	// App shutdown
	GracefulShutdownTimeoutDefault = 10 * time.Second

	// Backfill processes this many rows per run.
	BackfillBatchSize = 1000
)

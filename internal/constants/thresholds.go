package constants

// Fixed limits that are not configuration knobs; use pkg/config for
// env-driven settings.

const (
	// Request bodies and list pages
	MaxBodyBytes        = 1 << 20
	MaxBatchAddresses   = 1000
	DefaultPageSize     = 50
	MaxPageSize         = 500
	MaxAddressRuneCount = 512

	// Geocoder circuit breaker
	GeocodeMaxConsecFailures = 5
	GeocodeFailureRate       = 0.6
	GeocodeSlowCallRate      = 0.7
)

package config

import (
	"os"
	"time"
)

// Client captures configuration for the request pipeline and caches.
type Client struct {
	// BaseURL prefixes relative request paths. Empty is tolerated for
	// same-origin style deployments but triggers a one-time warning when
	// the process is clearly not running locally.
	BaseURL string
	// Hostname identifies where the process runs, used only to decide
	// whether an empty BaseURL is worth warning about.
	Hostname string
	// CacheTTL bounds the age of a cached cart computation.
	CacheTTL time.Duration
	// RedisURL, when set, moves the durable identity/session tier to Redis.
	RedisURL string
	// StateFile, when set, persists the durable tier to a JSON file instead
	// of process memory. Ignored when RedisURL is set.
	StateFile string
	// BreakerEnabled wraps the HTTP transport in a circuit breaker.
	BreakerEnabled bool
}

var CacheTTL = 30 * time.Second

// FromEnv builds a Client config from environment variables so main stays lean.
func FromEnv() Client {
	hostname := os.Getenv("TROLLEY_HOSTNAME")
	if hostname == "" {
		hostname, _ = os.Hostname()
	}

	ttl := CacheTTL
	if raw := os.Getenv("TROLLEY_CACHE_TTL"); raw != "" {
		if duration, err := time.ParseDuration(raw); err == nil {
			ttl = duration
		}
	}

	return Client{
		BaseURL:        os.Getenv("TROLLEY_API_BASE_URL"),
		Hostname:       hostname,
		CacheTTL:       ttl,
		RedisURL:       os.Getenv("TROLLEY_REDIS_URL"),
		StateFile:      os.Getenv("TROLLEY_STATE_FILE"),
		BreakerEnabled: os.Getenv("TROLLEY_BREAKER") == "true",
	}
}

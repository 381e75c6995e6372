package config

import "time"

const (
	// Sessions
	SessionTTL        = 24 * time.Hour
	SessionCookieName = "session"
	SessionIssuer     = "drainwatch-service"

	// Passwords
	BcryptCost = 12

	// Login throttling
	LoginAttemptLimit  = 10
	LoginAttemptWindow = 15 * time.Minute

	// Storage
	RedisOpTimeout = 2 * time.Second
)

// SeverityWeights ranks severities for triage ordering; higher sorts first.
var SeverityWeights = map[string]int{
	"Low":      1,
	"Medium":   2,
	"High":     3,
	"Critical": 4,
}

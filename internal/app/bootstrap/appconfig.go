// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig covers ports, TLS, logging and request limits. Everything
// specific to the coordinator lives here and is passed to each lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer token verification
	JWTSecret string // HS256 signing secret shared with the identity provider
	JWTIssuer string // expected "iss" claim; blank accepts any issuer

	// Claim and resolution retry policy
	ClaimMaxAttempts  int           // total attempts per atomic unit before giving up
	ClaimRetryBackoff time.Duration // base pause between attempts

	MetricsEnabled bool // serve /metrics

	// Per-caller limit on state-changing requests (0 disables)
	WriteRatePerMinute int
	WriteRateBurst     int

	// Account promoted to organization_admin on startup (blank disables)
	BootstrapAdminEmail string
}

// RetryLimit caps claim_max_attempts.
const RetryLimit = 50

// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/reliefhub/internal/app/system/auth"
	"github.com/dalemusser/reliefhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const devJWTSecret = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for ReliefHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: RELIEFHUB_MONGO_URI, RELIEFHUB_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "reliefhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "jwt_secret", Default: devJWTSecret, Desc: "HS256 secret for bearer tokens (must be strong in production)"},
	{Name: "jwt_issuer", Default: "", Desc: "Expected token issuer (blank accepts any)"},

	{Name: "claim_max_attempts", Default: 5, Desc: "Attempts per claim/resolve before reporting contention"},
	{Name: "claim_retry_backoff", Default: "5ms", Desc: "Base pause between aborted attempts (e.g., 5ms, 0s)"},

	{Name: "metrics_enabled", Default: true, Desc: "Serve Prometheus metrics at /metrics"},
	{Name: "write_rate_per_minute", Default: 120, Desc: "Write requests per caller per minute (0 disables limiting)"},
	{Name: "write_rate_burst", Default: 20, Desc: "Write request burst per caller"},

	{Name: "bootstrap_admin_email", Default: "", Desc: "Email of an account promoted to organization_admin on startup"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges flags > env > files > defaults,
// reading WAFFLE_* for core settings and RELIEFHUB_* for the keys above.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "RELIEFHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret: appValues.String("jwt_secret"),
		JWTIssuer: appValues.String("jwt_issuer"),

		ClaimMaxAttempts:  appValues.Int("claim_max_attempts"),
		ClaimRetryBackoff: appValues.Duration("claim_retry_backoff", 5*time.Millisecond),

		MetricsEnabled:     appValues.Bool("metrics_enabled"),
		WriteRatePerMinute: appValues.Int("write_rate_per_minute"),
		WriteRateBurst:     appValues.Int("write_rate_burst"),

		BootstrapAdminEmail: appValues.String("bootstrap_admin_email"),
	}

	// Timeouts are read before ConnectDB uses them.
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		cur := timeouts.Current()
		logger.Info("timeouts overridden from environment",
			zap.Int("count", n),
			zap.Duration("short", cur.Short),
			zap.Duration("medium", cur.Medium),
			zap.Duration("long", cur.Long))
	}
	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI format is checked here to catch configuration errors before
// attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database is required")
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)",
			appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize)
	}

	switch {
	case appCfg.JWTSecret == "":
		return auth.ErrNoSecret
	case len(appCfg.JWTSecret) < auth.MinSecretLen:
		return fmt.Errorf("jwt_secret must be at least %d bytes", auth.MinSecretLen)
	case appCfg.JWTSecret == devJWTSecret && coreCfg.Env == "prod":
		return fmt.Errorf("jwt_secret still has the development default")
	}

	if appCfg.ClaimMaxAttempts < 1 || appCfg.ClaimMaxAttempts > RetryLimit {
		return fmt.Errorf("claim_max_attempts must be between 1 and %d, got %d", RetryLimit, appCfg.ClaimMaxAttempts)
	}
	if appCfg.WriteRatePerMinute < 0 || appCfg.WriteRateBurst < 0 {
		return fmt.Errorf("write_rate_per_minute and write_rate_burst must not be negative")
	}
	if appCfg.ClaimRetryBackoff < 0 || appCfg.ClaimRetryBackoff > time.Second {
		return fmt.Errorf("claim_retry_backoff must be between 0 and 1s, got %s", appCfg.ClaimRetryBackoff)
	}
	return nil
}

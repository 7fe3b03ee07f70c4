// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	userstore "github.com/dalemusser/reliefhub/internal/app/store/users"
	"github.com/dalemusser/reliefhub/internal/app/system/authz"
	"github.com/dalemusser/reliefhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.BootstrapAdminEmail != "" {
		return ensureBootstrapAdmin(ctx, userstore.New(deps.MongoDatabase), appCfg.BootstrapAdminEmail, logger)
	}
	return nil
}

// ensureBootstrapAdmin grants organization_admin to an existing account so the
// first organization can be created. Accounts are provisioned elsewhere, so a
// missing account is logged rather than created.
func ensureBootstrapAdmin(ctx context.Context, users *userstore.Store, email string, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	found, err := users.AddRole(ctx, email, authz.RoleOrganizationAdmin)
	if err != nil {
		logger.Error("bootstrap admin promotion failed", zap.String("email", email), zap.Error(err))
		return err
	}
	if !found {
		logger.Warn("bootstrap admin account not found", zap.String("email", email))
		return nil
	}
	logger.Info("bootstrap admin ensured", zap.String("email", email))
	return nil
}

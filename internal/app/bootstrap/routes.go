// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	announcementsfeature "github.com/dalemusser/reliefhub/internal/app/features/announcements"
	errorsfeature "github.com/dalemusser/reliefhub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/reliefhub/internal/app/features/health"
	helprequestsfeature "github.com/dalemusser/reliefhub/internal/app/features/helprequests"
	organizationsfeature "github.com/dalemusser/reliefhub/internal/app/features/organizations"
	usersfeature "github.com/dalemusser/reliefhub/internal/app/features/users"
	"github.com/dalemusser/reliefhub/internal/app/fulfillment"
	announcementstore "github.com/dalemusser/reliefhub/internal/app/store/announcements"
	fulfillmentstore "github.com/dalemusser/reliefhub/internal/app/store/fulfillment"
	organizationstore "github.com/dalemusser/reliefhub/internal/app/store/organizations"
	userstore "github.com/dalemusser/reliefhub/internal/app/store/users"
	"github.com/dalemusser/reliefhub/internal/app/system/auth"
	"github.com/dalemusser/reliefhub/internal/app/system/metrics"
	"github.com/dalemusser/reliefhub/internal/app/system/ratelimit"
	"github.com/dalemusser/reliefhub/internal/app/system/reqlog"
	"github.com/dalemusser/reliefhub/internal/app/system/txn"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. Every feature router is JSON-only and
// reads the caller from the bearer token loaded by auth.LoadActor.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	users := userstore.New(db)
	authMgr, err := auth.NewManager(appCfg.JWTSecret, appCfg.JWTIssuer, userstore.NewFetcher(db, logger), logger)
	if err != nil {
		logger.Error("auth manager init failed", zap.Error(err))
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	orgs := organizationstore.New(db)
	svc := fulfillment.NewService(fulfillmentstore.New(db, logger), orgs, logger, fulfillment.Options{
		Retry: txn.Policy{
			MaxAttempts: appCfg.ClaimMaxAttempts,
			Backoff:     appCfg.ClaimRetryBackoff,
		},
		Metrics: metrics.NewFulfillment(reg),
	})

	var limiter *ratelimit.Limiter
	if appCfg.WriteRatePerMinute > 0 {
		limiter = ratelimit.New(appCfg.WriteRatePerMinute, appCfg.WriteRateBurst)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(reqlog.Middleware(logger))
	r.NotFound(errorsfeature.NotFound)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, logger)))
	if appCfg.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler(reg))
	}

	r.Group(func(api chi.Router) {
		// Loads the Actor into context if a bearer token is present.
		api.Use(authMgr.LoadActor)
		api.Use(ratelimit.Writes(limiter, logger))

		hr := helprequestsfeature.NewHandler(svc, logger)
		api.Mount("/help-requests", helprequestsfeature.Routes(hr))
		api.Mount("/assignments", helprequestsfeature.AssignmentRoutes(hr))

		ann := announcementsfeature.NewHandler(announcementstore.New(db), orgs, logger)
		orgHandler := organizationsfeature.NewHandler(orgs, users, svc, logger)
		api.Mount("/organizations", organizationsfeature.Routes(orgHandler, ann))

		api.Mount("/users", usersfeature.Routes(usersfeature.NewHandler(users, logger)))
	})

	logger.Info("routes mounted",
		zap.Bool("metrics", appCfg.MetricsEnabled),
		zap.Int("claim_max_attempts", appCfg.ClaimMaxAttempts),
		zap.String("env", coreCfg.Env))
	return r, nil
}

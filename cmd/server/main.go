package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clearclaim/backend/modules/admin"
	"github.com/clearclaim/backend/modules/claims"
	"github.com/clearclaim/backend/modules/webhook"
	"github.com/clearclaim/backend/pkg/billing"
	"github.com/clearclaim/backend/pkg/config"
	"github.com/clearclaim/backend/pkg/entitlement"
	"github.com/clearclaim/backend/pkg/gating"
	"github.com/clearclaim/backend/pkg/httpserver"
	"github.com/clearclaim/backend/pkg/logger"
	"github.com/clearclaim/backend/pkg/membership"
	"github.com/clearclaim/backend/pkg/pg"
	"github.com/clearclaim/backend/pkg/usage"
)

type appConfig struct {
	AppName     string `env:"APP_NAME" envDefault:"clearclaim"`
	Environment string `env:"APP_ENV" envDefault:"development"`

	EntitlementsPath string `env:"ENTITLEMENTS_PATH" envDefault:"config/entitlements.yaml"`
	UpgradeURL       string `env:"UPGRADE_URL" envDefault:"https://clearclaim.example.com/upgrade"`
	AdminToken       string `env:"ADMIN_TOKEN,required"`

	// Price map entries look like "pri_abc:starter,pri_def:pro".
	PriceMap    map[string]string `env:"BILLING_PRICE_MAP,required"`
	DefaultTier string            `env:"BILLING_DEFAULT_TIER" envDefault:"starter"`
}

func main() {
	var (
		appCfg    appConfig
		pgCfg     pg.Config
		httpCfg   httpserver.Config
		paddleCfg billing.PaddleConfig
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&paddleCfg)

	log := logger.New(logger.WithEnvironment(appCfg.Environment, appCfg.AppName))
	logger.SetAsDefault(log)

	if err := run(context.Background(), appCfg, pgCfg, httpCfg, paddleCfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, appCfg appConfig, pgCfg pg.Config, httpCfg httpserver.Config, paddleCfg billing.PaddleConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	catalog, err := entitlement.NewCatalog(ctx, entitlement.NewFileSource(appCfg.EntitlementsPath))
	if err != nil {
		return err
	}

	resolver, err := buildResolver(appCfg)
	if err != nil {
		return err
	}

	provider, err := billing.NewPaddleProvider(paddleCfg)
	if err != nil {
		return err
	}

	members := membership.NewService(
		membership.NewPostgresStore(pool),
		resolver,
		membership.WithLogger(log.With("component", "membership")),
	)
	meter := usage.NewService(usage.NewPostgresStore(pool))
	engine := gating.NewEngine(catalog, meter)

	webhookSvc := webhook.New(provider, members, log.With("component", "webhook"))
	claimsSvc := claims.New(engine, meter, currentUserFromHeader(members), appCfg.UpgradeURL, log.With("component", "claims"))
	adminSvc := admin.New(members, meter, adminTokenAuthorizer(appCfg.AdminToken), log.With("component", "admin"))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", httpserver.HealthCheckHandler(ctx, log, pg.Healthcheck(pool)))
	r.Mount("/webhooks", webhookSvc.Handler())
	r.Mount("/claims", claimsSvc.Handler())
	r.Mount("/admin", adminSvc.Handler())

	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("server listening", "addr", httpCfg.Addr, "env", appCfg.Environment)
		}),
		httpserver.WithStopHook(func(l *slog.Logger) {
			l.Info("server stopped")
		}),
	)
	return srv.Run(ctx, r)
}

func buildResolver(cfg appConfig) (*billing.Resolver, error) {
	defaultTier, err := entitlement.ParseTier(cfg.DefaultTier)
	if err != nil {
		return nil, err
	}

	prices := make(billing.PriceMap, len(cfg.PriceMap))
	for priceID, tierName := range cfg.PriceMap {
		tier, err := entitlement.ParseTier(tierName)
		if err != nil {
			return nil, err
		}
		prices[priceID] = tier
	}
	return billing.NewResolver(prices, defaultTier)
}

// currentUserFromHeader trusts the identity header stamped by the
// authenticating gateway in front of this service and resolves it to a
// membership record.
func currentUserFromHeader(members *membership.Service) claims.CurrentUser {
	return func(r *http.Request) (*membership.User, error) {
		email := r.Header.Get("X-User-Email")
		if email == "" {
			return nil, errors.New("missing identity header")
		}
		return members.UserByEmail(r.Context(), email)
	}
}

func adminTokenAuthorizer(token string) admin.Authorizer {
	return func(r *http.Request) error {
		got := r.Header.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return errors.New("invalid admin token")
		}
		return nil
	}
}

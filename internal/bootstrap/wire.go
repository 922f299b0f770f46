package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/orgnet-app/identity-service/internal/config"
	"github.com/orgnet-app/identity-service/internal/identity"
	"github.com/orgnet-app/identity-service/internal/infrastructure/db/postgres"
	"github.com/orgnet-app/identity-service/internal/infrastructure/memory"
	rabbitmq_pub "github.com/orgnet-app/identity-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/orgnet-app/identity-service/internal/infrastructure/redis"
	"github.com/orgnet-app/identity-service/internal/infrastructure/security"
	"github.com/orgnet-app/identity-service/internal/logger"
	http_handlers "github.com/orgnet-app/identity-service/internal/transport/http/handlers"
	"github.com/orgnet-app/identity-service/internal/transport/http/middleware"
	"github.com/orgnet-app/identity-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(addr string, debug bool) (DBCloser, error)

	NewRedis func(addr, password string, db int) RedisClient

	NewPublisher func(rabbitURL string) (Publisher, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

type DBCloser interface {
	Close() error
}

type RedisClient interface {
	Ping(ctx context.Context) error
	Close() error
}

type Publisher interface{}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	// 1) db
	db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
	if err != nil {
		return nil, nil, err
	}

	cleanupFns := []func(){
		func() { _ = db.Close() },
	}

	sqlDB, ok := db.(*sql.DB)
	if !ok {
		runCleanup(cleanupFns)
		return nil, nil, errors.New("bootstrap: NewDB did not return *sql.DB")
	}

	// 2) storage layer
	profileRepo := postgres.NewProfileRepo(sqlDB)
	rekeyer := postgres.NewReKeyer(sqlDB, cfg.ReKeyTimeout)
	scope := postgres.NewSessionScope(sqlDB)
	scopedProfiles := postgres.NewScopedProfiles(scope)

	// 3) redis (best-effort)
	var redisCli RedisClient
	if deps.NewRedis != nil && cfg.RedisAddr != "" {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := c.Ping(ctx); err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; profile cache disabled")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
	}

	// wrap repo + rekeyer with cache
	var profiles identity.ProfileRepo = profileRepo
	var rekey identity.ReKeyer = rekeyer
	if redisCli != nil {
		cached := redis.NewCachedProfileRepo(
			profileRepo,
			rekeyer,
			redisCli.(*redis.Client),
			cfg.ProfileCacheTTL,
		)
		profiles = cached
		rekey = cached
	}

	// 4) publisher
	var pub Publisher
	if deps.NewPublisher != nil && cfg.RabbitURL != "" {
		pub, err = deps.NewPublisher(cfg.RabbitURL)
		if err != nil {
			if cfg.Env == "dev" {
				logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; using noop publisher")
				pub = memory.NewNoopPublisher()
			} else {
				runCleanup(cleanupFns)
				return nil, nil, err
			}
		}
	} else {
		pub = memory.NewNoopPublisher()
	}

	if c, ok := pub.(interface{ Close() error }); ok {
		cleanupFns = append(cleanupFns, func() { _ = c.Close() })
	}

	// 5) token verification
	logger.Logger.Info().Str("issuer", cfg.IdPIssuer).Msg("initializing idp token verifier")
	verifier := security.NewIdPVerifier(cfg.IdPSecret, cfg.IdPIssuer, cfg.IdPAudience)

	// schema + seed (dev only)
	if cfg.Env == "dev" {
		if err := postgres.EnsureSchema(context.Background(), sqlDB); err != nil {
			logger.Logger.Warn().Err(err).Msg("schema apply failed")
		} else {
			postgres.SeedDev(context.Background(), sqlDB)
		}
	}

	// 6) service
	svc := identity.NewService(profiles, rekey, pub.(identity.EventPublisher)).
		WithScoped(scopedProfiles).
		WithAudit(func(action string, fields map[string]string) {
			evt := logger.Logger.Info().
				Bool("audit", true).
				Str("action", action)
			for k, v := range fields {
				evt = evt.Str(k, v)
			}
			evt.Msg("audit")
		})

	// 7) handlers + middleware
	identityH := http_handlers.NewIdentityHandler(svc)
	healthH := http_handlers.NewHealthHandler(sqlDB)

	// Unauthenticated requests get a bare 401; token internals never leak
	// into response bodies.
	authMW := middleware.Auth(verifier, func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	// 8) router
	mux, err := deps.NewRouter(router.Deps{
		Health:   healthH,
		Identity: identityH,
		AuthMW:   authMW,
	})
	if err != nil {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 9) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB: func(addr string, debug bool) (DBCloser, error) {
			return config.NewDB(addr, debug)
		},
		NewRedis: func(addr, password string, db int) RedisClient {
			return redis.New(addr, password, db)
		},
		NewPublisher: func(url string) (Publisher, error) {
			return rabbitmq_pub.NewPublisher(url)
		},
		NewRouter: func(d router.Deps) (http.Handler, error) {
			return router.New(d)
		},
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

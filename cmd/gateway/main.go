package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lms-edge/internal/audit"
	"lms-edge/internal/cache"
	"lms-edge/internal/config"
	"lms-edge/internal/files"
	"lms-edge/internal/httpapi"
	"lms-edge/internal/identity"
	"lms-edge/internal/permissions"
	"lms-edge/internal/proxy"
	"lms-edge/internal/session"
	"lms-edge/internal/token"
	"lms-edge/pkg/logger"
	"lms-edge/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Missing .env is fine; real deployments inject env directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	codec, err := token.NewCodec(cfg.Auth)
	if err != nil {
		log.Error("token codec init failed", "err", err)
		os.Exit(1)
	}

	// DB and redis are both optional: without them the gateway still
	// gates, refreshes and proxies; it just loses logout-all, durable
	// audit, the shared cache and the login limiter.
	var db *sql.DB
	if cfg.HasDB() {
		db, err = utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	var rdb *goredis.Client
	if cfg.HasRedis() {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
	}

	var identities identity.Store
	var permStore permissions.Store
	auditRepo := audit.Repository(audit.NewMemoryRepo())
	if db != nil {
		identities = identity.NewPGStore(db)
		permStore = permissions.NewPGStore(db)
		auditRepo = audit.NewPGRepo(db)
	}

	permCache := cache.Client(cache.NewMemory())
	var limiter *utils.RateLimiter
	if rdb != nil {
		permCache = cache.NewRedis(rdb, "lms-edge")
		limiter, err = utils.NewRateLimiter(rdb, "login", 10, time.Minute)
		if err != nil {
			log.Error("rate limiter init failed", "err", err)
			os.Exit(1)
		}
	}

	backend := proxy.New(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout)
	refresher := session.NewRefresher(codec, identities, 5*time.Second)
	policy := session.CookiePolicy{Secure: cfg.IsProduction()}

	var perms *permissions.Service
	if permStore != nil {
		perms = permissions.NewService(permStore, permCache, permissions.DefaultTTL)
	}

	var fixtures *identity.FixtureProvider
	if !cfg.IsProduction() {
		fixtures = identity.NewFixtureProvider(cfg.Auth.RequireTestPassword)
	}

	h := httpapi.Handlers{
		Codec:       codec,
		Policy:      policy,
		Refresher:   refresher,
		Proxy:       backend,
		Identities:  identities,
		Fixtures:    fixtures,
		Permissions: perms,
		Audit:       audit.NewService(auditRepo),
		Limiter:     limiter,
		Production:  cfg.IsProduction(),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		handlers: h,
		gate: session.GateConfig{
			Policy:    policy,
			Codec:     codec,
			Refresher: refresher,
			Disabled:  cfg.App.DisableRoleMiddleware,
		},
		files: files.NewServer(cfg.Files.StorageRoots, backend),
		db:    db,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("gateway listening", "addr", srv.Addr, "env", cfg.App.Env, "backend", cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

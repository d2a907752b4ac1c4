package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keystone-iam/keystone/internal/access"
	"github.com/keystone-iam/keystone/internal/app"
	"github.com/keystone-iam/keystone/internal/auth"
	"github.com/keystone-iam/keystone/internal/bootstrap"
	"github.com/keystone-iam/keystone/internal/groups"
	"github.com/keystone-iam/keystone/internal/modules"
	"github.com/keystone-iam/keystone/internal/observability"
	"github.com/keystone-iam/keystone/internal/permissions"
	"github.com/keystone-iam/keystone/internal/platform/cache"
	"github.com/keystone-iam/keystone/internal/platform/db"
	"github.com/keystone-iam/keystone/internal/roles"
	"github.com/keystone-iam/keystone/internal/shared"
	"github.com/keystone-iam/keystone/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if err := bootstrap.Migrate(ctx, dbpool); err != nil {
		logger.Error("apply schema", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.BootstrapSeed {
		if err := bootstrap.Seed(ctx, logger, dbpool); err != nil {
			logger.Error("seed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "keystone_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	accessRepo := access.NewRepository(dbpool)
	accessService := access.NewService(accessRepo)
	gate := access.Middleware{Checker: accessService, Logger: logger, Metrics: metrics}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, auditLogger)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, auditLogger)
	usersHandler := users.NewHandler(logger, usersService, gate)

	groupsRepo := groups.NewRepository(dbpool)
	groupsService := groups.NewService(groupsRepo, auditLogger)
	groupsHandler := groups.NewHandler(logger, groupsService, gate)

	rolesRepo := roles.NewRepository(dbpool)
	rolesService := roles.NewService(rolesRepo, auditLogger)
	rolesHandler := roles.NewHandler(logger, rolesService, gate)

	modulesRepo := modules.NewRepository(dbpool)
	modulesService := modules.NewService(modulesRepo, auditLogger)
	modulesHandler := modules.NewHandler(logger, modulesService, gate)

	permissionsRepo := permissions.NewRepository(dbpool)
	permissionsService := permissions.NewService(permissionsRepo, auditLogger)
	permissionsHandler := permissions.NewHandler(logger, permissionsService, gate)

	accessHandler := access.NewHandler(logger, accessService, gate)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		GroupsHandler:      groupsHandler,
		RolesHandler:       rolesHandler,
		ModulesHandler:     modulesHandler,
		PermissionsHandler: permissionsHandler,
		AccessHandler:      accessHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

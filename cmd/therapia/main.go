package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/therapia-health/therapia/internal/app"
	"github.com/therapia-health/therapia/internal/appointments"
	"github.com/therapia-health/therapia/internal/audit"
	"github.com/therapia-health/therapia/internal/auth"
	"github.com/therapia-health/therapia/internal/clinics"
	"github.com/therapia-health/therapia/internal/exercises"
	"github.com/therapia-health/therapia/internal/guard"
	"github.com/therapia-health/therapia/internal/impersonate"
	"github.com/therapia-health/therapia/internal/isolation"
	"github.com/therapia-health/therapia/internal/observability"
	"github.com/therapia-health/therapia/internal/patients"
	"github.com/therapia-health/therapia/internal/payments"
	"github.com/therapia-health/therapia/internal/platform/cache"
	"github.com/therapia-health/therapia/internal/platform/db"
	"github.com/therapia-health/therapia/internal/profile"
	"github.com/therapia-health/therapia/internal/shared"
	"github.com/therapia-health/therapia/internal/users"
	"github.com/therapia-health/therapia/jobs"
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

	sessionManager := shared.NewSessionManager(redisClient, "therapia_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	recorder := audit.NewRecorder(dbpool, logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	profileRepo := profile.NewRepository(dbpool)
	resolver := profile.NewResolver(profile.SessionManagerProvider{Manager: sessionManager}, profileRepo, logger)
	impersonator := impersonate.NewManager(logger)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, sessionManager, cfg.LogoutTimeout, logger)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	patientsRepo := patients.NewRepository(dbpool)
	patientsService := patients.NewService(patientsRepo, recorder, logger)
	patientsHandler := patients.NewHandler(logger, patientsService)

	appointmentsRepo := appointments.NewRepository(dbpool)
	appointmentsService := appointments.NewService(appointmentsRepo, jobClient, recorder, logger)
	appointmentsHandler := appointments.NewHandler(logger, appointmentsService)

	paymentsRepo := payments.NewRepository(dbpool)
	paymentsService := payments.NewService(paymentsRepo, idempotencyStore, recorder, logger)
	paymentsHandler := payments.NewHandler(logger, paymentsService)

	exercisesRepo := exercises.NewRepository(dbpool)
	exercisesService := exercises.NewService(exercisesRepo, recorder, logger)
	exercisesHandler := exercises.NewHandler(logger, exercisesService)

	usersService := users.NewService(profileRepo, recorder, logger)
	usersHandler := users.NewHandler(logger, usersService)

	clinicsService := clinics.NewService(clinics.NewRepository(dbpool), recorder, logger)
	clinicsHandler := clinics.NewHandler(logger, clinicsService)

	impersonationHandler := impersonate.NewHandler(logger, impersonator, recorder)

	isolationStore := isolation.NewRepoStore(patientsRepo, appointmentsRepo, paymentsRepo, exercisesRepo)
	auditor := isolation.NewAuditor(isolationStore, logger)
	isolationHandler := isolation.NewHandler(logger, auditor, jobClient)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	routeGuard := guard.Middleware{
		Policies:    guard.DefaultPolicies(),
		Resolver:    resolver,
		Impersonate: impersonator,
		Redirector:  guard.Redirector{BaseURL: cfg.PublicBaseURL},
		Denials:     metrics,
		Logger:      logger,
	}

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SessionManager:       sessionManager,
		CSRFManager:          csrfManager,
		Guard:                routeGuard,
		AuthHandler:          authHandler,
		PatientsHandler:      patientsHandler,
		AppointmentsHandler:  appointmentsHandler,
		PaymentsHandler:      paymentsHandler,
		ExercisesHandler:     exercisesHandler,
		UsersHandler:         usersHandler,
		ClinicsHandler:       clinicsHandler,
		ImpersonationHandler: impersonationHandler,
		IsolationHandler:     isolationHandler,
		JobHandler:           jobHandler,
		Metrics:              metrics,
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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/domain/accessrequest"
	"github.com/medvault/medvault/internal/domain/auditlog"
	"github.com/medvault/medvault/internal/domain/identity"
	"github.com/medvault/medvault/internal/domain/notes"
	"github.com/medvault/medvault/internal/domain/portal"
	"github.com/medvault/medvault/internal/domain/records"
	"github.com/medvault/medvault/internal/domain/scheduling"
	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/db"
	"github.com/medvault/medvault/internal/platform/filestore"
	"github.com/medvault/medvault/internal/platform/middleware"
	"github.com/medvault/medvault/internal/platform/notification"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medvault-server",
		Short: "Medical records portal API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// repositories is the storage backend selected at startup: either the pgx
// pool set or the in-memory set, never mixed.
type repositories struct {
	users     identity.UserRepository
	access    accessrequest.Repository
	records   records.Repository
	notes     notes.Repository
	audit     auditlog.Repository
	reminders scheduling.Repository

	backend string
	pinger  db.Pinger
}

type memPinger struct{}

func (memPinger) Ping(context.Context) error { return nil }

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()

	var repos repositories
	if cfg.DatabaseURL != "" && db.Probe(ctx, cfg.DatabaseURL) {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		repos = repositories{
			users:     identity.NewUserRepoPG(pool),
			access:    accessrequest.NewRepoPG(pool),
			records:   records.NewRepoPG(pool),
			notes:     notes.NewRepoPG(pool),
			audit:     auditlog.NewRepoPG(pool),
			reminders: scheduling.NewRepoPG(pool),
			backend:   "postgres",
			pinger:    pool,
		}
		logger.Info().Msg("connected to postgres")
	} else {
		userRepo := identity.NewUserRepoMem()
		names := func(ctx context.Context, userID int64) (string, error) {
			u, err := userRepo.GetByID(ctx, userID)
			if err != nil {
				return "", err
			}
			return u.Username, nil
		}

		repos = repositories{
			users:   userRepo,
			access:  accessrequest.NewRepoMem(names),
			records: records.NewRepoMem(names),
			notes: notes.NewRepoMem(func(ctx context.Context, userID int64) (string, string, error) {
				u, err := userRepo.GetByID(ctx, userID)
				if err != nil {
					return "", "", err
				}
				return u.Username, u.Email, nil
			}),
			audit: auditlog.NewRepoMem(),
			reminders: scheduling.NewRepoMem(func(ctx context.Context, userID int64) (string, string, error) {
				u, err := userRepo.GetByID(ctx, userID)
				if err != nil {
					return "", "", err
				}
				return u.Username, u.PhoneNumber, nil
			}),
			backend: "memory",
			pinger:  memPinger{},
		}
		logger.Warn().Msg("database unreachable, using in-memory storage; data will not survive restarts")
	}

	store, err := filestore.NewLocalStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("failed to prepare upload directory")
	}

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL())

	var sender notification.SMSSender
	if cfg.SMSEnabled() {
		sender = notification.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber)
		logger.Info().Msg("twilio SMS sender configured")
	} else {
		sender = notification.NewDisabledSender(logger)
		logger.Warn().Msg("twilio credentials missing, SMS notifications disabled")
	}
	dispatcher := notification.NewDispatcher(sender, notification.NewTemplateEngine(), logger)

	// Services. Identity and access reference each other, so the access
	// lookup is wired in after both exist.
	identitySvc := identity.NewService(repos.users, issuer)
	if cfg.GoogleClientID != "" {
		identitySvc.SetGoogleVerifier(auth.NewGoogleVerifier(cfg.GoogleClientID))
	}
	auditSvc := auditlog.NewService(repos.audit, logger)
	accessSvc := accessrequest.NewService(repos.access, identitySvc, auditSvc, dispatcher, logger)
	identitySvc.SetAccessLookup(accessSvc)
	recordsSvc := records.NewService(repos.records, store, identitySvc, accessSvc, auditSvc, logger)
	notesSvc := notes.NewService(repos.notes, identitySvc, auditSvc, logger)
	schedSvc := scheduling.NewService(repos.reminders, identitySvc, accessSvc, auditSvc, dispatcher, logger)
	portalSvc := portal.NewService(recordsSvc, accessSvc)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit(1<<20, 12<<20))
	e.Use(middleware.RequestTimeout(30 * time.Second))

	pub := e.Group("")
	api := e.Group("", auth.JWTMiddleware(issuer))

	identity.NewHandler(identitySvc).RegisterRoutes(pub, api)
	accessrequest.NewHandler(accessSvc).RegisterRoutes(api)
	records.NewHandler(recordsSvc).RegisterRoutes(api)
	notes.NewHandler(notesSvc).RegisterRoutes(api)
	scheduling.NewHandler(schedSvc).RegisterRoutes(api)
	portal.NewHandler(portalSvc).RegisterRoutes(api)
	auditlog.NewHandler(auditSvc).RegisterRoutes(api)

	e.GET("/health", db.HealthHandler(repos.backend, repos.pinger))
	e.Static("/uploads", store.Dir())

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("backend", repos.backend).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// errorHandler renders every error as {"error": message}. A storage outage
// surfaces as 503 so clients can tell it from an internal bug; everything
// else unhandled is logged with detail but leaves the process as a generic
// message.
func errorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := "internal server error"
		switch he, ok := err.(*echo.HTTPError); {
		case ok:
			code = he.Code
			msg = fmt.Sprint(he.Message)
		case errors.Is(err, db.ErrUnavailable):
			code = http.StatusServiceUnavailable
			msg = "storage backend unavailable"
			logger.Error().Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("storage backend unavailable")
		default:
			logger.Error().Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

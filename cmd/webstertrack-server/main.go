package main

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
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

	"github.com/webstertrack/webstertrack/internal/config"
	"github.com/webstertrack/webstertrack/internal/domain/allergy"
	"github.com/webstertrack/webstertrack/internal/domain/medication"
	"github.com/webstertrack/webstertrack/internal/domain/patient"
	"github.com/webstertrack/webstertrack/internal/domain/websterpack"
	"github.com/webstertrack/webstertrack/internal/platform/db"
	"github.com/webstertrack/webstertrack/internal/platform/middleware"
	"github.com/webstertrack/webstertrack/internal/platform/session"
	"github.com/webstertrack/webstertrack/internal/platform/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "webstertrack-server",
		Short: "Webster pack tracking API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

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
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for migrations")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
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
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for migrations")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
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

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo data into the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := context.Background()
			client, cleanup, err := buildStoreClient(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			return seedDemoData(ctx, client)
		},
	}
}

// buildStoreClient constructs the configured store backend. The returned
// cleanup releases any underlying pool.
func buildStoreClient(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (store.Client, func(), error) {
	switch cfg.ResolvedStoreBackend() {
	case "rest":
		return store.NewRest(cfg.StoreURL, cfg.StoreAPIKey, logger), func() {}, nil
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return store.NewPG(pool), pool.Close, nil
	default:
		return store.NewMemory(), func() {}, nil
	}
}

// seedDemoData inserts a small demo data set: two patients with
// allergies, medications, and webster packs including the WP12345
// scanner fixture.
func seedDemoData(ctx context.Context, client store.Client) error {
	pharmacist := "mock-user-id"
	now := time.Now().UTC()

	insert := func(table string, row map[string]interface{}, dest interface{}) error {
		if err := client.Insert(ctx, table, row, dest); err != nil {
			return fmt.Errorf("seed %s: %w", table, err)
		}
		return nil
	}

	var alice, bob patient.Patient
	if err := insert("patients", map[string]interface{}{
		"name": "Alice Nguyen", "email": "alice@example.com", "phone": "0400 111 222",
		"date_of_birth": "1948-03-12", "pharmacist_id": pharmacist,
	}, &alice); err != nil {
		return err
	}
	if err := insert("patients", map[string]interface{}{
		"name": "Bob Carter", "email": "bob@example.com", "phone": "0400 333 444",
		"date_of_birth": "1955-09-30", "pharmacist_id": pharmacist,
	}, &bob); err != nil {
		return err
	}

	if err := insert("patient_allergies", map[string]interface{}{
		"patient_id": alice.ID, "allergy": "Penicillin",
	}, nil); err != nil {
		return err
	}

	var metformin, atorvastatin medication.Medication
	if err := insert("medications", map[string]interface{}{
		"patient_id": alice.ID, "name": "Metformin", "dosage": "500mg",
		"frequency": "twice daily", "start_date": "2026-01-05", "active": true,
	}, &metformin); err != nil {
		return err
	}
	if err := insert("medications", map[string]interface{}{
		"patient_id": alice.ID, "name": "Atorvastatin", "dosage": "20mg",
		"frequency": "nightly", "start_date": "2026-02-01", "active": true,
	}, &atorvastatin); err != nil {
		return err
	}

	var pack websterpack.WebsterPack
	if err := insert("webster_packs", map[string]interface{}{
		"barcode": "WP12345", "patient_id": alice.ID, "pharmacist_id": pharmacist,
		"status": websterpack.StatusPending, "timestamp": now,
	}, &pack); err != nil {
		return err
	}
	if err := insert("webster_packs", map[string]interface{}{
		"barcode": "WP67890", "patient_id": bob.ID, "pharmacist_id": pharmacist,
		"status": websterpack.StatusCompleted, "timestamp": now.Add(-7 * 24 * time.Hour),
	}, nil); err != nil {
		return err
	}

	for _, medID := range []string{metformin.ID, atorvastatin.ID} {
		if err := insert("webster_pack_medications", map[string]interface{}{
			"webster_pack_id": pack.ID, "medication_id": medID,
		}, nil); err != nil {
			return err
		}
	}

	fmt.Println("Seeded 2 patients, 2 medications, 2 webster packs.")
	return nil
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	// Store backend
	var client store.Client
	var restClient *store.Rest
	switch backend := cfg.ResolvedStoreBackend(); backend {
	case "rest":
		restClient = store.NewRest(cfg.StoreURL, cfg.StoreAPIKey, logger)
		client = restClient
		logger.Info().Str("backend", backend).Str("url", cfg.StoreURL).Msg("using hosted store")
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		client = store.NewPG(pool)
		logger.Info().Str("backend", backend).Msg("connected to database")
	default:
		client = store.NewMemory()
		logger.Warn().Msg("using in-memory store, data will not survive restart")
	}

	// Auth client
	var authClient store.AuthClient
	switch cfg.ResolvedAuthMode() {
	case "provider":
		restAuth := store.NewRestAuth(cfg.StoreURL, cfg.StoreAPIKey, logger)
		if restClient != nil {
			restClient.SetTokenProvider(restAuth.AccessToken)
		}
		authClient = restAuth
		logger.Info().Msg("using hosted auth provider")
	default:
		secret := cfg.SessionSecret
		if secret == "" {
			buf := make([]byte, 32)
			if _, err := crypto_rand.Read(buf); err != nil {
				logger.Fatal().Err(err).Msg("failed to generate session secret")
			}
			secret = hex.EncodeToString(buf)
		}
		authClient = store.NewMockAuth(secret, store.NewSessionFile(cfg.SessionFile), logger)
		logger.Info().Msg("using mock auth, any credentials are accepted")
	}

	// Session manager
	mgr := session.NewManager(authClient, client, logger)
	mgr.Start(ctx)
	defer mgr.Close()

	readyCtx, cancelReady := context.WithTimeout(ctx, 10*time.Second)
	if err := mgr.WaitReady(readyCtx); err != nil {
		logger.Warn().Err(err).Msg("initial session check did not settle in time")
	}
	cancelReady()

	// Entity services
	patientSvc := patient.NewService(client, logger)
	allergySvc := allergy.NewService(client, logger)
	medicationSvc := medication.NewService(client, logger)
	packSvc := websterpack.NewService(client, patientSvc, medicationSvc, logger)

	// Shared entity states, re-scoped on every auth transition
	patientState := patient.NewState(patientSvc)
	allergyStates := allergy.NewStates(allergySvc)
	medicationStates := medication.NewStates(medicationSvc)
	packStates := websterpack.NewStates(packSvc)

	rescope := func(u *session.User) {
		uid := ""
		if u != nil {
			uid = u.ID
		}
		patientState.SetUser(ctx, uid)
		allergyStates.SetUser(ctx, uid)
		medicationStates.SetUser(ctx, uid)
		packStates.SetUser(ctx, uid)
	}
	unsubscribe := mgr.OnChange(rescope)
	defer unsubscribe()
	rescope(mgr.CurrentUser())

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	// API groups: auth routes are open, entity routes need a session
	apiV1 := e.Group("/api/v1")
	session.NewHandler(mgr).RegisterRoutes(apiV1)

	entities := apiV1.Group("", session.RequireUser(mgr))
	patient.NewHandler(patientState).RegisterRoutes(entities)
	allergy.NewHandler(allergyStates).RegisterRoutes(entities)
	medication.NewHandler(medicationStates, medicationSvc).RegisterRoutes(entities)
	websterpack.NewHandler(packStates, packSvc).RegisterRoutes(entities)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
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

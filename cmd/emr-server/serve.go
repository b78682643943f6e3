package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/WailSalutem-Health-Care/emr-service/internal/assessment"
	"github.com/WailSalutem-Health-Care/emr-service/internal/auth"
	"github.com/WailSalutem-Health-Care/emr-service/internal/blobstore"
	"github.com/WailSalutem-Health-Care/emr-service/internal/cache"
	"github.com/WailSalutem-Health-Care/emr-service/internal/db"
	"github.com/WailSalutem-Health-Care/emr-service/internal/extraction"
	apihttp "github.com/WailSalutem-Health-Care/emr-service/internal/http"
	"github.com/WailSalutem-Health-Care/emr-service/internal/logging"
	"github.com/WailSalutem-Health-Care/emr-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/emr-service/internal/patient"
	"github.com/WailSalutem-Health-Care/emr-service/internal/telemetry"
	"github.com/WailSalutem-Health-Care/emr-service/internal/tenant"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the EMR API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return runServer(cmd.Context(), migrate)
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	return cmd
}

func runServer(parent context.Context, migrate bool) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	telCfg, err := telemetry.LoadConfig()
	if err != nil {
		return err
	}
	provider, err := telemetry.InitProvider(ctx, telCfg)
	if err != nil {
		log.Warn().Err(err).Msg("telemetry unavailable, continuing without export")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("telemetry shutdown failed")
			}
		}()
	}
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize metrics")
		metrics = nil
	}

	// Database
	handle := openHandle(cfg.DB)
	defer handle.Close()
	if migrate {
		conn, err := handle.DB(ctx)
		if err != nil {
			return err
		}
		if _, err := db.NewMigrator(conn, logging.New("migrate")).Up(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	// Cache and blob storage
	c := cache.New(cfg.Redis)
	defer c.Close()

	store, err := blobstore.New(cfg.S3, logging.New("blobstore"))
	if err != nil {
		return err
	}

	// Events are optional; without a broker they are dropped.
	var publisher messaging.PublisherInterface
	if cfg.RabbitMQURL != "" {
		p, err := messaging.NewPublisher(cfg.RabbitMQURL, logging.New("messaging"))
		if err != nil {
			log.Warn().Err(err).Msg("RabbitMQ unavailable, events will not be published")
		} else {
			publisher = p
			defer p.Close()
		}
	}

	// Auth
	authCfg := auth.Config{Issuer: cfg.Auth.Issuer, JWKSURL: cfg.Auth.JWKSURL, Audience: cfg.Auth.Audience}
	if err := authCfg.Validate(); err != nil {
		return err
	}
	jwks, err := auth.NewJWKS(cfg.Auth.JWKSURL, cfg.Auth.JWKSRefresh, logging.New("jwks"))
	if err != nil {
		return fmt.Errorf("failed to load JWKS: %w", err)
	}
	defer jwks.Close()

	perms, err := auth.LoadPermissions(cfg.Auth.PermissionsFile)
	if err != nil {
		return fmt.Errorf("failed to load permissions: %w", err)
	}

	// AI
	gen, err := extraction.NewGeminiGenerator(ctx, cfg.AI.APIKey, cfg.AI.Model)
	if err != nil {
		return err
	}

	// Domain services
	tenantLog := logging.New("tenant")
	tenants := tenant.NewService(tenant.NewRepository(handle, tenantLog), c, publisher, metrics, tenantLog)

	patientLog := logging.New("patient")
	patients := patient.NewService(patient.NewRepository(handle, patientLog), publisher, metrics, patientLog)

	assessmentLog := logging.New("assessment")
	assessments := assessment.NewService(assessment.NewRepository(handle, assessmentLog), publisher, metrics, assessmentLog)

	ai := extraction.NewService(gen, c, store, publisher, metrics, extraction.Config{
		Model:    cfg.AI.Model,
		Timeout:  cfg.AI.Timeout,
		CacheTTL: cfg.AI.CacheTTL,
	}, logging.New("extraction"))

	router := apihttp.SetupRouter(apihttp.Dependencies{
		Tenants:        tenants,
		Resolver:       tenant.NewResolver(tenants, cfg.Tenancy, logging.New("resolver")),
		Patients:       patients,
		Assessments:    assessments,
		Extraction:     ai,
		Records:        patients,
		Verifier:       auth.NewVerifier(authCfg, jwks),
		Permissions:    perms,
		Metrics:        metrics,
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            logging.New("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("environment", cfg.Environment).Msg("emr-server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/WailSalutem-Health-Care/emr-service/internal/cache"
	"github.com/WailSalutem-Health-Care/emr-service/internal/config"
	"github.com/WailSalutem-Health-Care/emr-service/internal/db"
	"github.com/WailSalutem-Health-Care/emr-service/internal/logging"
	"github.com/WailSalutem-Health-Care/emr-service/internal/tenant"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "emr-server",
		Short:         "Multi-tenant EMR API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(cleanupCmd())
	rootCmd.AddCommand(tenantCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads configuration and configures logging for any subcommand.
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Logger{}, err
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	return cfg, logging.New("emr-server"), nil
}

func openHandle(cfg config.DB) *db.Handle {
	log := logging.New("db")
	return db.NewHandle(func(ctx context.Context) (*sql.DB, error) {
		return db.Connect(ctx, cfg, log)
	})
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending platform migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			handle := openHandle(cfg.DB)
			defer handle.Close()

			ctx := cmd.Context()
			conn, err := handle.DB(ctx)
			if err != nil {
				return err
			}

			count, err := db.NewMigrator(conn, logging.New("migrate")).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			log.Info().Int("applied", count).Msg("migrations complete")
			return nil
		},
	}
}

func cleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Purge tenants soft-deleted longer than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			cfg, log, err := setup()
			if err != nil {
				return err
			}

			handle := openHandle(cfg.DB)
			defer handle.Close()

			c := cache.New(cfg.Redis)
			defer c.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			cleanup := tenant.NewCleanupService(handle, c, logging.New("cleanup"))

			count, err := cleanup.ExpiredCount(ctx)
			if err != nil {
				return fmt.Errorf("failed to count expired tenants: %w", err)
			}
			log.Info().
				Int("eligible", count).
				Dur("retention", tenant.RetentionPeriod).
				Msg("tenants eligible for permanent deletion")

			if count == 0 || dryRun {
				return nil
			}

			deleted, err := cleanup.CleanupExpiredTenants(ctx)
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}
			log.Info().Int("deleted", deleted).Msg("cleanup complete")
			return nil
		},
	}
	cmd.Flags().Bool("dry-run", false, "Only report how many tenants would be purged")
	return cmd
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Provision a tenant and its schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			subdomain, _ := cmd.Flags().GetString("subdomain")
			email, _ := cmd.Flags().GetString("email")

			cfg, _, err := setup()
			if err != nil {
				return err
			}

			handle := openHandle(cfg.DB)
			defer handle.Close()

			c := cache.New(cfg.Redis)
			defer c.Close()

			log := logging.New("tenant")
			svc := tenant.NewService(tenant.NewRepository(handle, log), c, nil, nil, log)

			t, err := svc.CreateTenant(cmd.Context(), tenant.CreateTenantRequest{
				Name:         name,
				Subdomain:    subdomain,
				ContactEmail: email,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Created tenant %s (%s) with schema %s\n", t.Name, t.Subdomain, t.SchemaName)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Hospital name")
	createCmd.Flags().String("subdomain", "", "Subdomain label the tenant is served on")
	createCmd.Flags().String("email", "", "Contact email")
	createCmd.MarkFlagRequired("name")
	createCmd.MarkFlagRequired("subdomain")

	cmd.AddCommand(createCmd)
	return cmd
}

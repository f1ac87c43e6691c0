package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"vaxsync/internal/core/config"
	"vaxsync/internal/core/container"
	"vaxsync/internal/core/logger"
	"vaxsync/internal/core/routes"
	"vaxsync/internal/database"
	"vaxsync/internal/inventory/ledger"
	"vaxsync/internal/repository"
	"vaxsync/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	version          = "1.0.0"
	shutdownTimeout  = 10 * time.Second
	rateLimiterSweep = time.Minute
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vaxsync",
		Short:         "VaxSync vaccine inventory and reservation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd(), newMigrateCmd(), newRecalculateCmd())
	return rootCmd
}

func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// setup loads configuration and builds the logger shared by all commands.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			if err := cfg.ValidateServe(); err != nil {
				return err
			}

			ctx := cmd.Context()
			if runMigrations, _ := cmd.Flags().GetBool("migrate"); runMigrations {
				if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir, log); err != nil {
					return fmt.Errorf("migrate database: %w", err)
				}
			}

			db, err := database.NewPostgresConnection(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			log.Info("Connected to the database successfully")

			c, err := container.NewAppContainer(ctx, db, cfg, version, log)
			if err != nil {
				return err
			}
			go c.RateLimiter.Run(ctx, rateLimiterSweep)

			gin.SetMode(gin.ReleaseMode)
			router := routes.NewRouter(log, cfg.RequestTimeout)
			routes.RegisterUtilityRoutes(router, c)
			routes.RegisterPublicRoutes(router, c)
			routes.RegisterProtectedRoutes(router, c, []byte(cfg.JWTSecret))

			return serve(ctx, &http.Server{Addr: cfg.AppHost, Handler: router}, log)
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, server *http.Server, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh
	return nil
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run migrations manually.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			migrationDir, _ := cmd.Flags().GetString("dir")
			if migrationDir == "" {
				migrationDir = cfg.MigrationsDir
			}

			if err := database.RunMigrations(cfg.DatabaseURL, migrationDir, log); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().String("dir", "", "Directory containing the migration files (defaults to MIGRATIONS_DIR)")
	return cmd
}

func newRecalculateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recalculate",
		Short: "Recompute reserved doses for one barangay and vaccine.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			barangayID, _ := cmd.Flags().GetInt("barangay")
			vaccineID, _ := cmd.Flags().GetInt("vaccine")
			if barangayID <= 0 || vaccineID <= 0 {
				return errors.New("--barangay and --vaccine must be positive ids")
			}

			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			db, err := database.NewPostgresConnection(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			return recalculate(ctx, cmd, container.NewLedger(repository.NewRepository(db), cfg, log),
				models.LotKey{BarangayID: barangayID, VaccineDoseID: vaccineID})
		},
	}
	cmd.Flags().Int("barangay", 0, "Barangay id")
	cmd.Flags().Int("vaccine", 0, "Vaccine dose id")
	_ = cmd.MarkFlagRequired("barangay")
	_ = cmd.MarkFlagRequired("vaccine")
	return cmd
}

func recalculate(ctx context.Context, cmd *cobra.Command, l ledger.InventoryLedger, key models.LotKey) error {
	reservation, err := l.RecalculateReserved(ctx, key)
	if err != nil {
		return fmt.Errorf("recalculate %s: %w", key, err)
	}

	cmd.Printf("%s: %d doses reserved across %d lots\n", key, reservation.QuantityReserved, len(reservation.Lots))
	for _, lot := range reservation.Lots {
		cmd.Printf("  lot %d: %d reserved\n", lot.LotID, lot.QuantityReserved)
	}
	return nil
}

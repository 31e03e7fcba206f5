package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/dashboard/internal/config"
	"github.com/ehr/dashboard/internal/domain/dashboard"
	"github.com/ehr/dashboard/internal/domain/dataset"
	"github.com/ehr/dashboard/internal/domain/scope"
	"github.com/ehr/dashboard/internal/platform/auth"
	"github.com/ehr/dashboard/internal/platform/db"
	"github.com/ehr/dashboard/internal/platform/logging"
	"github.com/ehr/dashboard/internal/platform/middleware"
)

const (
	version        = "0.1.0"
	requestTimeout = 30 * time.Second
	auditLogSize   = 500
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "dashboard-server",
		Short:        "Hospital operations dashboard API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(policyCmd())
	rootCmd.AddCommand(scopeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// connect opens the policy database. It fails when DATABASE_URL is unset.
func connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, db.Migrations()).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, db.Migrations()).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printMigrationStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	})

	return cmd
}

func printMigrationStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func policyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and manage the role permission table",
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a permission table file (default: the built-in table)",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			t, err := readPolicy(file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "policy OK: %d roles, %d grants\n", len(t), countGrants(t))
			return nil
		},
	}
	validateCmd.Flags().String("file", "", "Path to a YAML permission table")
	cmd.AddCommand(validateCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the permission table the server would load",
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			t, closeFn, err := policyFromConfig(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			return showPolicy(cmd.OutOrStdout(), t, role)
		},
	}
	showCmd.Flags().String("role", "", "Only list the permissions of this role")
	cmd.AddCommand(showCmd)

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Replace the stored permission table with a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			t, err := auth.LoadPolicyFile(file)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pool, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := auth.NewPolicyStorePG(pool).Replace(ctx, t); err != nil {
				return fmt.Errorf("sync policy: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %d grants from %s.\n", countGrants(t), file)
			return nil
		},
	}
	syncCmd.Flags().String("file", "", "Path to a YAML permission table")
	cmd.AddCommand(syncCmd)

	return cmd
}

// readPolicy loads path, or the built-in table when path is empty.
func readPolicy(path string) (auth.PermissionTable, error) {
	if path == "" {
		return auth.DefaultPermissionTable()
	}
	return auth.LoadPolicyFile(path)
}

func countGrants(t auth.PermissionTable) int {
	n := 0
	for _, perms := range t {
		n += len(perms)
	}
	return n
}

func showPolicy(w io.Writer, t auth.PermissionTable, roleName string) error {
	if roleName == "" {
		out, err := auth.MarshalPolicyYAML(t)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}

	role := auth.ParseRole(roleName)
	if !role.IsKnown() {
		return fmt.Errorf("unknown role %q", roleName)
	}
	for _, p := range t.List(role) {
		fmt.Fprintln(w, p)
	}
	return nil
}

// policyFromConfig loads the permission table from the configured source.
// The returned func releases the database pool, if one was opened.
func policyFromConfig(ctx context.Context, cfg *config.Config) (auth.PermissionTable, func(), error) {
	noop := func() {}
	switch cfg.PolicySource {
	case config.PolicySourceFile:
		t, err := auth.LoadPolicyFile(cfg.PolicyFile)
		return t, noop, err
	case config.PolicySourcePostgres:
		pool, err := connect(ctx, cfg)
		if err != nil {
			return nil, noop, err
		}
		t, err := auth.NewPolicyStorePG(pool).Load(ctx)
		if err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("load policy from database: %w", err)
		}
		return t, pool.Close, nil
	default:
		t, err := auth.DefaultPermissionTable()
		return t, noop, err
	}
}

func scopeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scope",
		Short: "Explain data scoping decisions",
	}

	explainCmd := &cobra.Command{
		Use:   "explain",
		Short: "Print the scope banner a user would see for a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")
			dept, _ := cmd.Flags().GetString("department")
			report, _ := cmd.Flags().GetString("report")
			total, _ := cmd.Flags().GetInt("total")
			filtered, _ := cmd.Flags().GetInt("filtered")
			return explainScope(cmd.OutOrStdout(), role, dept, report, total, filtered)
		},
	}
	explainCmd.Flags().String("role", "", "Role name (Administrator, Doctor, AuxiliaryNurse)")
	explainCmd.Flags().String("department", "", "Department of the user")
	explainCmd.Flags().String("report", string(scope.ReportPatients), "Report type")
	explainCmd.Flags().Int("total", 0, "Number of records before filtering")
	explainCmd.Flags().Int("filtered", 0, "Number of records after filtering")
	cmd.AddCommand(explainCmd)

	return cmd
}

func explainScope(w io.Writer, role, dept, report string, total, filtered int) error {
	if total < 0 || filtered < 0 || filtered > total {
		return fmt.Errorf("counts must satisfy 0 <= filtered <= total, got %d of %d", filtered, total)
	}
	u := &auth.User{ID: "cli", Role: auth.ParseRole(role), Department: dept}
	md := scope.DescribeScope(u, scope.ReportType(report), total, filtered)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(md)
}

// newDataSource returns the fixture file source when path is set, and the
// embedded demo hospital otherwise.
func newDataSource(path string) (dataset.Source, error) {
	if path != "" {
		return dataset.NewFileSource(path), nil
	}
	return dataset.NewEmbeddedSource()
}

// newServer builds the router. pinger may be nil when no database is used.
func newServer(cfg *config.Config, logger zerolog.Logger, checker *auth.Checker, source dataset.Source, pinger db.Pinger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader,
			auth.DevUserHeader, auth.DevRoleHeader, auth.DevDepartmentHeader,
		},
		ExposeHeaders: []string{echo.HeaderContentDisposition, middleware.RequestIDHeader},
	}))

	// Auth middleware
	if cfg.ResolvedAuthMode() == config.AuthModeDevelopment {
		logger.Warn().Msg("development auth enabled: X-Dev-* headers choose the user, never expose this server")
		e.Use(auth.DevAuthMiddleware())
	} else {
		var key []byte
		if cfg.AuthSigningKey != "" {
			key = []byte(cfg.AuthSigningKey)
		}
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: key,
			Skipper:    auth.AuthSkipper,
		}))
	}

	// Audit middleware
	auditLog := middleware.NewAuditLog(auditLogSize)
	e.Use(middleware.Audit(logger, auditLog))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pinger))

	apiV1 := e.Group("/api/v1", middleware.RequestTimeout(requestTimeout), auth.RequireUser())

	svc := dashboard.NewService(source, checker, logger)
	dashboard.NewHandler(svc).RegisterRoutes(apiV1)
	apiV1.GET("/audit", middleware.AuditLogHandler(auditLog), auth.RequirePermission(checker, auth.PermAuditLogsView))

	return e
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Logger
	logger, closer, err := logging.New(cfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closer.Close()

	ctx := context.Background()

	// Database, when configured
	var pinger db.Pinger
	if cfg.DatabaseURL != "" {
		pool, err := connect(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		pinger = pool
		logger.Info().Msg("connected to database")
	}

	// Permission table
	table, closePolicy, err := policyFromConfig(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("source", cfg.PolicySource).Msg("failed to load permission table")
	}
	closePolicy()
	logger.Info().
		Str("source", cfg.PolicySource).
		Int("grants", countGrants(table)).
		Msg("permission table loaded")

	// Dataset
	source, err := newDataSource(cfg.DatasetFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load dataset")
	}
	if _, err := source.Load(ctx); err != nil {
		logger.Fatal().Err(err).Str("file", cfg.DatasetFile).Msg("dataset is not readable")
	}

	e := newServer(cfg, logger, auth.NewChecker(table), source, pinger)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("auth_mode", cfg.ResolvedAuthMode()).Msg("starting server")
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
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

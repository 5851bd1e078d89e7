package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/taskmaster/tracker/internal/adapters/repository/mongodb"
	"github.com/taskmaster/tracker/internal/application/services"
	"github.com/taskmaster/tracker/internal/application/validation"
	"github.com/taskmaster/tracker/internal/infrastructure/config"
	"github.com/taskmaster/tracker/internal/infrastructure/database"
	"github.com/taskmaster/tracker/internal/infrastructure/logger"
	"github.com/taskmaster/tracker/internal/infrastructure/server"
	"github.com/taskmaster/tracker/internal/ports"
)

// Version is set at build time with -ldflags.
var Version = "dev"

const shutdownTimeout = 15 * time.Second

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the API server with all configured routes and middleware",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage the PostgreSQL schema (up, down, version). With the mongo driver, up creates the indexes.",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			return runMigration(cmd.Context(), "up", steps)
		},
	}
	upCmd.Flags().Int("steps", 0, "Number of migrations to apply (0 = all)")

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			return runMigration(cmd.Context(), "down", steps)
		},
	}
	downCmd.Flags().Int("steps", 0, "Number of migrations to revert (0 = all)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showMigrationVersion(cmd)
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, versionCmd)
	return migrateCmd
}

// NewUserCommand creates the user management command
func NewUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
	}

	createUserCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new user",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")

			return createUser(cmd, ports.RegisterRequest{Name: name, Email: email, Password: password})
		},
	}

	createUserCmd.Flags().String("name", "", "Display name (required)")
	createUserCmd.Flags().String("email", "", "User email (required)")
	createUserCmd.Flags().String("password", "", "User password (required)")
	_ = createUserCmd.MarkFlagRequired("email")
	_ = createUserCmd.MarkFlagRequired("password")

	userCmd.AddCommand(createUserCmd)
	return userCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("tracker %s\n", Version)
		},
	}
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(ctxOrBackground(ctx), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := server.OpenStores(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Errorw("Failed to open stores", "error", err, "driver", cfg.Database.Driver)
		return err
	}
	defer stores.Close(context.Background())

	srv, err := server.New(cfg, stores, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	appLogger.Infow("Starting Task Manager Pro API",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	appLogger.Info("Server stopped")
	return nil
}

func newMigrator(cfg *config.Config) (*migrate.Migrate, func(), error) {
	db, err := database.New(cfg.Database.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	driver, err := migratepg.WithInstance(db.DB.DB, &migratepg.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+cfg.Database.Postgres.MigrationsPath, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return m, func() { m.Close() }, nil
}

func runMigration(ctx context.Context, direction string, steps int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	switch cfg.Database.Driver {
	case config.DriverMongo:
		if direction != "up" {
			return fmt.Errorf("mongo driver only supports migrate up")
		}
		return ensureMongoIndexes(ctxOrBackground(ctx), cfg)
	case config.DriverPostgres:
	default:
		return fmt.Errorf("driver %q has no migrations", cfg.Database.Driver)
	}

	m, closeFn, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("No migrations to run")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Printf("Migration %s completed successfully\n", direction)
	return nil
}

func ensureMongoIndexes(ctx context.Context, cfg *config.Config) error {
	m, err := database.NewMongo(ctx, cfg.Database.Mongo)
	if err != nil {
		return err
	}
	defer m.Close(context.Background())

	if err := mongodb.NewUserRepository(m.DB).EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := mongodb.NewTaskRepository(m.DB).EnsureIndexes(ctx); err != nil {
		return err
	}

	fmt.Println("Indexes created successfully")
	return nil
}

func showMigrationVersion(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("driver %q has no migrations", cfg.Database.Driver)
	}

	m, closeFn, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		cmd.Println("No migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	cmd.Printf("Current migration version: %d\n", version)
	cmd.Printf("Dirty: %t\n", dirty)
	return nil
}

func createUser(cmd *cobra.Command, req ports.RegisterRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := ctxOrBackground(cmd.Context())
	log := logger.NewNop()

	stores, err := server.OpenStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.Close(context.Background())

	authService := services.NewAuthService(stores.Users, cfg.JWT, cfg.Auth, log)
	resp, err := authService.Register(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	cmd.Println("User created successfully:")
	cmd.Printf("  ID: %s\n", resp.User.ID)
	cmd.Printf("  Name: %s\n", resp.User.Name)
	cmd.Printf("  Email: %s\n", resp.User.Email)
	cmd.Printf("  Token: %s\n", resp.Token)
	return nil
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

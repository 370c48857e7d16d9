package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/expense-workflow/api"
	"github.com/frahmantamala/expense-workflow/internal"
	"github.com/frahmantamala/expense-workflow/internal/core/events"
	"github.com/frahmantamala/expense-workflow/internal/policy"
	"github.com/frahmantamala/expense-workflow/internal/report"
	reportPostgres "github.com/frahmantamala/expense-workflow/internal/report/postgres"
	"github.com/frahmantamala/expense-workflow/internal/transport/rest"
	"github.com/frahmantamala/expense-workflow/internal/transport/swagger"
	"github.com/frahmantamala/expense-workflow/internal/user"
	userPostgres "github.com/frahmantamala/expense-workflow/internal/user/postgres"
	"github.com/frahmantamala/expense-workflow/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Router   *chi.Mux
	EventBus *events.EventBus
	Handlers rest.Handlers
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		// let in-flight event handlers finish before the pool goes away
		deps.EventBus.Wait()
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	if timeout := deps.Config.Server.RequestTimeout; timeout > 0 {
		deps.Router.Use(middleware.Timeout(timeout))
	}
	rest.RegisterAllRoutes(deps.Router, deps.Handlers, deps.Config.Server.Origins())
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	limits, err := policy.LimitsFromConfig(config.Policy)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("invalid policy config: %w", err)
	}

	docs, err := swagger.Load(context.Background(), api.OpenAPI)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load api docs: %w", err)
	}

	bus := newWorkflowEventBus(lg)

	userService := user.NewService(userPostgres.NewUserRepository(gormDB), lg)
	reportService := report.NewService(
		reportPostgres.NewStore(gormDB),
		reportPostgres.NewStatsReader(db),
		policy.NewEngine(limits),
		bus,
		lg,
	)

	return &Dependencies{
		Config:   config,
		Logger:   lg,
		DB:       db,
		Gorm:     gormDB,
		Router:   chi.NewRouter(),
		EventBus: bus,
		Handlers: rest.Handlers{
			Health:  rest.NewHealthHandler(db.DB),
			Users:   user.NewHandler(userService),
			Reports: report.NewHandler(reportService),
			Docs:    docs,
		},
	}, nil
}

// newWorkflowEventBus subscribes a structured log line to every workflow event.
func newWorkflowEventBus(lg *slog.Logger) *events.EventBus {
	bus := events.NewEventBus(lg)
	for _, eventType := range events.WorkflowEventTypes {
		bus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
			lg.Info("workflow event",
				"event_id", event.EventID(),
				"event_type", event.EventType(),
				"occurred_at", event.OccurredAt(),
				"payload", event.Payload())
			return nil
		})
	}
	return bus
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool with gorm so both see the same connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
}

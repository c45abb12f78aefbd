// Command server runs the email tracker: the HTTP API and dashboard feed,
// plus one-shot check and connection-test commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/welldanyogia/brandocs-backend/internal/api"
	"github.com/welldanyogia/brandocs-backend/internal/api/middleware"
	"github.com/welldanyogia/brandocs-backend/internal/config"
	"github.com/welldanyogia/brandocs-backend/internal/database"
	"github.com/welldanyogia/brandocs-backend/internal/logger"
	"github.com/welldanyogia/brandocs-backend/internal/mailbox"
	"github.com/welldanyogia/brandocs-backend/internal/repository"
	"github.com/welldanyogia/brandocs-backend/internal/services"
	"github.com/welldanyogia/brandocs-backend/internal/storage"
	"github.com/welldanyogia/brandocs-backend/internal/websocket"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	shutdownTimeout     = 10 * time.Second
	rateLimitSweep      = time.Minute
	rateLimitMaxIdle    = 10 * time.Minute
	startupProbeTimeout = 30 * time.Second
)

var envFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "brandocs",
		Short:         "Track incoming mail and the addresses found in its PDF attachments",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file to load before reading configuration")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(testConnectionCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE:  runServe,
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fetch and store the newest message once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup()
			if err != nil {
				return err
			}
			defer app.close()

			result, err := app.tracker.CheckLatest(cmd.Context())
			if err != nil {
				return err
			}

			switch result.Status {
			case services.CheckEmpty:
				fmt.Fprintln(cmd.OutOrStdout(), "No emails found")
			case services.CheckDuplicate:
				fmt.Fprintf(cmd.OutOrStdout(), "Already tracked: %s (%s)\n", result.Message.Subject, result.Message.From)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Stored: %s (%s), %d address(es) in PDF\n",
					result.Message.Subject, result.Message.From, len(result.Message.PDFEmails))
			}
			return nil
		},
	}
}

func testConnectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Log in to the mail server and disconnect",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			poller := newPoller(cfg, log)
			defer poller.Close()

			if err := poller.TestConnection(cmd.Context()); err != nil {
				return fmt.Errorf("connection test failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Connection successful")
			return nil
		},
	}
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg, err := config.LoadWithValidation()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	return cfg, log, nil
}

func newPoller(cfg *config.Config, log *slog.Logger) *mailbox.Poller {
	session := mailbox.NewSession(mailbox.Config{
		Host:     cfg.EmailServer,
		Port:     cfg.EmailPort,
		Username: cfg.EmailUsername,
		Password: cfg.EmailPassword,
		Timeout:  cfg.IMAPTimeout,
		Security: logger.NewSecurityLoggerFrom(log),
	}, log)

	return mailbox.NewPoller(session, log, mailbox.WithRetryPolicy(mailbox.RetryPolicy{
		MaxAttempts: cfg.FetchMaxAttempts,
		BaseDelay:   cfg.FetchRetryDelay,
	}))
}

// application holds the components shared by the serve and check commands
type application struct {
	cfg     *config.Config
	log     *slog.Logger
	db      *gorm.DB
	files   storage.FileStorage
	hub     *websocket.Hub
	poller  *mailbox.Poller
	tracker *services.Tracker
}

func setup() (*application, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.LogConfig(log)

	db, err := database.Connect(cfg.DatabaseURL, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		database.Close(db)
		return nil, err
	}

	files, err := storage.NewLocalStorage(cfg.PDFStoragePath)
	if err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to initialize pdf storage: %w", err)
	}

	hub := websocket.NewHub(log)
	poller := newPoller(cfg, log)
	recorder := services.NewEmailRecorder(
		repository.NewEmailRepository(db),
		repository.NewCompanyRepository(db),
		files,
		log,
	)
	tracker := services.NewTracker(poller, recorder, hub, cfg.EmailMailbox, log)

	return &application{
		cfg:     cfg,
		log:     log,
		db:      db,
		files:   files,
		hub:     hub,
		poller:  poller,
		tracker: tracker,
	}, nil
}

func (a *application) close() {
	a.poller.Close()
	if err := database.Close(a.db); err != nil {
		a.log.Error("failed to close database", "error", err)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := setup()
	if err != nil {
		return err
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go app.hub.Run(ctx)

	location, err := app.cfg.Location()
	if err != nil {
		return err
	}

	limiter := middleware.NewIPRateLimiter(rate.Limit(app.cfg.RateLimitRequests), app.cfg.RateLimitBurst)
	go limiter.RunCleanup(ctx, rateLimitSweep, rateLimitMaxIdle)

	router := api.NewRouter(&api.RouterConfig{
		DB:                app.db,
		FileStorage:       app.files,
		Checker:           app.tracker,
		Mailbox:           app.poller,
		Hub:               app.hub,
		Logger:            app.log,
		Location:          location,
		PerPage:           app.cfg.EmailsPerPage,
		BasicAuthUsername: app.cfg.BasicAuthUsername,
		BasicAuthPassword: app.cfg.BasicAuthPassword,
		AllowedOrigins:    app.cfg.Origins(),
		Production:        app.cfg.AppEnv == "production",
		RateLimiter:       limiter,
	})

	// A failing probe is reported but does not stop the API
	go func() {
		probeCtx, cancel := context.WithTimeout(ctx, startupProbeTimeout)
		defer cancel()
		if err := app.poller.TestConnection(probeCtx); err != nil {
			app.log.Warn("mail server connection test failed", "error", err)
			return
		}
		app.log.Info("mail server connection test succeeded")
	}()

	addr := ":" + strconv.Itoa(app.cfg.APIPort)
	errCh := make(chan error, 1)
	go func() {
		app.log.Info("starting HTTP server", "addr", addr)
		if err := router.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	app.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := router.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	app.log.Info("server stopped")
	return nil
}

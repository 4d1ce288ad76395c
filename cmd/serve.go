package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/mailfeed/internal/config"
	"github.com/teemow/mailfeed/internal/google"
	"github.com/teemow/mailfeed/internal/imap"
	"github.com/teemow/mailfeed/internal/instrumentation"
	"github.com/teemow/mailfeed/internal/logging"
	"github.com/teemow/mailfeed/internal/processor"
	"github.com/teemow/mailfeed/internal/server"
	"github.com/teemow/mailfeed/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		listenAddr        string
		databasePath      string
		encryptionKey     string
		clientSecretsFile string
		redirectURI       string
		metricsEnabled    bool
		metricsAddr       string
		debugMode         bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the mailfeed HTTP API server.

The server exposes:
  - Google OAuth2 authorization:  /auth/google/authorize, /auth/google/callback
  - Stored credential management: /credentials
  - IMAP settings and operations: /imap/settings, /imap/test, /imap/folders, /imap/process

Configuration can come from flags or environment variables:
  MAILFEED_LISTEN_ADDR              API listen address
  MAILFEED_DATABASE_PATH            SQLite database path
  MAILFEED_ENCRYPTION_KEY           base64 AES-256 key for tokens at rest
                                    (generate with: mailfeed keygen)
  MAILFEED_GOOGLE_CLIENT_SECRETS    path to the Google client secrets JSON
  MAILFEED_REDIRECT_URI             OAuth2 redirect URI registered with Google
  MAILFEED_METRICS_ADDR             Prometheus metrics listen address`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config{
				ListenAddr:     listenAddr,
				DatabasePath:   databasePath,
				EncryptionKey:  encryptionKey,
				MetricsEnabled: metricsEnabled,
				MetricsAddr:    metricsAddr,
				Debug:          debugMode,
			}

			// Environment variables fill in anything not set via flags.
			if !cmd.Flags().Changed("listen-addr") {
				if addr := os.Getenv("MAILFEED_LISTEN_ADDR"); addr != "" {
					cfg.ListenAddr = addr
				}
			}
			if !cmd.Flags().Changed("database") {
				if path := os.Getenv("MAILFEED_DATABASE_PATH"); path != "" {
					cfg.DatabasePath = path
				}
			}
			if cfg.EncryptionKey == "" {
				cfg.EncryptionKey = os.Getenv("MAILFEED_ENCRYPTION_KEY")
			}
			if !cmd.Flags().Changed("metrics-addr") {
				if addr := os.Getenv("MAILFEED_METRICS_ADDR"); addr != "" {
					cfg.MetricsAddr = addr
				}
			}
			if clientSecretsFile == "" {
				clientSecretsFile = os.Getenv("MAILFEED_GOOGLE_CLIENT_SECRETS")
			}
			if clientSecretsFile != "" {
				raw, err := os.ReadFile(clientSecretsFile)
				if err != nil {
					return fmt.Errorf("reading client secrets file: %w", err)
				}
				cfg.GoogleClientSecretsJSON = string(raw)
			}
			if redirectURI == "" {
				redirectURI = os.Getenv("MAILFEED_REDIRECT_URI")
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			return runServe(cfg, redirectURI)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen-addr", config.DefaultListenAddr, "API server listen address. Can also use MAILFEED_LISTEN_ADDR env var.")
	cmd.Flags().StringVar(&databasePath, "database", config.DefaultDatabasePath, "Path to the SQLite database file. Can also use MAILFEED_DATABASE_PATH env var.")
	cmd.Flags().StringVar(&encryptionKey, "encryption-key", "", "AES-256 key for token encryption at rest (32 bytes, base64 encoded). Can also use MAILFEED_ENCRYPTION_KEY env var. Generate with: mailfeed keygen")
	cmd.Flags().StringVar(&clientSecretsFile, "google-client-secrets", "", "Path to the Google OAuth2 client secrets JSON file. Can also use MAILFEED_GOOGLE_CLIENT_SECRETS env var.")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "OAuth2 redirect URI registered with Google. Defaults to http://localhost<listen-addr>/auth/google/callback. Can also use MAILFEED_REDIRECT_URI env var.")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the Prometheus metrics server on a dedicated port.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", config.DefaultMetricsAddr, "Metrics server address. Can also use MAILFEED_METRICS_ADDR env var.")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	return cmd
}

func runServe(cfg config.Config, redirectURI string) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if redirectURI == "" {
		redirectURI = fmt.Sprintf("http://localhost%s/auth/google/callback", cfg.ListenAddr)
		logger.Info("no redirect URI configured, using default",
			slog.String("redirect_uri", redirectURI))
	}

	enc, err := cfg.ResolveEncryptionKey(logger)
	if err != nil {
		return err
	}

	db, err := store.NewSQLiteStore(cfg.DatabasePath, enc)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", logging.Err(err))
		}
	}()

	instrConfig := instrumentation.DefaultConfig("mailfeed", version)
	instrConfig.Enabled = cfg.MetricsEnabled

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Error("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	oauth := google.NewClient(google.ClientOptions{Logger: logger})
	selector := imap.NewSelector(db, oauth, cfg.GoogleClientSecretsJSON, logger)
	selector.SetMetrics(provider.Metrics())
	proc := processor.New(db, selector, logger)
	states := google.NewMemoryStateVerifier(google.DefaultStateTTL)

	apiServer := server.NewServer(
		server.Config{
			Addr:              cfg.ListenAddr,
			ClientSecretsJSON: cfg.GoogleClientSecretsJSON,
			RedirectURI:       redirectURI,
		},
		db, db, oauth, states, proc, provider.Metrics(), logger,
	)

	var metricsServer *server.MetricsServer
	if cfg.MetricsEnabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", logging.Err(err))
			}
		}()
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received")

		stopCtx, stopCancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer stopCancel()

		if err := apiServer.Shutdown(stopCtx); err != nil {
			return fmt.Errorf("error shutting down API server: %w", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(stopCtx); err != nil {
				logger.Error("error shutting down metrics server", logging.Err(err))
			}
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("API server stopped with error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

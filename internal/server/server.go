package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/teemow/mailfeed/internal/google"
	"github.com/teemow/mailfeed/internal/imap"
	"github.com/teemow/mailfeed/internal/instrumentation"
	"github.com/teemow/mailfeed/internal/logging"
	"github.com/teemow/mailfeed/internal/processor"
	"github.com/teemow/mailfeed/internal/store"
)

const (
	// DefaultReadHeaderTimeout bounds how long a client may take to send
	// request headers.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds response writes. IMAP-backed handlers dial
	// out, so this is generous.
	DefaultWriteTimeout = 60 * time.Second

	// DefaultIdleTimeout closes idle keep-alive connections.
	DefaultIdleTimeout = 60 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful server shutdown.
	DefaultShutdownTimeout = 30 * time.Second
)

// Config holds the API server configuration.
type Config struct {
	// Addr is the address to bind the API server to (e.g., ":8000").
	Addr string

	// ClientSecretsJSON is the raw Google OAuth2 client secrets document.
	// Empty when Google integration is not configured.
	ClientSecretsJSON string

	// RedirectURI is the OAuth2 redirect URI registered with Google. It must
	// point at this server's /auth/google/callback route.
	RedirectURI string
}

// mailProcessor is the slice of the processor the handlers drive.
type mailProcessor interface {
	TestConnection(ctx context.Context) (string, error)
	ListFolders(ctx context.Context) ([]string, error)
	Run(ctx context.Context) (*processor.Result, error)
}

// Server is the HTTP API server.
type Server struct {
	config      Config
	credentials store.CredentialStore
	settings    store.SettingsStore
	oauth       *google.Client
	states      google.StateVerifier
	processor   mailProcessor
	metrics     *instrumentation.Metrics
	logger      *slog.Logger
	httpServer  *http.Server
}

// NewServer wires the API server. metrics may be a zero-value recorder.
func NewServer(
	config Config,
	credentials store.CredentialStore,
	settings store.SettingsStore,
	oauth *google.Client,
	states google.StateVerifier,
	proc mailProcessor,
	metrics *instrumentation.Metrics,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	if states == nil {
		states = &google.InsecureStateVerifier{}
	}
	return &Server{
		config:      config,
		credentials: credentials,
		settings:    settings,
		oauth:       oauth,
		states:      states,
		processor:   proc,
		metrics:     metrics,
		logger:      logger,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /auth/google/authorize", s.handleAuthorize)
	mux.HandleFunc("GET /auth/google/callback", s.handleCallback)

	mux.HandleFunc("GET /credentials", s.handleListCredentials)
	mux.HandleFunc("GET /credentials/{email}", s.handleGetCredential)
	mux.HandleFunc("DELETE /credentials/{email}", s.handleDeleteCredential)

	mux.HandleFunc("GET /imap/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /imap/settings", s.handleUpdateSettings)
	mux.HandleFunc("POST /imap/test", s.handleTestConnection)
	mux.HandleFunc("GET /imap/folders", s.handleListFolders)
	mux.HandleFunc("POST /imap/process", s.handleProcess)

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return s.instrument(mux)
}

// Start runs the API server until it fails or is shut down.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	s.logger.Info("starting API server", slog.String("addr", s.config.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// statusRecorder captures the response code for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", logging.Err(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the error taxonomy onto HTTP statuses: configuration
// problems are the operator's fault (500), rejected exchanges, refreshes,
// and mail-auth failures are the caller's (400), missing records are 404.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var cfgErr *google.ConfigurationError
	var exchErr *google.TokenExchangeError
	var refreshErr *google.TokenRefreshError
	var identErr *google.IdentityFetchError
	var authErr *imap.AuthenticationError

	switch {
	case errors.As(err, &cfgErr):
		status = http.StatusInternalServerError
	case errors.As(err, &exchErr), errors.As(err, &refreshErr):
		status = http.StatusBadRequest
	case errors.As(err, &identErr):
		status = http.StatusBadGateway
	case errors.As(err, &authErr):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, processor.ErrNotConfigured):
		status = http.StatusBadRequest
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			logging.Err(err),
		)
	}

	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

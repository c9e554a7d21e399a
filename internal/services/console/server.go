// Package console hosts the GM console: one server-held document per browser
// session, driven by events posted from the page and synchronised back to it
// over a server-sent event stream of patches.
package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/louisbranch/gmconsole/internal/platform/config"
	"github.com/louisbranch/gmconsole/internal/platform/i18n/catalog"
	"github.com/louisbranch/gmconsole/internal/platform/timeouts"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/diceroller"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/library/cache"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/observability"
	"github.com/louisbranch/gmconsole/internal/services/console/static"
)

const (
	defaultHTTPAddr   = "localhost:8090"
	defaultSessionTTL = 30 * time.Minute
)

// Config configures the console server.
type Config struct {
	HTTPAddr   string
	BackendURL string
	// BackendTimeout caps each backend call; zero uses timeouts.BackendRequest.
	BackendTimeout time.Duration
	// SessionTTL evicts sessions that saw no request or stream heartbeat.
	SessionTTL        time.Duration
	SweepInterval     time.Duration
	HeartbeatInterval time.Duration
	// StreamBacklog is how many patch batches a reconnecting stream can catch
	// up on before it has to reload.
	StreamBacklog     int
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration

	// CacheStore backs the library cache; nil keeps it in process memory.
	CacheStore cache.Store
	HTTPClient *http.Client
	Metrics    *observability.Metrics
	Seed       diceroller.SeedFunc
	Logger     zerolog.Logger
}

// Server hosts the console HTTP process.
type Server struct {
	cfg        Config
	sessions   *registry
	handler    http.Handler
	httpServer *http.Server
	baseCtx    context.Context
	stopping   chan struct{}
	stopOnce   sync.Once
}

// NewServer validates cfg and builds the server without listening.
func NewServer(cfg Config) (*Server, error) {
	backend, err := config.RequireBaseURL("backend URL", cfg.BackendURL)
	if err != nil {
		return nil, err
	}
	cfg.BackendURL = backend
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	if cfg.BackendTimeout <= 0 {
		cfg.BackendTimeout = timeouts.BackendRequest
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = timeouts.SessionSweep
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = timeouts.StreamHeartbeat
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = timeouts.Shutdown
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.BackendTimeout}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.Global()
	}

	s := &Server{
		cfg:      cfg,
		sessions: newRegistry(cfg),
		baseCtx:  context.Background(),
		stopping: make(chan struct{}),
	}
	s.handler = observability.RequestLogger(cfg.Logger, cfg.Metrics, routeLabel)(s.routes())
	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	s.httpServer.RegisterOnShutdown(func() {
		s.stopOnce.Do(func() { close(s.stopping) })
	})
	return s, nil
}

// Handler returns the instrumented route tree.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("POST /console/events", s.handleEvent)
	mux.HandleFunc("GET /console/stream", s.handleStream)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static.Assets())))
	mux.HandleFunc("GET /locales/{file}", handleLocale)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// routeLabel keeps the request counter to one series per route.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	return r.Pattern
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("console server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	s.baseCtx = ctx

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sessions.runSweeper(sweepCtx, s.cfg.SweepInterval)

	serveErr := make(chan error, 1)
	s.cfg.Logger.Info().Str("addr", s.cfg.HTTPAddr).Str("backend", s.cfg.BackendURL).Msg("console listening")
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close ends every session.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.sessions.closeAll()
}

// handlePage renders the session document, starting a session when the
// request carries none.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.lookup(r)
	if !ok {
		sess = s.sessions.create(s.baseCtx)
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    sess.id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   r.TLS != nil,
		})
	}

	var buf bytes.Buffer
	var renderErr error
	err := sess.loop.Do(r.Context(), func(context.Context) {
		markStreamPosition(sess)
		renderErr = sess.doc.Render(&buf)
	})
	if err == nil {
		err = renderErr
	}
	if err != nil {
		sess.logger.Error().Err(err).Msg("render page")
		http.Error(w, "render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func handleLocale(w http.ResponseWriter, r *http.Request) {
	lang, ok := strings.CutSuffix(r.PathValue("file"), ".json")
	if !ok {
		http.NotFound(w, r)
		return
	}
	data, ok := catalog.Default().JSON(lang)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

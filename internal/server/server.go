package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/node-pulse/apcupsd-exporter/internal/logger"
	"github.com/node-pulse/apcupsd-exporter/internal/state"
)

var landingPage = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html>
<head><title>apcupsd exporter</title></head>
<body>
<h1>apcupsd exporter</h1>
<p>Polling {{.Target}}</p>
<p><a href="{{.MetricsPath}}">Metrics</a></p>
<p><a href="/healthz">Health</a></p>
</body>
</html>
`))

// Options configures the HTTP server
type Options struct {
	Addr        string
	MetricsPath string
	// Target is the apcupsd address shown on the landing page
	Target string
}

// Server exposes the metrics endpoint
type Server struct {
	opts       Options
	store      *state.Store
	router     *mux.Router
	httpServer *http.Server
}

// New builds the router. Nothing listens until Start is called.
func New(opts Options, store *state.Store, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		opts:   opts,
		store:  store,
		router: mux.NewRouter(),
	}

	metrics := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
		ErrorLog:      zap.NewStdLog(logger.Named("promhttp")),
	})

	s.router.Handle(opts.MetricsPath, metrics).Methods(http.MethodGet, http.MethodHead)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	s.router.HandleFunc("/", s.handleLanding).Methods(http.MethodGet)
	s.router.Use(logRequests)

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens and serves until Shutdown is called
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener until Shutdown is called
func (s *Server) Serve(ln net.Listener) error {
	logger.Info("HTTP server listening",
		logger.String("addr", ln.Addr().String()),
		logger.String("metrics_path", s.opts.MetricsPath))

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	sample := s.store.Load()
	if sample == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, "no snapshot yet")
		return
	}

	fmt.Fprintf(w, "ok, last fetch %s\n", sample.FetchedAt.UTC().Format(time.RFC3339))
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := landingPage.Execute(w, s.opts); err != nil {
		logger.Warn("Failed to render landing page", logger.Err(err))
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("HTTP request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("remote", r.RemoteAddr),
			logger.Duration("took", time.Since(start)))
	})
}

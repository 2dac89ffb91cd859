package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/valyala/fastjson"

	"github.com/skyyyyy916/my-cyber-dashboard/internal/engine"
	"github.com/skyyyyy916/my-cyber-dashboard/internal/metrics"
	"github.com/skyyyyy916/my-cyber-dashboard/internal/storage"
)

// Options configure a DashboardServer.
type Options struct {
	WebDir          string // static files served at "/"; empty disables
	Gzip            bool
	DefaultRowLimit int
	MaxUploadBytes  int64
}

type DashboardServer struct {
	dashboard *engine.Dashboard
	exporter  *storage.Exporter
	metrics   *metrics.Metrics
	opts      Options
	srv       *http.Server
	parser    fastjson.ParserPool
}

func NewDashboardServer(d *engine.Dashboard, e *storage.Exporter, m *metrics.Metrics, opts Options) *DashboardServer {
	if opts.DefaultRowLimit <= 0 {
		opts.DefaultRowLimit = 100
	}
	return &DashboardServer{
		dashboard: d,
		exporter:  e,
		metrics:   m,
		opts:      opts,
	}
}

// Handler builds the routing tree with its middleware.
func (s *DashboardServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/upload", s.handleUpload)
	mux.HandleFunc("/api/filters", s.handleFilters)
	mux.HandleFunc("/api/dashboard", s.handleDashboard)
	mux.HandleFunc("/api/rows", s.handleRows)
	mux.HandleFunc("/api/charts/attack-types.png", s.handleAttackTypeChart)
	mux.HandleFunc("/api/charts/top-ports.png", s.handleTopPortsChart)
	mux.HandleFunc("/api/export", s.handleExport)
	mux.Handle("/metrics", s.metrics.Handler())

	// Static file serving for web directory
	if s.opts.WebDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.opts.WebDir)))
	}

	var h http.Handler = mux
	if s.opts.Gzip {
		h = gzhttp.GzipHandler(h)
	}
	return s.withRequestLog(h)
}

// Start runs the HTTP server.
func (s *DashboardServer) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *DashboardServer) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

type ctxKey struct{}

// RequestID returns the id assigned to the request by the logging middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withRequestLog tags each request with an id, logs it and records its latency.
func (s *DashboardServer) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
		elapsed := time.Since(start)

		s.metrics.RequestDuration.
			WithLabelValues(routeLabel(r.URL.Path), strconv.Itoa(rec.status)).
			Observe(elapsed.Seconds())

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", elapsed,
			"request_id", id)
	})
}

// routeLabel keeps the metric label set bounded: static paths collapse into one.
func routeLabel(path string) string {
	if strings.HasPrefix(path, "/api/") || path == "/metrics" {
		return path
	}
	return "static"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("JSON encode error", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps loader and engine errors onto HTTP responses.
func (s *DashboardServer) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var (
		parseErr  *storage.ParseError
		schemaErr *storage.SchemaError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.Is(err, engine.ErrNoData):
		s.metrics.NoDataTotal.Inc()
		writeError(w, http.StatusServiceUnavailable, engine.ErrNoData.Error())
	case errors.Is(err, storage.ErrTooLarge), errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, storage.ErrTooLarge.Error())
	case errors.As(err, &parseErr):
		writeError(w, http.StatusBadRequest, parseErr.Error())
	case errors.As(err, &schemaErr):
		writeError(w, http.StatusUnprocessableEntity, schemaErr.Error())
	case errors.Is(err, engine.ErrInvalidQuery), errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"logwal/pkg/metrics"
	"logwal/pkg/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	contentTypeJSON        = "application/json"
	contentTypeBinary      = "application/octet-stream"
	defaultHTTPPort        = "8080"
	defaultShutdownTimeout = time.Second * 5
	maxValueBytes          = 64 << 20
)

type iMetrics interface {
	metrics.Collector
	Handler() http.Handler
}

// Server exposes a storage engine as a remote ordered map over HTTP.
type Server struct {
	engine          storage.Engine
	metrics         iMetrics
	httpServer      *http.Server
	shutdownTimeout time.Duration
	URL             string
	addr            string
}

// NewServer creates a new server instance
func NewServer(engine storage.Engine, port string) *Server {
	if port == "" {
		port = defaultHTTPPort
	}
	return &Server{
		engine:          engine,
		shutdownTimeout: defaultShutdownTimeout,
		URL:             "http://localhost:" + port,
		addr:            ":" + port,
	}
}

func (s *Server) SetMetrics(m iMetrics) {
	s.metrics = m
}

func (s *Server) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		s.shutdownTimeout = d
	}
}

// Start starts the server
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("HTTP server started", "addr", s.URL)
	return nil
}

// Stop stops the server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

// Handler builds the chi router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Get("/api/len", s.handleLen)
	r.Get("/api/snapshot", s.handleSnapshot)

	r.Route("/api/map/{key}", func(r chi.Router) {
		r.Put("/", s.handlePut)
		r.Get("/", s.handleGet)
		r.Head("/", s.handleHead)
		r.Delete("/", s.handleDelete)
	})

	return r
}

// observe logs and counts every request by route pattern and status
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		slog.Debug("http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start))

		if s.metrics != nil {
			labels := map[string]string{
				"method": r.Method,
				"route":  route,
				"code":   strconv.Itoa(status),
			}
			s.metrics.IncCounter("http_requests_total", labels, 1)
		}
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Error encoding response", "error", err)
	}
}

func (s *Server) keyParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	key, err := strconv.ParseInt(chi.URLParam(r, "key"), 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("Invalid key"))
		return 0, false
	}
	return key, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, NewHealthResponse())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics != nil {
		s.metrics.Handler().ServeHTTP(w, r)
		return
	}
	if _, err := w.Write([]byte("# logwal metrics\n")); err != nil {
		slog.Warn("Failed to write metrics response", "error", err)
	}
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	key, ok := s.keyParam(w, r)
	if !ok {
		return
	}

	value, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxValueBytes))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("Failed to read body"))
		return
	}

	if err := s.engine.Insert(key, value); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, NewErrorResponse(err.Error()))
		return
	}

	s.writeJSON(w, http.StatusOK, NewAppliedResponse(key))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key, ok := s.keyParam(w, r)
	if !ok {
		return
	}

	value, found, err := s.engine.Get(key)
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, NewErrorResponse(err.Error()))
		return
	}
	if !found {
		s.writeJSON(w, http.StatusNotFound, NewErrorResponse("Key not found"))
		return
	}

	w.Header().Set("Content-Type", contentTypeBinary)
	w.Header().Set("Content-Length", strconv.Itoa(len(value)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(value); err != nil {
		slog.Warn("Failed to write value", "key", key, "error", err)
	}
}

func (s *Server) handleHead(w http.ResponseWriter, r *http.Request) {
	key, err := strconv.ParseInt(chi.URLParam(r, "key"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	found, err := s.engine.Contains(key)
	switch {
	case err != nil:
		w.WriteHeader(http.StatusInternalServerError)
	case !found:
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key, ok := s.keyParam(w, r)
	if !ok {
		return
	}

	if err := s.engine.Remove(key); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, NewErrorResponse(err.Error()))
		return
	}

	s.writeJSON(w, http.StatusOK, NewAppliedResponse(key))
}

func (s *Server) handleLen(w http.ResponseWriter, r *http.Request) {
	n, err := s.engine.Len()
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, NewErrorResponse(err.Error()))
		return
	}

	s.writeJSON(w, http.StatusOK, NewLenResponse(n))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := storage.WriteSnapshot(&buf, s.engine)
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, NewErrorResponse(err.Error()))
		return
	}

	w.Header().Set("Content-Type", contentTypeBinary)
	w.Header().Set("X-Snapshot-Entries", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("Failed to write snapshot", "error", err)
	}
}

// Package chi serves the docmirror HTTP API with go-chi.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/fwojciec/docmirror"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server defaults.
const (
	DefaultAddr            = "127.0.0.1:8484"
	DefaultShutdownTimeout = 10 * time.Second
)

// Server is the HTTP API. Services left nil disable the routes that need
// them.
type Server struct {
	Addr string

	Search  docmirror.SearchService
	Sources docmirror.SourceService
	Updates docmirror.UpdateService
	Asker   docmirror.Asker

	Logger *slog.Logger
	Now    func() time.Time

	ShutdownTimeout time.Duration
}

// NewServer returns a Server listening on DefaultAddr.
func NewServer() *Server {
	return &Server{
		Addr:            DefaultAddr,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/search", s.handleSearch)
		r.Post("/ask", s.handleAsk)
		r.Get("/sources", s.handleSources)
		r.Post("/sources/{name}/update", s.handleUpdate)
		r.Post("/sources/{name}/disable", s.handleDisable)
		r.Get("/jobs/{id}", s.handleJob)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.Error(w, r, docmirror.Errorf(docmirror.ENOTFOUND, "no route for %s %s", r.Method, r.URL.Path))
	})
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger().Info("http server listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// logRequests logs each request after it completes.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func(begin time.Time) {
			s.logger().Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"request_id", middleware.GetReqID(r.Context()),
				"duration", time.Since(begin),
			)
		}(time.Now())
		next.ServeHTTP(ww, r)
	})
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// codes maps application error codes to HTTP status codes.
var codes = map[string]int{
	docmirror.ECONFLICT:    http.StatusConflict,
	docmirror.EINVALID:     http.StatusBadRequest,
	docmirror.ENOTFOUND:    http.StatusNotFound,
	docmirror.EREJECTED:    http.StatusUnprocessableEntity,
	docmirror.EUNAVAILABLE: http.StatusServiceUnavailable,
	docmirror.EINTERNAL:    http.StatusInternalServerError,
}

// ErrorStatusCode returns the HTTP status for an application error code.
func ErrorStatusCode(code string) int {
	if status, ok := codes[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error writes err as JSON. Internal errors are logged and their details
// hidden from the client.
func (s *Server) Error(w http.ResponseWriter, r *http.Request, err error) {
	code, message := docmirror.ErrorCode(err), docmirror.ErrorMessage(err)
	if code == docmirror.EINTERNAL {
		s.logger().Error("http error", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	s.writeJSON(w, r, ErrorStatusCode(code), ErrorResponse{Error: message, Code: code})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger().Warn("encode response", "path", r.URL.Path, "err", err)
	}
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Package health exposes liveness and readiness over HTTP for process
// supervisors. It says nothing about the bot's tenants or sessions;
// readiness only reflects whether the backing store answers.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

const probeTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

// Server serves /healthz and /readyz.
type Server struct {
	srv  *http.Server
	ping Pinger
	log  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger for the Server.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New builds a health server listening on addr. ping may be nil, in
// which case readiness degenerates to liveness.
func New(addr string, ping Pinger, opts ...Option) *Server {
	s := &Server{ping: ping, log: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)
	s.srv = &http.Server{Addr: addr, Handler: r}
	return s
}

// ListenAndServe blocks serving probes until Shutdown.
func (s *Server) ListenAndServe() error {
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			s.log.Warn("readiness probe failed", "error", err)
			http.Error(w, "store unreachable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

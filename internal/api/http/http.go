package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/comptoir/woocompta/internal/apisrv/auth"
	"github.com/comptoir/woocompta/internal/apisrv/reports"
)

// Config is the configuration for the http server
type Config struct {
	Port           string   `mapstructure:"port"`
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Server is the http server
type Server struct {
	hs   *http.Server
	c    *Config
	done chan struct{}
}

// New creates a new server
func New(config *Config) *Server {
	return &Server{
		c:    config,
		done: make(chan struct{}),
	}
}

// Done returns a channel that is closed when the http server exits
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Start starts the server and returns once the listener is running.
func (s *Server) Start(ctx context.Context, authSrv *auth.Server, reportsSrv *reports.Server) error {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.c.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Mount("/api", authSrv.WithAuth(reportsSrv.Routes()))
	r.Get("/dashboard", reportsSrv.Dashboard)

	port := s.c.Port
	if port == "" {
		port = "8080"
	}
	listenerAddr := fmt.Sprintf("%s:%s", s.c.Address, port)
	s.hs = &http.Server{
		Addr:    listenerAddr,
		Handler: r,
	}

	go func() {
		slog.Default().InfoContext(ctx, fmt.Sprintf("woocompta new listener on: http://%v", listenerAddr))
		err := s.hs.ListenAndServe()
		if err == http.ErrServerClosed {
			slog.Default().InfoContext(ctx, "http server returned")
		} else {
			slog.Default().ErrorContext(ctx, "http server exited with an error", "error", err.Error())
		}
		close(s.done)
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) {
	if s.hs == nil {
		return
	}
	if err := s.hs.Shutdown(ctx); err != nil {
		slog.Default().ErrorContext(ctx, "http server shutdown", "error", err.Error())
	}
}

// requestLogger tags every request with an id and logs its outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		next.ServeHTTP(w, r)
		slog.Default().Info("request handled",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).String(),
		)
	})
}

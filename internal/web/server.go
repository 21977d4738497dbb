package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/deckhand-io/deckhand/internal/auth"
	"github.com/deckhand-io/deckhand/internal/deploy"
	"github.com/deckhand-io/deckhand/internal/job"
)

// Server wires the trigger endpoints and the console to a job registry.
// Authorization is picked per route: the plain shared-secret header guards
// /deploy2, the HMAC body signature guards /deploy.
type Server struct {
	registry  *job.Registry
	resolver  deploy.Resolver
	secret    auth.Authorizer
	signature auth.Authorizer
}

func NewServer(registry *job.Registry, resolver deploy.Resolver, secret string) *Server {
	return &Server{
		registry:  registry,
		resolver:  resolver,
		secret:    auth.NewSecretHeader(secret),
		signature: auth.NewHMACSignature(secret),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logRequests)

	r.Get("/", s.handleConsole)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/deploy/{app}", s.handleTrigger(s.signature))
	r.Post("/deploy2/{app}", s.handleTrigger(s.secret))
	return r
}

// handleTrigger authorizes, resolves, and submits. The response returns as
// soon as the job is registered and launched; the body is the job id, usable
// to correlate with console entries later.
func (s *Server) handleTrigger(a auth.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		app := chi.URLParam(r, "app")

		if !a.Authorize(r) {
			slog.WarnContext(ctx, "unauthorized trigger", "app", app)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		script, err := s.resolver.Resolve(app)
		if err != nil {
			slog.WarnContext(ctx, "trigger for unknown application", "app", app)
			http.Error(w, "unknown application", http.StatusNotFound)
			return
		}

		j := deploy.Submit(ctx, s.registry, app, script)
		_, _ = w.Write([]byte(j.ID.String()))
	}
}

// ListenAndServe runs the HTTP server on loopback until ctx is cancelled,
// then shuts it down gracefully. In-flight deploy jobs are not awaited:
// they are detached by design and die with the process.
func (s *Server) ListenAndServe(ctx context.Context, port uint16) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort("127.0.0.1", strconv.Itoa(int(port))),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	slog.InfoContext(ctx, "console listening", "addr", srv.Addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		slog.DebugContext(r.Context(), "request served", "method", r.Method, "path", r.URL.Path)
	})
}

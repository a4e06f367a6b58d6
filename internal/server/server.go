// Package server exposes the classification and categorization HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mchalk/txncat/internal/classifier"
	"github.com/mchalk/txncat/internal/fina"
)

// Classifier is the local-model capability handlers depend on.
type Classifier interface {
	Classify(ctx context.Context, req classifier.Request) (classifier.Result, error)
}

// Server serves the HTTP API. The classifier and categorizer are constructed
// once at startup and shared read-only across requests.
type Server struct {
	classifier  Classifier
	categorizer fina.Categorizer
	addr        string
}

// New creates an API server.
func New(clf Classifier, cat fina.Categorizer, addr string) *Server {
	return &Server{classifier: clf, categorizer: cat, addr: addr}
}

// Router builds the chi router with middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(withCORS)

	r.Get("/health", s.health)
	r.Post("/ai/hf-classify", s.classify)
	r.Post("/ai/fina-categorize", s.categorize)

	return r
}

// Run starts the server and shuts down gracefully when ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	slog.Info("Server listening", "address", s.addr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// withCORS leaves the API fully open for browser clients.
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

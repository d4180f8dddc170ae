// Package api exposes the ledger over HTTP. Authentication, rate limiting
// and API documentation are deliberately left to whatever sits in front of
// this server.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tallyhq/tally/internal/ledger"
	"github.com/tallyhq/tally/internal/service"
)

// Server serves the ledger API.
type Server struct {
	engine *ledger.Engine
	store  service.Storage
	addr   string
}

// NewServer creates a server for the given engine and storage.
func NewServer(engine *ledger.Engine, store service.Storage, addr string) *Server {
	return &Server{engine: engine, store: store, addr: addr}
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	transactions := &TransactionsHandler{engine: s.engine, store: s.store}
	accounts := &AccountsHandler{engine: s.engine, store: s.store}
	categories := &CategoriesHandler{store: s.store}
	tags := &TagsHandler{store: s.store}

	r.Route("/api", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", transactions.List)
			r.Post("/", transactions.Create)
			r.Get("/{id}", transactions.Get)
			r.Delete("/{id}", transactions.Delete)
		})
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accounts.List)
			r.Post("/", accounts.Create)
			r.Get("/{id}", accounts.Get)
			r.Delete("/{id}", accounts.Delete)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categories.List)
			r.Post("/", categories.Create)
			r.Delete("/{id}", categories.Delete)
		})
		r.Route("/tags", func(r chi.Router) {
			r.Get("/", tags.List)
			r.Post("/", tags.Create)
			r.Delete("/{id}", tags.Delete)
		})
	})

	return r
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("ledger API listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Package server is the admin HTTP surface: liveness and read-only migration
// status for deployment health checks and the dashboard.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/sirupsen/logrus"

	"github.com/hivemindapp/hivemind/internal/migrate"
)

// MigrationReporter is the slice of the runner the server reads.
type MigrationReporter interface {
	Status(ctx context.Context) ([]migrate.MigrationStatus, error)
}

type Server struct {
	logger   logrus.FieldLogger
	reporter MigrationReporter
	router   chi.Router
}

func New(logger logrus.FieldLogger, reporter MigrationReporter) *Server {
	s := &Server{
		logger:   logger,
		reporter: reporter,
		router:   chi.NewRouter(),
	}

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api/admin", func(r chi.Router) {
		r.Get("/migrations", s.handleMigrationStatus)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMigrationStatus reports every registered migration and whether it has
// been applied. Pending migrations are data here, not errors.
func (s *Server) handleMigrationStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.reporter.Status(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("reading migration status")
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "migration status unavailable",
		})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"migrations": statuses,
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("writing response")
	}
}

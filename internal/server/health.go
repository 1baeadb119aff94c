package server

import (
	"context"

	"github.com/vanshika/sparqlconn/internal/repository"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// RepositoryHealth verifies the store still answers as part of health checks.
type RepositoryHealth struct {
	Repo *repository.Repository
}

// Probe implements the HealthService interface.
func (s RepositoryHealth) Probe(ctx context.Context) error {
	if s.Repo == nil {
		return nil
	}
	return s.Repo.Ping(ctx)
}

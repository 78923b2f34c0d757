package server

import (
	"context"

	"taxflow/internal/xrpl"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// LedgerHealthService verifies ledger endpoint reachability as part of
// health checks.
type LedgerHealthService struct {
	Client xrpl.Client
}

// Probe implements the HealthService interface.
func (s LedgerHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.Ping(ctx)
}

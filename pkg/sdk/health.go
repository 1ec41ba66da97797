package invoicedex

import (
	"context"

	healthuc "github.com/kailas-cloud/invoicedex/internal/usecase/health"
)

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Health components.
const (
	ComponentIndex = healthuc.ComponentIndex
	// ComponentStore is only reported when canonical records live in Postgres.
	ComponentStore = healthuc.ComponentStore
)

// HealthStatus is the aggregated state of the index and canonical stores.
// Status is "ok", "degraded" (canonical store down) or "error" (index down).
type HealthStatus struct {
	Status string
	Checks map[string]string
}

// Healthy reports whether every component answered.
func (h HealthStatus) Healthy() bool { return h.Status == string(healthuc.Healthy) }

// Health pings every configured component.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	out := HealthStatus{Status: string(report.Status), Checks: make(map[string]string, len(report.Checks))}
	for component, result := range report.Checks {
		out.Checks[component] = string(result)
	}
	return out
}

package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates that a secondary component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates that the search index is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Checks.
const (
	ComponentIndex = "index"
	ComponentStore = "store"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index Backend
	store Backend
}

// New creates a Service. store is nil when the canonical store shares the
// index connection.
func New(index, store Backend) *Service {
	return &Service{index: index, store: store}
}

// Check pings every component. A failing index makes the service unhealthy,
// a failing canonical store only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{ComponentIndex: ping(ctx, s.index)}
	if s.store != nil {
		checks[ComponentStore] = ping(ctx, s.store)
	}

	status := Healthy
	switch {
	case checks[ComponentIndex] == CheckError:
		status = Unhealthy
	case checks[ComponentStore] == CheckError:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}

func ping(ctx context.Context, p Backend) CheckResult {
	if err := p.Ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}

package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockBackend struct {
	err error
}

func (m *mockBackend) Ping(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck(t *testing.T) {
	down := &mockBackend{err: errors.New("conn refused")}
	up := &mockBackend{}

	tests := []struct {
		name   string
		index  Backend
		store  Backend
		status Status
		checks map[string]CheckResult
	}{
		{"index only", up, nil, Healthy, map[string]CheckResult{ComponentIndex: CheckOK}},
		{"index down", down, nil, Unhealthy, map[string]CheckResult{ComponentIndex: CheckError}},
		{"both up", up, up, Healthy, map[string]CheckResult{ComponentIndex: CheckOK, ComponentStore: CheckOK}},
		{"store down", up, down, Degraded, map[string]CheckResult{ComponentIndex: CheckOK, ComponentStore: CheckError}},
		{"both down", down, down, Unhealthy, map[string]CheckResult{ComponentIndex: CheckError, ComponentStore: CheckError}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.index, tt.store).Check(context.Background())
			if r.Status != tt.status {
				t.Errorf("status = %q, want %q", r.Status, tt.status)
			}
			if len(r.Checks) != len(tt.checks) {
				t.Fatalf("checks = %v, want %v", r.Checks, tt.checks)
			}
			for k, v := range tt.checks {
				if r.Checks[k] != v {
					t.Errorf("%s = %q, want %q", k, r.Checks[k], v)
				}
			}
		})
	}
}

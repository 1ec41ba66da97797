package mapping

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/invoicedex/internal/domain"
	dommap "github.com/kailas-cloud/invoicedex/internal/domain/mapping"
)

// Service handles supplier templates and the mapping specs administrators attach to them.
type Service struct {
	repo Repository
	now  func() time.Time
}

// New creates a mapping service.
func New(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Upload registers a supplier's sample document. A supplier has at most one
// template, a second upload fails with ErrAlreadyExists.
func (s *Service) Upload(ctx context.Context, supplierID, templateName string, content []byte) (dommap.Spec, error) {
	spec, err := dommap.NewSpec(supplierID, templateName, string(content), s.now())
	if err != nil {
		return dommap.Spec{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	if err := s.repo.Create(ctx, spec); err != nil {
		return dommap.Spec{}, fmt.Errorf("create template: %w", err)
	}
	return spec, nil
}

// UpdateMapping validates rules and attaches them to a template, recording the
// administrator who mapped it. Shape errors fail with ErrInvalidMappingSpec
// before anything is stored.
func (s *Service) UpdateMapping(ctx context.Context, templateID, adminID string, rules []byte) (dommap.Spec, error) {
	if templateID == "" {
		return dommap.Spec{}, fmt.Errorf("%w: template_id is required", domain.ErrInvalidRequest)
	}
	spec, err := s.repo.GetByID(ctx, templateID)
	if err != nil {
		return dommap.Spec{}, fmt.Errorf("get template: %w", err)
	}

	parsed, err := dommap.ParseRules(rules)
	if err != nil {
		return dommap.Spec{}, err
	}
	spec.ApplyMapping(parsed, adminID, s.now())

	if err := s.repo.Save(ctx, spec); err != nil {
		return dommap.Spec{}, fmt.Errorf("save template: %w", err)
	}
	return spec, nil
}

// GetBySupplier returns a supplier's template, mapped or not.
func (s *Service) GetBySupplier(ctx context.Context, supplierID string) (dommap.Spec, error) {
	if supplierID == "" {
		return dommap.Spec{}, fmt.Errorf("%w: supplier_id is required", domain.ErrInvalidRequest)
	}
	spec, err := s.repo.GetBySupplier(ctx, supplierID)
	if err != nil {
		return dommap.Spec{}, fmt.Errorf("get template: %w", err)
	}
	return spec, nil
}

// ListUnmapped returns the templates still waiting for a mapping.
func (s *Service) ListUnmapped(ctx context.Context) ([]dommap.Spec, error) {
	specs, err := s.repo.ListUnmapped(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unmapped templates: %w", err)
	}
	if specs == nil {
		specs = []dommap.Spec{}
	}
	return specs, nil
}

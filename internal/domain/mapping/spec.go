package mapping

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Spec is a supplier's mapping template: the sample document the supplier
// uploaded and, once an administrator has mapped it, the rules that project
// that supplier's invoices into the canonical shape.
type Spec struct {
	id              string
	supplierID      string
	templateName    string
	templateContent string
	rules           Rules
	mapped          bool
	mappedBy        string
	mappedAt        *time.Time
	uploadedAt      time.Time
}

// NewSpec validates and creates an unmapped template.
func NewSpec(supplierID, templateName, templateContent string, now time.Time) (Spec, error) {
	if supplierID == "" {
		return Spec{}, fmt.Errorf("supplier id is required")
	}
	if templateContent == "" {
		return Spec{}, fmt.Errorf("template content is required")
	}
	return Spec{
		id:              uuid.NewString(),
		supplierID:      supplierID,
		templateName:    templateName,
		templateContent: templateContent,
		uploadedAt:      now.UTC(),
	}, nil
}

// ReconstructSpec hydrates a spec from storage without validation.
func ReconstructSpec(
	id, supplierID, templateName, templateContent string, rules Rules,
	mapped bool, mappedBy string, mappedAt *time.Time, uploadedAt time.Time,
) Spec {
	return Spec{
		id: id, supplierID: supplierID, templateName: templateName, templateContent: templateContent,
		rules: rules, mapped: mapped, mappedBy: mappedBy, mappedAt: mappedAt, uploadedAt: uploadedAt,
	}
}

// ID returns the template id.
func (s *Spec) ID() string { return s.id }

// SupplierID returns the owning supplier.
func (s *Spec) SupplierID() string { return s.supplierID }

// TemplateName returns the uploaded file name.
func (s *Spec) TemplateName() string { return s.templateName }

// TemplateContent returns the uploaded sample document.
func (s *Spec) TemplateContent() string { return s.templateContent }

// Mapped reports whether an administrator has supplied rules.
func (s *Spec) Mapped() bool { return s.mapped }

// MappedBy returns the administrator who supplied the rules.
func (s *Spec) MappedBy() string { return s.mappedBy }

// MappedAt returns when the rules were supplied.
func (s *Spec) MappedAt() *time.Time { return s.mappedAt }

// UploadedAt returns when the template was uploaded.
func (s *Spec) UploadedAt() time.Time { return s.uploadedAt }

// Rules returns the mapping rules and whether the spec is usable for normalization.
func (s *Spec) Rules() (Rules, bool) {
	if !s.mapped {
		return Rules{}, false
	}
	return s.rules, true
}

// ApplyMapping replaces the rules, marks the spec mapped and records who did it.
func (s *Spec) ApplyMapping(rules Rules, adminID string, now time.Time) {
	at := now.UTC()
	s.rules = rules
	s.mapped = true
	s.mappedBy = adminID
	s.mappedAt = &at
}

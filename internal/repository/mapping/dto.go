package mapping

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	dommap "github.com/kailas-cloud/invoicedex/internal/domain/mapping"
)

// specToHash converts a Spec to a map for HSET.
func specToHash(spec *dommap.Spec) (map[string]string, error) {
	m := map[string]string{
		"id":               spec.ID(),
		"supplier_id":      spec.SupplierID(),
		"template_name":    spec.TemplateName(),
		"template_content": spec.TemplateContent(),
		"mapped":           strconv.FormatBool(spec.Mapped()),
		"mapped_by":        spec.MappedBy(),
		"mapping":          "",
		"mapped_at":        "",
		"uploaded_at":      spec.UploadedAt().Format(time.RFC3339Nano),
	}
	if rules, ok := spec.Rules(); ok {
		data, err := json.Marshal(rules)
		if err != nil {
			return nil, fmt.Errorf("marshal mapping: %w", err)
		}
		m["mapping"] = string(data)
	}
	if at := spec.MappedAt(); at != nil {
		m["mapped_at"] = at.Format(time.RFC3339Nano)
	}
	return m, nil
}

// specFromHash hydrates a Spec from an HGETALL result map.
func specFromHash(m map[string]string) (dommap.Spec, error) {
	uploadedAt, err := time.Parse(time.RFC3339Nano, m["uploaded_at"])
	if err != nil {
		return dommap.Spec{}, fmt.Errorf("invalid uploaded_at: %w", err)
	}

	var mappedAt *time.Time
	if s := m["mapped_at"]; s != "" {
		at, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return dommap.Spec{}, fmt.Errorf("invalid mapped_at: %w", err)
		}
		mappedAt = &at
	}

	var rules dommap.Rules
	if s := m["mapping"]; s != "" {
		rules, err = dommap.ParseRules([]byte(s))
		if err != nil {
			return dommap.Spec{}, fmt.Errorf("stored mapping for %s: %w", m["supplier_id"], err)
		}
	}

	return dommap.ReconstructSpec(
		m["id"], m["supplier_id"], m["template_name"], m["template_content"], rules,
		m["mapped"] == "true", m["mapped_by"], mappedAt, uploadedAt,
	), nil
}

package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	dominv "github.com/kailas-cloud/invoicedex/internal/domain/invoice"
	dommap "github.com/kailas-cloud/invoicedex/internal/domain/mapping"
)

type invoiceModel struct {
	ID             string `gorm:"primaryKey;type:uuid"`
	Issuer         string `gorm:"index;not null"`
	Recipient      string `gorm:"index;not null"`
	SourceFormat   string `gorm:"type:text"`
	InternalFormat string `gorm:"type:jsonb"`
	CreatedAt      time.Time
	Archived       bool `gorm:"index;not null;default:false"`
	ArchivedAt     *time.Time
	ArchivedBy     string
}

func (invoiceModel) TableName() string { return "invoices" }

func invoiceToModel(rec *dominv.Record) invoiceModel {
	return invoiceModel{
		ID:             rec.ID(),
		Issuer:         rec.Issuer(),
		Recipient:      rec.Recipient(),
		SourceFormat:   rec.SourceFormat(),
		InternalFormat: rec.InternalFormat(),
		CreatedAt:      rec.CreatedAt(),
		Archived:       rec.Archived(),
		ArchivedAt:     rec.ArchivedAt(),
		ArchivedBy:     rec.ArchivedBy(),
	}
}

func (m *invoiceModel) toDomain() dominv.Record {
	return dominv.Reconstruct(
		m.ID, m.Issuer, m.Recipient, m.SourceFormat, m.InternalFormat, m.CreatedAt.UTC(),
		m.Archived, m.ArchivedAt, m.ArchivedBy,
	)
}

type mappingSpecModel struct {
	ID              string `gorm:"primaryKey;type:uuid"`
	SupplierID      string `gorm:"uniqueIndex;not null"`
	TemplateName    string
	TemplateContent string `gorm:"type:text"`
	Mapping         string `gorm:"type:jsonb"`
	Mapped          bool   `gorm:"index;not null;default:false"`
	MappedBy        string
	MappedAt        *time.Time
	UploadedAt      time.Time
}

func (mappingSpecModel) TableName() string { return "mapping_specs" }

func specToModel(spec *dommap.Spec) (mappingSpecModel, error) {
	m := mappingSpecModel{
		ID:              spec.ID(),
		SupplierID:      spec.SupplierID(),
		TemplateName:    spec.TemplateName(),
		TemplateContent: spec.TemplateContent(),
		Mapping:         "null",
		Mapped:          spec.Mapped(),
		MappedBy:        spec.MappedBy(),
		MappedAt:        spec.MappedAt(),
		UploadedAt:      spec.UploadedAt(),
	}
	if rules, ok := spec.Rules(); ok {
		data, err := json.Marshal(rules)
		if err != nil {
			return mappingSpecModel{}, fmt.Errorf("marshal mapping: %w", err)
		}
		m.Mapping = string(data)
	}
	return m, nil
}

func (m *mappingSpecModel) toDomain() (dommap.Spec, error) {
	var rules dommap.Rules
	if m.Mapping != "" && m.Mapping != "null" {
		var err error
		if rules, err = dommap.ParseRules([]byte(m.Mapping)); err != nil {
			return dommap.Spec{}, fmt.Errorf("stored mapping for %s: %w", m.SupplierID, err)
		}
	}
	return dommap.ReconstructSpec(
		m.ID, m.SupplierID, m.TemplateName, m.TemplateContent, rules,
		m.Mapped, m.MappedBy, m.MappedAt, m.UploadedAt.UTC(),
	), nil
}

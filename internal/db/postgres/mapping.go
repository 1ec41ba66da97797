package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kailas-cloud/invoicedex/internal/domain"
	dommap "github.com/kailas-cloud/invoicedex/internal/domain/mapping"
)

// MappingRepo stores mapping specs in the mapping_specs table.
type MappingRepo struct {
	db *DB
}

// NewMappingRepo creates a mapping spec repository over d.
func NewMappingRepo(d *DB) *MappingRepo {
	return &MappingRepo{db: d}
}

// Create stores a new spec. A supplier holds at most one.
func (r *MappingRepo) Create(ctx context.Context, spec dommap.Spec) error {
	m, err := specToModel(&spec)
	if err != nil {
		return err
	}
	res := r.db.gorm.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// Save overwrites the supplier's spec.
func (r *MappingRepo) Save(ctx context.Context, spec dommap.Spec) error {
	m, err := specToModel(&spec)
	if err != nil {
		return err
	}
	if err := r.db.gorm.WithContext(ctx).Save(&m).Error; err != nil {
		return wrap(err)
	}
	return nil
}

// GetBySupplier returns the supplier's spec.
func (r *MappingRepo) GetBySupplier(ctx context.Context, supplierID string) (dommap.Spec, error) {
	return r.first(ctx, "supplier_id = ?", supplierID)
}

// GetByID looks a spec up by its template id.
func (r *MappingRepo) GetByID(ctx context.Context, id string) (dommap.Spec, error) {
	return r.first(ctx, "id = ?", id)
}

// ListUnmapped returns templates still waiting for an administrator.
func (r *MappingRepo) ListUnmapped(ctx context.Context) ([]dommap.Spec, error) {
	var models []mappingSpecModel
	err := r.db.gorm.WithContext(ctx).Where("mapped = ?", false).Order("uploaded_at").Find(&models).Error
	if err != nil {
		return nil, wrap(err)
	}
	specs := make([]dommap.Spec, 0, len(models))
	for i := range models {
		spec, err := models[i].toDomain()
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (r *MappingRepo) first(ctx context.Context, where string, arg string) (dommap.Spec, error) {
	var m mappingSpecModel
	if err := r.db.gorm.WithContext(ctx).Where(where, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dommap.Spec{}, domain.ErrMappingSpecNotFound
		}
		return dommap.Spec{}, wrap(err)
	}
	return m.toDomain()
}

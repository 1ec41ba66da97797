package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kailas-cloud/invoicedex/internal/domain"
	dominv "github.com/kailas-cloud/invoicedex/internal/domain/invoice"
)

const batchSize = 500

// InvoiceRepo stores invoice records in the invoices table.
type InvoiceRepo struct {
	db *DB
}

// NewInvoiceRepo creates an invoice repository over d.
func NewInvoiceRepo(d *DB) *InvoiceRepo {
	return &InvoiceRepo{db: d}
}

// Create persists a new record.
func (r *InvoiceRepo) Create(ctx context.Context, rec dominv.Record) error {
	m := invoiceToModel(&rec)
	if err := r.db.gorm.WithContext(ctx).Create(&m).Error; err != nil {
		return wrap(err)
	}
	return nil
}

// CreateMany persists records in one transaction.
func (r *InvoiceRepo) CreateMany(ctx context.Context, recs []dominv.Record) error {
	if len(recs) == 0 {
		return nil
	}
	models := make([]invoiceModel, len(recs))
	for i := range recs {
		models[i] = invoiceToModel(&recs[i])
	}
	err := r.db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(models, batchSize).Error
	})
	if err != nil {
		return wrap(err)
	}
	return nil
}

// Get returns a record by id.
func (r *InvoiceRepo) Get(ctx context.Context, id string) (dominv.Record, error) {
	var m invoiceModel
	err := r.db.gorm.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dominv.Record{}, domain.ErrNotFound
		}
		return dominv.Record{}, wrap(err)
	}
	return m.toDomain(), nil
}

// Save overwrites the archive state of an existing record.
func (r *InvoiceRepo) Save(ctx context.Context, rec dominv.Record) error {
	res := r.db.gorm.WithContext(ctx).Model(&invoiceModel{}).Where("id = ?", rec.ID()).
		Select("archived", "archived_at", "archived_by").
		Updates(map[string]any{
			"archived":    rec.Archived(),
			"archived_at": rec.ArchivedAt(),
			"archived_by": rec.ArchivedBy(),
		})
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a record.
func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	res := r.db.gorm.WithContext(ctx).Where("id = ?", id).Delete(&invoiceModel{})
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByIssuer returns the supplier's invoices, newest first.
func (r *InvoiceRepo) ListByIssuer(ctx context.Context, issuer string) ([]dominv.Record, error) {
	return r.list(ctx, "issuer = ?", issuer)
}

// ListByRecipient returns the organization's invoices, newest first.
func (r *InvoiceRepo) ListByRecipient(ctx context.Context, recipient string) ([]dominv.Record, error) {
	return r.list(ctx, "recipient = ?", recipient)
}

// ListArchived returns the archived invoices received by recipient.
func (r *InvoiceRepo) ListArchived(ctx context.Context, recipient string) ([]dominv.Record, error) {
	return r.list(ctx, "recipient = ? AND archived = ?", recipient, true)
}

// ListPage returns one page of all records and the total count.
func (r *InvoiceRepo) ListPage(ctx context.Context, offset, limit int) ([]dominv.Record, int, error) {
	var total int64
	if err := r.db.gorm.WithContext(ctx).Model(&invoiceModel{}).Count(&total).Error; err != nil {
		return nil, 0, wrap(err)
	}
	var models []invoiceModel
	err := r.db.gorm.WithContext(ctx).Order("created_at, id").Offset(offset).Limit(limit).Find(&models).Error
	if err != nil {
		return nil, 0, wrap(err)
	}
	return toRecords(models), int(total), nil
}

func (r *InvoiceRepo) list(ctx context.Context, where string, args ...any) ([]dominv.Record, error) {
	var models []invoiceModel
	err := r.db.gorm.WithContext(ctx).Where(where, args...).Order("created_at DESC").Find(&models).Error
	if err != nil {
		return nil, wrap(err)
	}
	return toRecords(models), nil
}

func toRecords(models []invoiceModel) []dominv.Record {
	recs := make([]dominv.Record, len(models))
	for i := range models {
		recs[i] = models[i].toDomain()
	}
	return recs
}

package invoice

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/invoicedex/internal/domain"
	dominv "github.com/kailas-cloud/invoicedex/internal/domain/invoice"
	"github.com/kailas-cloud/invoicedex/internal/domain/source"
	"github.com/kailas-cloud/invoicedex/internal/logger"
	"github.com/kailas-cloud/invoicedex/internal/usecase/indexing"
)

// DefaultReindexPage is the page size used by Reindex.
const DefaultReindexPage = 500

// Service owns the invoice lifecycle: normalization, canonical persistence,
// archive state and the hand-off to the indexer. Index writes are never part
// of the persistence outcome.
type Service struct {
	repo    Repository
	norm    Normalizer
	indexer Indexer
	now     func() time.Time
}

// New creates an invoice service.
func New(repo Repository, norm Normalizer, indexer Indexer) *Service {
	return &Service{
		repo:    repo,
		norm:    norm,
		indexer: indexer,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create parses, normalizes and stores one invoice, then schedules its index
// write without waiting for it.
func (s *Service) Create(ctx context.Context, in CreateInput) (dominv.Record, error) {
	doc, err := parse(in.Filename, in.Payload)
	if err != nil {
		return dominv.Record{}, err
	}

	c, err := s.norm.Normalize(ctx, doc, in.SupplierID)
	if err != nil {
		return dominv.Record{}, fmt.Errorf("normalize: %w", err)
	}

	rec, err := dominv.NewRecord(in.SupplierID, in.OrganizationID, doc.Raw, &c, s.now())
	if err != nil {
		return dominv.Record{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return dominv.Record{}, fmt.Errorf("create invoice: %w", err)
	}

	s.indexer.IndexOne(ctx, jobFor(&rec, &c))
	return rec, nil
}

func parse(filename string, payload []byte) (source.Document, error) {
	if filename != "" {
		return source.ParseFile(filename, payload)
	}
	return source.Parse(payload)
}

// BulkCreate normalizes every CSV row, stores all of them and joins their
// index writes before returning. Any bad row rejects the whole upload before
// anything is stored.
func (s *Service) BulkCreate(ctx context.Context, in BulkInput) (BulkResult, error) {
	if !strings.EqualFold(filepath.Ext(in.Filename), ".csv") {
		return BulkResult{}, fmt.Errorf("%w: %q is not a CSV file", domain.ErrUnsupportedFileFormat, in.Filename)
	}
	if in.Mapping == "" {
		in.Mapping = BulkMappingFixed
	}

	rows, err := source.ReadCSV(in.Body)
	if err != nil {
		return BulkResult{}, err
	}

	now := s.now()
	recs := make([]dominv.Record, 0, len(rows))
	canon := make([]dominv.Canonical, 0, len(rows))
	for _, row := range rows {
		c, err := s.normalizeRow(ctx, row, in)
		if err != nil {
			return BulkResult{}, fmt.Errorf("row %d: %w", row.Line, err)
		}
		rec, err := dominv.NewRecord(in.SupplierID, in.OrganizationID, row.Raw(), &c, now)
		if err != nil {
			return BulkResult{}, fmt.Errorf("row %d: %w: %w", row.Line, domain.ErrInvalidRequest, err)
		}
		recs = append(recs, rec)
		canon = append(canon, c)
	}
	if len(recs) == 0 {
		return BulkResult{}, nil
	}

	if err := s.repo.CreateMany(ctx, recs); err != nil {
		return BulkResult{}, fmt.Errorf("create invoices: %w", err)
	}

	jobs := make([]indexing.Job, len(recs))
	for i := range recs {
		jobs[i] = jobFor(&recs[i], &canon[i])
	}
	res := s.indexer.IndexMany(ctx, jobs)

	return BulkResult{Count: len(recs), Indexed: res.Indexed, DeadLettered: res.DeadLettered}, nil
}

func (s *Service) normalizeRow(ctx context.Context, row source.Row, in BulkInput) (dominv.Canonical, error) {
	if in.Mapping == BulkMappingSupplier {
		return s.norm.NormalizeRowWithSupplier(ctx, row, in.SupplierID)
	}
	return s.norm.NormalizeRow(row)
}

// Get returns one stored invoice.
func (s *Service) Get(ctx context.Context, id string) (dominv.Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return dominv.Record{}, fmt.Errorf("get invoice: %w", err)
	}
	return rec, nil
}

// ListByIssuer returns the invoices a supplier issued.
func (s *Service) ListByIssuer(ctx context.Context, supplierID string) ([]dominv.Record, error) {
	if supplierID == "" {
		return nil, fmt.Errorf("%w: supplier_id is required", domain.ErrInvalidRequest)
	}
	recs, err := s.repo.ListByIssuer(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("list invoices by issuer: %w", err)
	}
	return nonNil(recs), nil
}

// ListByRecipient returns the invoices an organization received.
func (s *Service) ListByRecipient(ctx context.Context, organizationID string) ([]dominv.Record, error) {
	if organizationID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", domain.ErrInvalidRequest)
	}
	recs, err := s.repo.ListByRecipient(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list invoices by recipient: %w", err)
	}
	return nonNil(recs), nil
}

// ListArchived returns the archived invoices a user received.
func (s *Service) ListArchived(ctx context.Context, userID string) ([]dominv.Record, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidRequest)
	}
	recs, err := s.repo.ListArchived(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list archived invoices: %w", err)
	}
	return nonNil(recs), nil
}

// Archive marks an invoice archived on behalf of one of its parties and
// re-projects it so reports stop counting it.
func (s *Service) Archive(ctx context.Context, invoiceID, userID string) (dominv.Record, error) {
	return s.setArchived(ctx, invoiceID, userID, true)
}

// Restore clears the archive state of an invoice on behalf of one of its parties.
func (s *Service) Restore(ctx context.Context, invoiceID, userID string) (dominv.Record, error) {
	return s.setArchived(ctx, invoiceID, userID, false)
}

func (s *Service) setArchived(ctx context.Context, invoiceID, userID string, archived bool) (dominv.Record, error) {
	rec, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return dominv.Record{}, fmt.Errorf("get invoice: %w", err)
	}
	if !rec.IsParty(userID) {
		return dominv.Record{}, fmt.Errorf("%w: user %s is not a party to invoice %s", domain.ErrForbidden, userID, invoiceID)
	}

	if archived {
		rec.Archive(userID, s.now())
	} else {
		rec.Restore()
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		return dominv.Record{}, fmt.Errorf("save invoice: %w", err)
	}

	c, err := rec.Canonical()
	if err != nil {
		logger.FromContext(ctx).Warn("skip re-index of undecodable invoice",
			zap.String("invoice_id", rec.ID()), zap.Error(err))
		return rec, nil
	}
	s.indexer.IndexOne(ctx, jobFor(&rec, &c))
	return rec, nil
}

// Delete removes an invoice from the canonical store and its document from the index.
func (s *Service) Delete(ctx context.Context, invoiceID string) error {
	if err := s.repo.Delete(ctx, invoiceID); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if err := s.indexer.Remove(ctx, invoiceID); err != nil {
		return fmt.Errorf("delete invoice %s from index: %w", invoiceID, err)
	}
	return nil
}

// Reindex re-projects every stored invoice into the index, page by page.
// progress, if set, is called after each page with the running and total counts.
func (s *Service) Reindex(ctx context.Context, pageSize int, progress func(done, total int)) (ReindexResult, error) {
	if pageSize <= 0 {
		pageSize = DefaultReindexPage
	}
	ctx = logger.With(ctx, zap.String("op", "reindex"))

	var out ReindexResult
	for offset := 0; ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		recs, total, err := s.repo.ListPage(ctx, offset, pageSize)
		if err != nil {
			return out, fmt.Errorf("list invoices at %d: %w", offset, err)
		}
		out.Total = total
		if len(recs) == 0 {
			break
		}

		jobs := make([]indexing.Job, 0, len(recs))
		for i := range recs {
			c, err := recs[i].Canonical()
			if err != nil {
				logger.FromContext(ctx).Warn("skip re-index of undecodable invoice",
					zap.String("invoice_id", recs[i].ID()), zap.Error(err))
				out.Skipped = append(out.Skipped, recs[i].ID())
				continue
			}
			jobs = append(jobs, jobFor(&recs[i], &c))
		}
		res := s.indexer.IndexMany(ctx, jobs)
		out.Indexed += res.Indexed
		out.DeadLettered = append(out.DeadLettered, res.DeadLettered...)

		if progress != nil {
			progress(min(offset+len(recs), total), total)
		}
		if offset+len(recs) >= total {
			break
		}
	}
	return out, nil
}

func jobFor(rec *dominv.Record, c *dominv.Canonical) indexing.Job {
	return indexing.Job{
		InvoiceID: rec.ID(),
		Issuer:    rec.Issuer(),
		Recipient: rec.Recipient(),
		Invoice:   c,
		Archived:  rec.Archived(),
	}
}

func nonNil(recs []dominv.Record) []dominv.Record {
	if recs == nil {
		return []dominv.Record{}
	}
	return recs
}

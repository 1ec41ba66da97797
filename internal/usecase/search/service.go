package search

import (
	"context"
	"fmt"
	"slices"

	"github.com/kailas-cloud/invoicedex/internal/domain"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/document"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/query"
)

// DefaultSize is the page size used when a request does not set one.
const DefaultSize = 1000

// Service runs structured queries over the invoice index.
type Service struct {
	repo        Repository
	defaultSize int
}

// New creates a search service. A non-positive defaultSize falls back to DefaultSize.
func New(repo Repository, defaultSize int) *Service {
	if defaultSize <= 0 {
		defaultSize = DefaultSize
	}
	return &Service{repo: repo, defaultSize: defaultSize}
}

// Search builds a query from p and runs it. No hits is ErrEmptyResultSet.
func (s *Service) Search(ctx context.Context, p Params) ([]document.Hit, error) {
	q, err := Build(p)
	if err != nil {
		return nil, err
	}
	hits, _, err := s.run(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, domain.ErrEmptyResultSet
	}
	return hits, nil
}

// Preview compiles the advanced parameters without executing them.
func (s *Service) Preview(p Params) (query.Query, error) {
	return BuildAdvanced(p)
}

// ExecuteCompiled runs a previously compiled query verbatim. An empty page is
// a valid result here.
func (s *Service) ExecuteCompiled(ctx context.Context, q query.Query) (Page, error) {
	hits, total, err := s.run(ctx, q)
	if err != nil {
		return Page{}, err
	}
	if hits == nil {
		hits = []document.Hit{}
	}
	return Page{Total: total, Hits: hits}, nil
}

// OrganizationProducts lists the distinct item descriptions an organization
// was invoiced for, with the invoice currency and the sorted years of purchase.
func (s *Service) OrganizationProducts(ctx context.Context, p Params) ([]Product, error) {
	if p.OrganizationID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", domain.ErrInvalidRequest)
	}
	q, err := Build(p)
	if err != nil {
		return nil, err
	}
	hits, _, err := s.run(ctx, q.WithSize(s.defaultSize))
	if err != nil {
		return nil, err
	}

	products := make([]Product, 0)
	index := make(map[string]int)
	years := make(map[string]map[int]struct{})
	for i := range hits {
		doc := &hits[i].Document
		date, err := doc.Date()
		if err != nil {
			return nil, fmt.Errorf("hit %s: %w", hits[i].ID, err)
		}
		for _, item := range doc.Items {
			if _, ok := index[item.Description]; !ok {
				index[item.Description] = len(products)
				products = append(products, Product{Description: item.Description, Currency: doc.Currency})
				years[item.Description] = make(map[int]struct{})
			}
			years[item.Description][date.Year()] = struct{}{}
		}
	}
	for i := range products {
		products[i].Years = sortedYears(years[products[i].Description])
	}
	return products, nil
}

func (s *Service) run(ctx context.Context, q query.Query) ([]document.Hit, int, error) {
	size := q.Size()
	if size <= 0 {
		size = s.defaultSize
	}
	hits, total, err := s.repo.Search(ctx, q, size)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", domain.ErrQueryExecutionFailure, err)
	}
	return hits, total, nil
}

func sortedYears(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for y := range set {
		out = append(out, y)
	}
	slices.Sort(out)
	return out
}

package analytics

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/invoicedex/internal/domain"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/document"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/query"
)

// DefaultPageCap bounds the documents pulled for a single report.
const DefaultPageCap = 10000

// Service aggregates index documents into expenditure and price reports.
// All aggregation happens here, the index only filters.
type Service struct {
	repo    Repository
	pageCap int
}

// New creates an analytics service. A non-positive pageCap falls back to DefaultPageCap.
func New(repo Repository, pageCap int) *Service {
	if pageCap <= 0 {
		pageCap = DefaultPageCap
	}
	return &Service{repo: repo, pageCap: pageCap}
}

// ValidateYear rejects anything but a 4-digit year.
func ValidateYear(year int) error {
	if year < 1000 || year > 9999 {
		return fmt.Errorf("%w: year must be a valid 4-digit number", domain.ErrInvalidRequest)
	}
	return nil
}

// PriceDeviations reports the monthly mean unit price of a product for a year
// with its deviation from the mean of the monthly means.
func (s *Service) PriceDeviations(ctx context.Context, p ProductParams) ([]PriceDeviation, error) {
	lines, err := s.productLines(ctx, p)
	if err != nil {
		return nil, err
	}

	byMonth := make(map[int]*mean)
	for _, l := range lines {
		m, ok := byMonth[l.month]
		if !ok {
			m = &mean{}
			byMonth[l.month] = m
		}
		m.add(l.price)
	}

	months := sortedKeys(byMonth)
	overall := &mean{}
	for _, month := range months {
		overall.add(byMonth[month].value())
	}
	overallAvg := overall.value()

	out := make([]PriceDeviation, 0, len(months))
	for _, month := range months {
		price := byMonth[month].value()
		out = append(out, PriceDeviation{
			Month:           month,
			Price:           price.InexactFloat64(),
			OverallAvgPrice: overallAvg.InexactFloat64(),
			Deviation:       price.Sub(overallAvg).InexactFloat64(),
		})
	}
	return out, nil
}

// SuppliersPriceByMonth reports each seller's monthly mean unit price of a
// product for a year. Every seller carries all 12 months.
func (s *Service) SuppliersPriceByMonth(ctx context.Context, p ProductParams) ([]SupplierMonthlyPrices, error) {
	lines, err := s.productLines(ctx, p)
	if err != nil {
		return nil, err
	}

	bySupplier := make(map[string]map[int]*mean)
	for _, l := range lines {
		months, ok := bySupplier[l.supplier]
		if !ok {
			months = make(map[int]*mean)
			bySupplier[l.supplier] = months
		}
		m, ok := months[l.month]
		if !ok {
			m = &mean{}
			months[l.month] = m
		}
		m.add(l.price)
	}

	suppliers := sortedKeys(bySupplier)
	out := make([]SupplierMonthlyPrices, 0, len(suppliers))
	for _, name := range suppliers {
		prices := make(map[int]float64, 12)
		for month := 1; month <= 12; month++ {
			if m, ok := bySupplier[name][month]; ok {
				prices[month] = m.value().InexactFloat64()
				continue
			}
			prices[month] = 0
		}
		out = append(out, SupplierMonthlyPrices{Supplier: name, MonthlyPrices: prices})
	}
	return out, nil
}

// SupplierExpenditures sums invoice totals per seller for an organization and year.
// No invoices yields an empty list.
func (s *Service) SupplierExpenditures(ctx context.Context, organizationID string, year int) ([]SupplierExpenditure, error) {
	if organizationID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", domain.ErrInvalidRequest)
	}
	if err := ValidateYear(year); err != nil {
		return nil, err
	}

	hits, err := s.fetch(ctx, organizationID, &year, "")
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal)
	for i := range hits {
		doc := &hits[i].Document
		name := doc.Seller.CompanyName
		totals[name] = totals[name].Add(decimal.NewFromFloat(doc.Summary.TotalAmount))
	}

	names := sortedKeys(totals)
	out := make([]SupplierExpenditure, 0, len(names))
	for _, name := range names {
		out = append(out, SupplierExpenditure{SupplierName: name, TotalAmount: totals[name].InexactFloat64()})
	}
	return out, nil
}

// MonthlyExpenditures buckets invoice totals by calendar month for an
// organization, optionally limited to one year. Only months with data appear.
func (s *Service) MonthlyExpenditures(ctx context.Context, organizationID string, year *int) ([]MonthlyExpenditure, error) {
	if organizationID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", domain.ErrInvalidRequest)
	}
	if year != nil {
		if err := ValidateYear(*year); err != nil {
			return nil, err
		}
	}

	hits, err := s.fetch(ctx, organizationID, year, "")
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal)
	for i := range hits {
		doc := &hits[i].Document
		date, err := doc.Date()
		if err != nil {
			return nil, fmt.Errorf("hit %s: %w", hits[i].ID, err)
		}
		month := date.Format("2006-01")
		totals[month] = totals[month].Add(decimal.NewFromFloat(doc.Summary.TotalAmount))
	}

	months := sortedKeys(totals)
	out := make([]MonthlyExpenditure, 0, len(months))
	for _, month := range months {
		out = append(out, MonthlyExpenditure{Month: month, TotalExpenditure: totals[month].InexactFloat64()})
	}
	return out, nil
}

type productLine struct {
	supplier string
	month    int
	price    decimal.Decimal
}

// productLines pulls the line items whose description equals the product name
// exactly. The index match is only a prefilter. No lines is ErrEmptyResultSet.
func (s *Service) productLines(ctx context.Context, p ProductParams) ([]productLine, error) {
	if p.OrganizationID == "" || p.ProductName == "" {
		return nil, fmt.Errorf("%w: year, product_name and organization_id are required", domain.ErrInvalidRequest)
	}
	if err := ValidateYear(p.Year); err != nil {
		return nil, err
	}

	year := p.Year
	hits, err := s.fetch(ctx, p.OrganizationID, &year, p.ProductName)
	if err != nil {
		return nil, err
	}

	var lines []productLine
	for i := range hits {
		doc := &hits[i].Document
		date, err := doc.Date()
		if err != nil {
			return nil, fmt.Errorf("hit %s: %w", hits[i].ID, err)
		}
		for _, item := range doc.Items {
			if item.Description != p.ProductName {
				continue
			}
			lines = append(lines, productLine{
				supplier: doc.Seller.CompanyName,
				month:    int(date.Month()),
				price:    decimal.NewFromFloat(item.UnitPrice),
			})
		}
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyResultSet
	}
	return lines, nil
}

func (s *Service) fetch(ctx context.Context, organizationID string, year *int, product string) ([]document.Hit, error) {
	q, err := reportQuery(organizationID, year, product, s.pageCap)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	hits, _, err := s.repo.Search(ctx, q, s.pageCap)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrQueryExecutionFailure, err)
	}
	return hits, nil
}

func reportQuery(organizationID string, year *int, product string, size int) (query.Query, error) {
	recipient, err := query.Term("recipient", organizationID)
	if err != nil {
		return query.Query{}, err
	}
	active, err := query.Term("archived", "false")
	if err != nil {
		return query.Query{}, err
	}
	filter := []query.Clause{recipient, active}

	if year != nil {
		y := strconv.Itoa(*year)
		start, end := y+"-01-01", y+"-12-31"
		r, err := query.NewRangeBounds(&start, &end)
		if err != nil {
			return query.Query{}, err
		}
		dates, err := query.NewRange("invoice_date", r)
		if err != nil {
			return query.Query{}, err
		}
		filter = append(filter, dates)
	}

	var must []query.Clause
	if product != "" {
		c, err := query.NestedMatch("items", "items.description", product)
		if err != nil {
			return query.Query{}, err
		}
		must = append(must, c)
	}
	return query.New(must, filter, size)
}

type mean struct {
	sum   decimal.Decimal
	count int64
}

func (m *mean) add(v decimal.Decimal) {
	m.sum = m.sum.Add(v)
	m.count++
}

func (m *mean) value() decimal.Decimal {
	if m.count == 0 {
		return decimal.Zero
	}
	return m.sum.Div(decimal.NewFromInt(m.count))
}

func sortedKeys[K int | string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

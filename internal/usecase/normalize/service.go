package normalize

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/invoicedex/internal/domain"
	"github.com/kailas-cloud/invoicedex/internal/domain/invoice"
	"github.com/kailas-cloud/invoicedex/internal/domain/mapping"
	"github.com/kailas-cloud/invoicedex/internal/domain/source"
)

// Service turns parsed source documents into canonical invoices.
type Service struct {
	specs SpecReader
}

// New creates a normalizer backed by the supplier mapping spec store.
func New(specs SpecReader) *Service {
	return &Service{specs: specs}
}

// Normalize maps a parsed JSON or XML document with the supplier's spec.
func (s *Service) Normalize(ctx context.Context, doc source.Document, supplierID string) (invoice.Canonical, error) {
	rules, err := s.supplierRules(ctx, supplierID)
	if err != nil {
		return invoice.Canonical{}, err
	}
	return Map(doc.Tree, rules, MappingProfile)
}

// NormalizeRow maps one bulk CSV row with the fixed column layout.
func (s *Service) NormalizeRow(row source.Row) (invoice.Canonical, error) {
	c, err := Map(row.Tree(), DefaultCSVSpec(), CSVProfile)
	if err != nil {
		return invoice.Canonical{}, fmt.Errorf("csv line %d: %w", row.Line, err)
	}
	return c, nil
}

// NormalizeRowWithSupplier maps one CSV row with the supplier's own spec,
// treating column names as top-level keys.
func (s *Service) NormalizeRowWithSupplier(
	ctx context.Context, row source.Row, supplierID string,
) (invoice.Canonical, error) {
	rules, err := s.supplierRules(ctx, supplierID)
	if err != nil {
		return invoice.Canonical{}, err
	}
	c, err := Map(row.Tree(), rules, MappingProfile)
	if err != nil {
		return invoice.Canonical{}, fmt.Errorf("csv line %d: %w", row.Line, err)
	}
	return c, nil
}

func (s *Service) supplierRules(ctx context.Context, supplierID string) (mapping.Rules, error) {
	spec, err := s.specs.GetBySupplier(ctx, supplierID)
	if err != nil {
		return mapping.Rules{}, fmt.Errorf("get mapping spec: %w", err)
	}
	rules, ok := spec.Rules()
	if !ok {
		return mapping.Rules{}, fmt.Errorf("supplier %s has no mapping yet: %w", supplierID, domain.ErrMappingSpecNotFound)
	}
	return rules, nil
}

// Map builds a canonical invoice from a tree. Every leaf is written, falling
// back to the profile defaults when the rules omit it or the source lacks it.
func Map(tree source.Value, rules mapping.Rules, p Profile) (invoice.Canonical, error) {
	var c invoice.Canonical
	strs, floats := targets(&c)

	for _, leaf := range mapping.Leaves {
		v := source.Missing
		if rule, ok := rules.Rule(leaf.Key); ok {
			var err error
			if v, err = Apply(tree, rule, p.Miss); err != nil {
				return invoice.Canonical{}, err
			}
		}
		out, err := coerceLeaf(v, leaf.Type, p)
		if err != nil {
			return invoice.Canonical{}, domain.NewFieldError(leaf.Key, err)
		}
		switch leaf.Type {
		case mapping.TypeFloat:
			*floats[leaf.Key] = out.(float64)
		default:
			*strs[leaf.Key] = out.(string)
		}
	}

	if p.SourceDateLayout != "" {
		c.Header.InvoiceDate = reformatDate(c.Header.InvoiceDate, p)
		c.Header.DueDate = reformatDate(c.Header.DueDate, p)
	}

	items, err := mapItems(tree, rules, p)
	if err != nil {
		return invoice.Canonical{}, err
	}
	c.Items = items
	return c, nil
}

func mapItems(tree source.Value, rules mapping.Rules, p Profile) ([]invoice.Item, error) {
	desc, ok := rules.Items()
	if !ok {
		return []invoice.Item{}, nil
	}

	container := tree
	if desc.Container != "" {
		var err error
		if container, err = Resolve(tree, desc.Container, p.Miss); err != nil {
			return nil, err
		}
	}

	elems := container.Items()
	items := make([]invoice.Item, 0, len(elems))
	for i, elem := range elems {
		var item invoice.Item
		for _, leaf := range mapping.ItemLeaves {
			v := source.Missing
			if rule, ok := desc.Fields[leaf.Key]; ok {
				var err error
				if v, err = Apply(elem, rule, p.Miss); err != nil {
					return nil, err
				}
			}
			out, err := coerceLeaf(v, leaf.Type, p)
			if err != nil {
				return nil, domain.NewFieldError(fmt.Sprintf("items[%d].%s", i, leaf.Key), err)
			}
			switch leaf.Key {
			case "description":
				item.Description = out.(string)
			case "quantity":
				item.Quantity = out.(int64)
			case "unit_price":
				item.UnitPrice = out.(float64)
			case "total_price":
				item.TotalPrice = out.(float64)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func coerceLeaf(v source.Value, typ mapping.ValueType, p Profile) (any, error) {
	if typ != mapping.TypeString {
		return Coerce(v, typ)
	}
	s := Text(v)
	if p.CleanText && v.Kind() == source.KindString {
		s = CleanNumber(s)
	}
	if s == "" && p.MissingText != "" {
		s = p.MissingText
	}
	return s, nil
}

func reformatDate(s string, p Profile) string {
	t, err := time.Parse(p.SourceDateLayout, s)
	if err != nil {
		return p.InvalidDate
	}
	return t.Format(invoice.DateLayout)
}

func targets(c *invoice.Canonical) (map[string]*string, map[string]*float64) {
	strs := map[string]*string{
		"header.invoice_number":               &c.Header.InvoiceNumber,
		"header.invoice_date":                 &c.Header.InvoiceDate,
		"header.due_date":                     &c.Header.DueDate,
		"header.currency":                     &c.Header.Currency,
		"seller.company_name":                 &c.Seller.CompanyName,
		"seller.address.street":               &c.Seller.Address.Street,
		"seller.address.city":                 &c.Seller.Address.City,
		"seller.address.state":                &c.Seller.Address.State,
		"seller.address.zip_code":             &c.Seller.Address.ZipCode,
		"seller.address.country":              &c.Seller.Address.Country,
		"seller.contact.name":                 &c.Seller.Contact.Name,
		"seller.contact.phone":                &c.Seller.Contact.Phone,
		"seller.contact.email":                &c.Seller.Contact.Email,
		"buyer.company_name":                  &c.Buyer.CompanyName,
		"buyer.address.street":                &c.Buyer.Address.Street,
		"buyer.address.city":                  &c.Buyer.Address.City,
		"buyer.address.state":                 &c.Buyer.Address.State,
		"buyer.address.zip_code":              &c.Buyer.Address.ZipCode,
		"buyer.address.country":               &c.Buyer.Address.Country,
		"buyer.contact.name":                  &c.Buyer.Contact.Name,
		"buyer.contact.phone":                 &c.Buyer.Contact.Phone,
		"buyer.contact.email":                 &c.Buyer.Contact.Email,
		"payment_instructions.bank_name":      &c.PaymentInstructions.BankName,
		"payment_instructions.account_number": &c.PaymentInstructions.AccountNumber,
		"payment_instructions.routing_number": &c.PaymentInstructions.RoutingNumber,
		"payment_instructions.swift":          &c.PaymentInstructions.Swift,
		"notes.note":                          &c.Notes.Note,
	}
	floats := map[string]*float64{
		"summary.subtotal":     &c.Summary.Subtotal,
		"summary.tax_rate":     &c.Summary.TaxRate,
		"summary.tax_amount":   &c.Summary.TaxAmount,
		"summary.total_amount": &c.Summary.TotalAmount,
		"summary.discount":     &c.Summary.Discount,
	}
	return strs, floats
}

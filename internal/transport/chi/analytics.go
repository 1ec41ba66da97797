package chi

import (
	"bytes"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/invoicedex/internal/domain"
	"github.com/kailas-cloud/invoicedex/internal/transport/xlsx"
	analyticsuc "github.com/kailas-cloud/invoicedex/internal/usecase/analytics"
)

// Report formats.
const (
	formatJSON = "json"
	formatXLSX = "xlsx"
)

func productParams(r *http.Request) (analyticsuc.ProductParams, error) {
	org, err := requiredString(r, "organization_id")
	if err != nil {
		return analyticsuc.ProductParams{}, err
	}
	product, err := requiredString(r, "product_name")
	if err != nil {
		return analyticsuc.ProductParams{}, err
	}
	year, err := requiredInt(r, "year")
	if err != nil {
		return analyticsuc.ProductParams{}, err
	}
	return analyticsuc.ProductParams{OrganizationID: org, ProductName: product, Year: year}, nil
}

func reportFormat(r *http.Request) (string, error) {
	switch f := r.URL.Query().Get("format"); f {
	case "", formatJSON:
		return formatJSON, nil
	case formatXLSX:
		return formatXLSX, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", domain.ErrInvalidRequest, f)
	}
}

// ProductPriceDeviations handles GET /analytics/product-price-deviations.
func (s *Server) ProductPriceDeviations(w http.ResponseWriter, r *http.Request) {
	p, err := productParams(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	out, err := s.analytics.PriceDeviations(r.Context(), p)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// SuppliersPriceByMonth handles GET /analytics/suppliers-price-by-month.
func (s *Server) SuppliersPriceByMonth(w http.ResponseWriter, r *http.Request) {
	p, err := productParams(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	out, err := s.analytics.SuppliersPriceByMonth(r.Context(), p)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// SupplierExpenditures handles GET /analytics/supplier-expenditures.
func (s *Server) SupplierExpenditures(w http.ResponseWriter, r *http.Request) {
	org, err := requiredString(r, "organization_id")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	year, err := requiredInt(r, "year")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	format, err := reportFormat(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out, err := s.analytics.SupplierExpenditures(r.Context(), org, year)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if format == formatXLSX {
		s.writeWorkbook(w, r, fmt.Sprintf("supplier-expenditures-%d.xlsx", year), func(buf *bytes.Buffer) error {
			return xlsx.WriteSupplierExpenditures(buf, out)
		})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// MonthlyExpenditure handles GET /analytics/monthly-expenditure. year is optional.
func (s *Server) MonthlyExpenditure(w http.ResponseWriter, r *http.Request) {
	org, err := requiredString(r, "organization_id")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	year, err := optionalInt(r, "year")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	format, err := reportFormat(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out, err := s.analytics.MonthlyExpenditures(r.Context(), org, year)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if format == formatXLSX {
		s.writeWorkbook(w, r, "monthly-expenditure.xlsx", func(buf *bytes.Buffer) error {
			return xlsx.WriteMonthlyExpenditures(buf, out)
		})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// writeWorkbook renders into a buffer first so a failed render still gets a JSON error.
func (s *Server) writeWorkbook(w http.ResponseWriter, r *http.Request, filename string, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		s.requestLogger(r).Error("render workbook", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
		return
	}
	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

package chi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/invoicedex/internal/domain"
	searchuc "github.com/kailas-cloud/invoicedex/internal/usecase/search"
)

// optionalInt binds an optional integer query parameter.
func optionalInt(r *http.Request, name string) (*int, error) {
	var v *int
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidRequest, name)
	}
	return v, nil
}

// requiredInt binds a mandatory integer query parameter.
func requiredInt(r *http.Request, name string) (int, error) {
	if r.URL.Query().Get(name) == "" {
		return 0, fmt.Errorf("%w: %s is required", domain.ErrInvalidRequest, name)
	}
	var v int
	if err := runtime.BindQueryParameter("form", true, true, name, r.URL.Query(), &v); err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidRequest, name)
	}
	return v, nil
}

// requiredString returns a non-empty query parameter.
func requiredString(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", domain.ErrInvalidRequest, name)
	}
	return v, nil
}

func searchParamsFromQuery(r *http.Request) (searchuc.Params, error) {
	q := r.URL.Query()
	size, err := optionalInt(r, "size")
	if err != nil {
		return searchuc.Params{}, err
	}
	p := searchuc.Params{
		Query:           q.Get("query"),
		OrganizationID:  q.Get("organization_id"),
		SupplierName:    q.Get("supplier_name"),
		StartDate:       q.Get("start_date"),
		EndDate:         q.Get("end_date"),
		InvoiceNumber:   q.Get("invoice_number"),
		Currency:        q.Get("currency"),
		Issuer:          q.Get("issuer"),
		BuyerName:       q.Get("buyer_name"),
		TotalAmountMin:  q.Get("total_amount_min"),
		TotalAmountMax:  q.Get("total_amount_max"),
		ItemDescription: q.Get("item_description"),
	}
	if size != nil {
		p.Size = *size
	}
	return p, nil
}

// searchParamsBody is the JSON form of the advanced search parameters.
type searchParamsBody struct {
	SupplierName    string `json:"supplier_name"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	InvoiceNumber   string `json:"invoice_number"`
	Currency        string `json:"currency"`
	Issuer          string `json:"issuer"`
	BuyerName       string `json:"buyer_name"`
	TotalAmountMin  string `json:"total_amount_min"`
	TotalAmountMax  string `json:"total_amount_max"`
	ItemDescription string `json:"item_description"`
	Size            int    `json:"size"`
}

func (b searchParamsBody) params() searchuc.Params {
	return searchuc.Params{
		SupplierName:    b.SupplierName,
		StartDate:       b.StartDate,
		EndDate:         b.EndDate,
		InvoiceNumber:   b.InvoiceNumber,
		Currency:        b.Currency,
		Issuer:          b.Issuer,
		BuyerName:       b.BuyerName,
		TotalAmountMin:  b.TotalAmountMin,
		TotalAmountMax:  b.TotalAmountMax,
		ItemDescription: b.ItemDescription,
		Size:            b.Size,
	}
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// parseMultipart reads the form, keeping at most maxBytes in memory.
func parseMultipart(r *http.Request, maxBytes int64) error {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return badBody(err)
	}
	return nil
}

// formFile reads a named file part. ok is false when the part is absent.
func formFile(r *http.Request, name string) (data []byte, filename string, ok bool, err error) {
	f, hdr, err := r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, badBody(err)
	}
	defer f.Close()
	data, err = io.ReadAll(f)
	if err != nil {
		return nil, "", false, badBody(err)
	}
	return data, hdr.Filename, true, nil
}

// openFormFile returns the named file part as a stream.
func openFormFile(r *http.Request, name string) (multipart.File, *multipart.FileHeader, error) {
	f, hdr, err := r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, fmt.Errorf("%w: %s file is required", domain.ErrInvalidRequest, name)
	}
	if err != nil {
		return nil, nil, badBody(err)
	}
	return f, hdr, nil
}

// badBody maps body read failures to request errors. Oversized bodies keep
// their identity so the handler can answer 413.
func badBody(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: invalid request body: %w", domain.ErrInvalidRequest, err)
}

package invoice

import (
	"encoding/json"
	"fmt"
)

// DateLayout is the canonical date format for header dates.
const DateLayout = "2006-01-02"

// Canonical is the fixed-shape invoice every source document is normalized into.
// Every leaf is always present in its JSON form; absent source data becomes "", 0 or 0.0.
type Canonical struct {
	Header              Header              `json:"header"`
	Seller              Party               `json:"seller"`
	Buyer               Party               `json:"buyer"`
	Items               []Item              `json:"items"`
	Summary             Summary             `json:"summary"`
	PaymentInstructions PaymentInstructions `json:"payment_instructions"`
	Notes               Notes               `json:"notes"`
}

// Header holds invoice identification.
type Header struct {
	InvoiceNumber string `json:"invoice_number"`
	InvoiceDate   string `json:"invoice_date"`
	DueDate       string `json:"due_date"`
	Currency      string `json:"currency"`
}

// Party is a seller or buyer.
type Party struct {
	CompanyName string  `json:"company_name"`
	Address     Address `json:"address"`
	Contact     Contact `json:"contact"`
}

// Address of a party.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// Contact of a party.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Item is one invoice line.
type Item struct {
	Description string  `json:"description"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

// Summary holds invoice totals.
type Summary struct {
	Subtotal    float64 `json:"subtotal"`
	TaxRate     float64 `json:"tax_rate"`
	TaxAmount   float64 `json:"tax_amount"`
	TotalAmount float64 `json:"total_amount"`
	Discount    float64 `json:"discount"`
}

// PaymentInstructions holds bank details.
type PaymentInstructions struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number"`
	Swift         string `json:"swift"`
}

// Notes holds free-form remarks.
type Notes struct {
	Note string `json:"note"`
}

// Marshal serializes the invoice into its internal_format representation.
// A nil item list is written as [] so the shape is never partial.
func (c *Canonical) Marshal() (string, error) {
	out := *c
	if out.Items == nil {
		out.Items = []Item{}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal canonical invoice: %w", err)
	}
	return string(data), nil
}

// Unmarshal parses an internal_format representation.
func Unmarshal(data string) (Canonical, error) {
	var c Canonical
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return Canonical{}, fmt.Errorf("unmarshal canonical invoice: %w", err)
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	return c, nil
}

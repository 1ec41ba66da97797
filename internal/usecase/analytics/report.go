package analytics

// PriceDeviation is the mean unit price of a product in one month of a year
// and its distance from the mean of that year's monthly means.
type PriceDeviation struct {
	Month           int     `json:"month"`
	Price           float64 `json:"price"`
	OverallAvgPrice float64 `json:"overall_avg_price"`
	Deviation       float64 `json:"deviation"`
}

// SupplierExpenditure is the total invoiced by one seller.
type SupplierExpenditure struct {
	SupplierName string  `json:"supplier_name"`
	TotalAmount  float64 `json:"total_amount"`
}

// MonthlyExpenditure is the invoiced total of one calendar month (YYYY-MM).
type MonthlyExpenditure struct {
	Month            string  `json:"month"`
	TotalExpenditure float64 `json:"total_expenditure"`
}

// SupplierMonthlyPrices holds a seller's mean unit price for months 1 to 12.
// Months without purchases are 0.
type SupplierMonthlyPrices struct {
	Supplier      string          `json:"supplier"`
	MonthlyPrices map[int]float64 `json:"monthly_prices"`
}

// ProductParams select one product bought by an organization in a year.
type ProductParams struct {
	OrganizationID string
	ProductName    string
	Year           int
}

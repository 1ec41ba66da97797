// Package xlsx renders analytics reports as Excel workbooks.
package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	analyticsuc "github.com/kailas-cloud/invoicedex/internal/usecase/analytics"
)

// ContentType is the MIME type of an .xlsx workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names.
const (
	SheetMonthly   = "Monthly Expenditure"
	SheetSuppliers = "Supplier Expenditure"
)

// WriteMonthlyExpenditures writes one row per month.
func WriteMonthlyExpenditures(w io.Writer, rows []analyticsuc.MonthlyExpenditure) error {
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = []any{r.Month, r.TotalExpenditure}
	}
	return write(w, SheetMonthly, []any{"Month", "Total Expenditure"}, values)
}

// WriteSupplierExpenditures writes one row per supplier.
func WriteSupplierExpenditures(w io.Writer, rows []analyticsuc.SupplierExpenditure) error {
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = []any{r.SupplierName, r.TotalAmount}
	}
	return write(w, SheetSuppliers, []any{"Supplier", "Total Amount"}, values)
}

func write(w io.Writer, sheet string, headers []any, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(sheet, "A", "B", 24); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

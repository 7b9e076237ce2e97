package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// totalsTolerance is the absolute tolerance when comparing the declared total
// against the sum of line totals.
var totalsTolerance = decimal.NewFromFloat(0.01)

// ConfirmLineItem is one line of a candidate invoice payload at confirm time.
type ConfirmLineItem struct {
	Description     string           `json:"description"`
	SKU             string           `json:"sku"`
	Quantity        *decimal.Decimal `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
	LineTotal       *decimal.Decimal `json:"line_total"`
	ExtractedHSCode string           `json:"extracted_hs_code"`
}

// ConfirmPayload is the candidate invoice a user submits when confirming a
// draft. It is gated by the reconciliation rules before anything is persisted.
type ConfirmPayload struct {
	SupplierName  string            `json:"supplier_name"`
	InvoiceNumber string            `json:"invoice_number"`
	InvoiceDate   string            `json:"invoice_date"`
	DueDate       string            `json:"due_date"`
	Incoterm      string            `json:"incoterm"`
	Currency      string            `json:"currency"`
	TotalValue    *decimal.Decimal  `json:"total_value"`
	FreightCost   *decimal.Decimal  `json:"freight_cost"`
	InsuranceCost *decimal.Decimal  `json:"insurance_cost"`
	LineItems     []ConfirmLineItem `json:"line_items"`
}

// ValidateRequiredFields checks field presence. Every missing condition yields
// its own error string; all checks run.
func ValidateRequiredFields(payload ConfirmPayload) []string {
	errors := []string{}
	if payload.Currency == "" {
		errors = append(errors, "currency required")
	}
	if payload.InvoiceDate == "" {
		errors = append(errors, "invoice_date required")
	}
	if len(payload.LineItems) == 0 {
		errors = append(errors, "at least one line item required")
	}
	return errors
}

// ValidateQuantities reports every line item with a negative quantity by index.
func ValidateQuantities(payload ConfirmPayload) []string {
	errors := []string{}
	for idx, item := range payload.LineItems {
		if item.Quantity != nil && item.Quantity.IsNegative() {
			errors = append(errors, fmt.Sprintf("line_items[%d].quantity must be >= 0", idx))
		}
	}
	return errors
}

// ReconcileTotals sums the line totals, falling back to quantity * unit_price
// when a line total is absent, and compares against the declared total within
// an absolute tolerance of 0.01. If no total is declared the check is skipped.
func ReconcileTotals(payload ConfirmPayload) (bool, string) {
	if len(payload.LineItems) == 0 {
		return true, ""
	}

	sum := decimal.Zero
	for _, item := range payload.LineItems {
		if item.LineTotal != nil {
			sum = sum.Add(*item.LineTotal)
			continue
		}
		qty := decimal.Zero
		if item.Quantity != nil {
			qty = *item.Quantity
		}
		unitPrice := decimal.Zero
		if item.UnitPrice != nil {
			unitPrice = *item.UnitPrice
		}
		sum = sum.Add(qty.Mul(unitPrice))
	}

	if payload.TotalValue == nil {
		return true, ""
	}
	if sum.Sub(*payload.TotalValue).Abs().GreaterThan(totalsTolerance) {
		return false, "total_value does not match sum of line totals"
	}
	return true, ""
}

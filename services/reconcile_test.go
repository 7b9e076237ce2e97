package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRequiredFields_AllErrorsReported(t *testing.T) {
	errors := ValidateRequiredFields(ConfirmPayload{})
	assert.Contains(t, errors, "currency required")
	assert.Contains(t, errors, "invoice_date required")
	assert.Contains(t, errors, "at least one line item required")

	errors = ValidateRequiredFields(ConfirmPayload{
		Currency:    "USD",
		InvoiceDate: "2026-01-01",
		LineItems:   []ConfirmLineItem{{Description: "Item"}},
	})
	assert.Empty(t, errors)
}

func TestValidateQuantities_ReportsPerIndex(t *testing.T) {
	payload := ConfirmPayload{
		LineItems: []ConfirmLineItem{
			{Description: "ok", Quantity: dec("2")},
			{Description: "negative", Quantity: dec("-1")},
			{Description: "absent"},
			{Description: "also negative", Quantity: dec("-0.5")},
		},
	}
	errors := ValidateQuantities(payload)
	assert.Equal(t, []string{
		"line_items[1].quantity must be >= 0",
		"line_items[3].quantity must be >= 0",
	}, errors)
}

func TestReconcileTotals_WithinTolerance(t *testing.T) {
	payload := ConfirmPayload{
		TotalValue: dec("100.00"),
		LineItems: []ConfirmLineItem{
			{Description: "Item", Quantity: dec("2"), UnitPrice: dec("50.0"), LineTotal: dec("100.0")},
		},
	}
	ok, msg := ReconcileTotals(payload)
	assert.True(t, ok)
	assert.Empty(t, msg)

	// Perturbing the line total by more than the tolerance flips the verdict.
	payload.LineItems[0].LineTotal = dec("100.02")
	ok, msg = ReconcileTotals(payload)
	assert.False(t, ok)
	assert.Equal(t, "total_value does not match sum of line totals", msg)
}

func TestReconcileTotals_FallsBackToQuantityTimesUnitPrice(t *testing.T) {
	payload := ConfirmPayload{
		TotalValue: dec("150"),
		LineItems: []ConfirmLineItem{
			{Description: "priced", Quantity: dec("3"), UnitPrice: dec("40")},
			{Description: "totaled", LineTotal: dec("30")},
			{Description: "bare"}, // missing quantity and unit price count as zero
		},
	}
	ok, msg := ReconcileTotals(payload)
	assert.True(t, ok)
	assert.Empty(t, msg)
}

func TestReconcileTotals_SkippedWithoutDeclaredTotal(t *testing.T) {
	payload := ConfirmPayload{
		LineItems: []ConfirmLineItem{
			{Description: "Item", LineTotal: dec("999")},
		},
	}
	ok, msg := ReconcileTotals(payload)
	assert.True(t, ok)
	assert.Empty(t, msg)
}

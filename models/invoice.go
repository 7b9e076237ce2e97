package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Invoice struct {
	ID             string           `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	UserID         string           `gorm:"type:uuid;not null;index" json:"user_id"`
	SupplierName   string           `gorm:"size:255" json:"supplier_name"`
	InvoiceNumber  string           `gorm:"size:100" json:"invoice_number"`
	InvoiceDate    string           `gorm:"size:20" json:"invoice_date"`
	DueDate        string           `gorm:"size:20" json:"due_date"`
	Incoterm       string           `gorm:"size:10" json:"incoterm"`
	Currency       string           `gorm:"size:10;not null" json:"currency"`
	TotalValue     *decimal.Decimal `gorm:"type:numeric(18,6)" json:"total_value"`
	FreightCost    *decimal.Decimal `gorm:"type:numeric(18,6)" json:"freight_cost"`
	InsuranceCost  *decimal.Decimal `gorm:"type:numeric(18,6)" json:"insurance_cost"`
	Status         string           `gorm:"size:32;default:'DRAFT'" json:"status"` // DRAFT, VALIDATED, CONFIRMED
	SourceUploadID string           `gorm:"type:uuid" json:"source_upload_id"`

	Items []InvoiceLineItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
}

// TableName overrides the table name
func (Invoice) TableName() string {
	return "invoices"
}

func (inv *Invoice) BeforeCreate(tx *gorm.DB) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	return nil
}

type InvoiceLineItem struct {
	ID              string           `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID       string           `gorm:"type:uuid;not null;uniqueIndex:idx_line_items_invoice_sort" json:"invoice_id"`
	Description     string           `gorm:"size:512;not null" json:"description"`
	SKU             string           `gorm:"size:64" json:"sku"`
	Quantity        decimal.Decimal  `gorm:"type:numeric(12,3);not null" json:"quantity"`
	UnitPrice       *decimal.Decimal `gorm:"type:numeric(12,2)" json:"unit_price"`
	LineTotal       *decimal.Decimal `gorm:"type:numeric(14,2)" json:"line_total"`
	ExtractedHSCode string           `gorm:"size:20" json:"extracted_hs_code"`
	ValidatedHSCode string           `gorm:"size:20" json:"validated_hs_code"`
	HSConfidence    *decimal.Decimal `gorm:"type:numeric(5,3)" json:"hs_confidence"`
	// SortOrder is unique per invoice and defines processing order.
	SortOrder int `gorm:"not null;uniqueIndex:idx_line_items_invoice_sort" json:"sort_order"`
}

// TableName overrides the table name
func (InvoiceLineItem) TableName() string {
	return "invoice_line_items"
}

func (li *InvoiceLineItem) BeforeCreate(tx *gorm.DB) error {
	if li.ID == "" {
		li.ID = uuid.NewString()
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type UploadedDocument struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UserID      string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Filename    string    `gorm:"size:255;not null" json:"filename"`
	ContentType string    `gorm:"size:100;not null" json:"content_type"`
	StoragePath string    `gorm:"size:512;not null" json:"storage_path"`
	SHA256      string    `gorm:"size:64;not null" json:"sha256"`
	SizeBytes   int64     `gorm:"not null" json:"size_bytes"`
}

// TableName overrides the table name
func (UploadedDocument) TableName() string {
	return "uploaded_documents"
}

func (d *UploadedDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// Draft lifecycle states between extraction and confirmation.
const (
	DraftStatusExtracting  = "EXTRACTING"
	DraftStatusExtracted   = "EXTRACTED"
	DraftStatusNeedsReview = "NEEDS_REVIEW"
	DraftStatusConfirmed   = "CONFIRMED"
)

type DraftInvoice struct {
	ID                 string           `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	UserID             string           `gorm:"type:uuid;not null;index" json:"user_id"`
	UploadID           string           `gorm:"type:uuid;not null" json:"upload_id"`
	Status             string           `gorm:"size:32;not null" json:"status"` // EXTRACTING, EXTRACTED, NEEDS_REVIEW, CONFIRMED
	ExtractedPayload   JSONMap          `gorm:"type:json" json:"extracted_payload"`
	ConfirmedPayload   JSONMap          `gorm:"type:json" json:"confirmed_payload"`
	Confidence         *decimal.Decimal `gorm:"type:numeric(4,3)" json:"confidence"`
	Warnings           JSONMap          `gorm:"type:json" json:"warnings"`
	RawTextExcerpt     string           `gorm:"size:2000" json:"raw_text_excerpt"`
	ConfirmedInvoiceID *string          `gorm:"type:uuid" json:"confirmed_invoice_id"`
}

// TableName overrides the table name
func (DraftInvoice) TableName() string {
	return "draft_invoices"
}

func (d *DraftInvoice) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

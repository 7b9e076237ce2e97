package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompanyUK holds the Companies House profile plus VAT/EORI numbers submitted
// during the UK exporter upgrade flow.
type CompanyUK struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	UserID        string    `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	CompanyNumber string    `gorm:"size:20;not null" json:"company_number"`
	CompanyName   string    `gorm:"size:255" json:"company_name"`
	CompanyStatus string    `gorm:"size:50" json:"company_status"`
	VATNumber     string    `gorm:"size:20" json:"vat_number"`
	EORINumber    string    `gorm:"size:20" json:"eori_number"`
}

// TableName overrides the table name
func (CompanyUK) TableName() string {
	return "companies_uk"
}

func (c *CompanyUK) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

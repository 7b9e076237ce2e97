package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FirstName    string         `gorm:"size:100" json:"first_name"`
	LastName     string         `gorm:"size:100" json:"last_name"`
	AuthProvider string         `gorm:"size:20" json:"auth_provider"`               // google, microsoft
	Plan         string         `gorm:"size:20;default:'free'" json:"plan"`         // free, pro
	AccountType  string         `gorm:"size:20;default:'free'" json:"account_type"` // free, uk_exporter, forwarder, eu_member, admin
	Status       string         `gorm:"size:20;default:'active'" json:"status"`     // active, pending, blocked
	IsActive     bool           `gorm:"default:true" json:"is_active"`
}

// Account types a user can hold. Switching between paid account types is not
// allowed once granted.
const (
	AccountFree       = "free"
	AccountUKExporter = "uk_exporter"
	AccountForwarder  = "forwarder"
	AccountEUMember   = "eu_member"
	AccountAdmin      = "admin"
)

const (
	PlanFree = "free"
	PlanPro  = "pro"
)

const (
	UserStatusActive  = "active"
	UserStatusPending = "pending"
	UserStatusBlocked = "blocked"
)

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

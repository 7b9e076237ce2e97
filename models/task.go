package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSONMap stores a free-form JSON object in a single column. Task payloads and
// resolutions carry per-task-type structured data (prompts, candidate codes,
// computed estimates) supplied by the validation engine and the resolver.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for JSONMap")
	}
	return json.Unmarshal(data, m)
}

// Task types surfaced by the validation engine.
const (
	TaskFreightRequired   = "FREIGHT_REQUIRED"
	TaskInsuranceRequired = "INSURANCE_REQUIRED"
	TaskHSCodeMissing     = "HS_CODE_MISSING"
	TaskHSCodeRefinement  = "HS_CODE_REFINEMENT"
)

// A task moves OPEN -> RESOLVED exactly once; it is never re-opened or deleted.
const (
	TaskStatusOpen     = "OPEN"
	TaskStatusResolved = "RESOLVED"
)

type ValidationTask struct {
	ID         string     `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID  string     `gorm:"type:uuid;not null;index" json:"invoice_id"`
	LineItemID *string    `gorm:"type:uuid" json:"line_item_id"`
	TaskType   string     `gorm:"size:64;not null" json:"task_type"`
	Status     string     `gorm:"size:32;not null;default:'OPEN'" json:"status"` // OPEN, RESOLVED
	Payload    JSONMap    `gorm:"type:json" json:"payload"`
	Resolution JSONMap    `gorm:"type:json" json:"resolution"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at"`
}

// TableName overrides the table name
func (ValidationTask) TableName() string {
	return "validation_tasks"
}

func (t *ValidationTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

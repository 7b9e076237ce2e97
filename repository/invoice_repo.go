package repository

import (
	"errors"
	"fmt"

	"github.com/yourusername/tradegate/models"
	"gorm.io/gorm"
)

// InvoiceRepository is the persistence layer for invoices, line items, drafts
// and validation tasks. Lookups that find nothing return (nil, nil) so callers
// can map absence to a not-found response.
type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) GetInvoice(id string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *InvoiceRepository) ListLineItems(invoiceID string) ([]models.InvoiceLineItem, error) {
	var items []models.InvoiceLineItem
	err := r.db.Where("invoice_id = ?", invoiceID).Order("sort_order asc").Find(&items).Error
	return items, err
}

func (r *InvoiceRepository) ListOpenTasks(invoiceID string) ([]models.ValidationTask, error) {
	var tasks []models.ValidationTask
	err := r.db.
		Where("invoice_id = ? AND status = ?", invoiceID, models.TaskStatusOpen).
		Order("created_at asc").
		Find(&tasks).Error
	return tasks, err
}

// CreateTasks persists a batch of validation tasks atomically. A failure on any
// task rolls back the whole batch so a validate call never leaves a partial
// task set behind.
func (r *InvoiceRepository) CreateTasks(tasks []*models.ValidationTask) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, task := range tasks {
			if err := tx.Create(task).Error; err != nil {
				return fmt.Errorf("create validation task: %w", err)
			}
		}
		return nil
	})
}

func (r *InvoiceRepository) SaveTask(task *models.ValidationTask) error {
	return r.db.Save(task).Error
}

func (r *InvoiceRepository) GetTask(id string) (*models.ValidationTask, error) {
	var task models.ValidationTask
	if err := r.db.First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *InvoiceRepository) GetDraft(id string) (*models.DraftInvoice, error) {
	var draft models.DraftInvoice
	if err := r.db.First(&draft, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &draft, nil
}

// ConfirmDraft creates the invoice with its line items and marks the draft
// confirmed in one transaction, so a failed confirm leaves no partial invoice.
func (r *InvoiceRepository) ConfirmDraft(draft *models.DraftInvoice, invoice *models.Invoice, items []models.InvoiceLineItem) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(invoice).Error; err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		for i := range items {
			items[i].InvoiceID = invoice.ID
			items[i].SortOrder = i
			if err := tx.Create(&items[i]).Error; err != nil {
				return fmt.Errorf("create line item %d: %w", i, err)
			}
		}
		draft.Status = models.DraftStatusConfirmed
		draft.ConfirmedInvoiceID = &invoice.ID
		if err := tx.Save(draft).Error; err != nil {
			return fmt.Errorf("save draft: %w", err)
		}
		return nil
	})
}

func (r *InvoiceRepository) ListInvoices(userID string, limit, offset int) ([]models.Invoice, int64, error) {
	var total int64
	if err := r.db.Model(&models.Invoice{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var invoices []models.Invoice
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&invoices).Error
	return invoices, total, err
}

func (r *InvoiceRepository) ListDrafts(userID string, limit, offset int) ([]models.DraftInvoice, int64, error) {
	var total int64
	if err := r.db.Model(&models.DraftInvoice{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var drafts []models.DraftInvoice
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&drafts).Error
	return drafts, total, err
}

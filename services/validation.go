package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/tradegate/models"
	"github.com/yourusername/tradegate/utils"
)

var (
	// ErrMissingCurrency means normalization was requested for an invoice
	// without a source currency.
	ErrMissingCurrency = errors.New("invoice currency missing")
	// ErrRateUnavailable means the rate lookup failed or returned no usable rate.
	ErrRateUnavailable = errors.New("fx rate unavailable")
)

// Incoterms where freight is buyer-borne and not already embedded in the price.
var freightBorneIncoterms = map[string]bool{
	"EXW": true,
	"FOB": true,
}

var insuranceEstimateRate = decimal.RequireFromString("0.005")

const tariffSuggestionLimit = 5

// Overall readiness verdicts.
const (
	StatusReady          = "ready"
	StatusNeedsUserInput = "needs_user_input"
)

// TaskRepository is the durable store of validation tasks and line items the
// engine works against.
type TaskRepository interface {
	ListOpenTasks(invoiceID string) ([]models.ValidationTask, error)
	CreateTasks(tasks []*models.ValidationTask) error
	SaveTask(task *models.ValidationTask) error
	GetTask(id string) (*models.ValidationTask, error)
	ListLineItems(invoiceID string) ([]models.InvoiceLineItem, error)
}

// ValidationResult is the verdict of one validation pass.
type ValidationResult struct {
	InvoiceID           string                  `json:"invoice_id"`
	Status              string                  `json:"status"` // ready, needs_user_input
	Tasks               []models.ValidationTask `json:"tasks"`
	ComputedSuggestions map[string]any          `json:"computed_suggestions"`
}

// ValidationService decides compliance readiness for a confirmed invoice and
// materializes the outstanding tasks. Readiness is never stored; it is
// recomputed from invoice fields, line items and the set of open tasks.
type ValidationService struct {
	repo   TaskRepository
	tariff utils.TariffClientInterface
	fx     utils.FXClientInterface

	mu           sync.Mutex
	invoiceLocks map[string]*sync.Mutex
}

func NewValidationService(repo TaskRepository, tariff utils.TariffClientInterface, fx utils.FXClientInterface) *ValidationService {
	return &ValidationService{
		repo:         repo,
		tariff:       tariff,
		fx:           fx,
		invoiceLocks: map[string]*sync.Mutex{},
	}
}

// lockFor serializes list-open-then-create per invoice, so two concurrent
// validate calls for the same invoice cannot both see zero open tasks and
// create duplicates.
func (s *ValidationService) lockFor(invoiceID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.invoiceLocks[invoiceID]
	if !ok {
		lock = &sync.Mutex{}
		s.invoiceLocks[invoiceID] = lock
	}
	return lock
}

// ValidateInvoice runs the compliance checks for one invoice. If any task for
// the invoice is still open it short-circuits and reports exactly those tasks
// back without creating new ones or re-evaluating invoice fields, which makes
// repeated validation while tasks await resolution a no-op. Otherwise the
// freight, insurance and per-line-item classification checks all run
// independently and every created task is persisted atomically before the
// verdict is returned.
func (s *ValidationService) ValidateInvoice(invoice *models.Invoice) (*ValidationResult, error) {
	lock := s.lockFor(invoice.ID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.repo.ListOpenTasks(invoice.ID)
	if err != nil {
		return nil, fmt.Errorf("list open tasks: %w", err)
	}
	if len(existing) > 0 {
		return &ValidationResult{
			InvoiceID:           invoice.ID,
			Status:              StatusNeedsUserInput,
			Tasks:               existing,
			ComputedSuggestions: map[string]any{},
		}, nil
	}

	computed := map[string]any{}
	var tasks []*models.ValidationTask

	incoterm := strings.ToUpper(invoice.Incoterm)
	if freightBorneIncoterms[incoterm] && invoice.FreightCost == nil {
		tasks = append(tasks, &models.ValidationTask{
			InvoiceID: invoice.ID,
			TaskType:  models.TaskFreightRequired,
			Status:    models.TaskStatusOpen,
			Payload: models.JSONMap{
				"message":        "Shipping costs not included. Please enter estimated Freight & Insurance costs to calculate Duty.",
				"need_freight":   invoice.FreightCost == nil,
				"need_insurance": invoice.InsuranceCost == nil,
			},
		})
	}

	if invoice.InsuranceCost == nil {
		tasks = append(tasks, &models.ValidationTask{
			InvoiceID: invoice.ID,
			TaskType:  models.TaskInsuranceRequired,
			Status:    models.TaskStatusOpen,
			Payload: models.JSONMap{
				"options": []any{
					map[string]any{"type": "manual", "label": "Enter manually"},
					map[string]any{
						"type":    "estimate",
						"label":   "Estimate conservative insurance rate",
						"formula": "insurance = invoice_value * 0.005",
					},
				},
				"default_estimate_rate": 0.005,
			},
		})
		if invoice.TotalValue != nil {
			// Advisory only, never persisted. Emitted as a JSON number.
			computed["insurance_estimate"] = invoice.TotalValue.Mul(insuranceEstimateRate).InexactFloat64()
		}
	}

	items, err := s.repo.ListLineItems(invoice.ID)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	for i := range items {
		item := items[i]
		if item.ExtractedHSCode == "" {
			suggestions, err := s.tariff.Search(item.Description, tariffSuggestionLimit)
			if err != nil {
				// Lookup failure degrades the task's suggestion quality but
				// never aborts validation.
				log.Printf("tariff lookup degraded for line item %s: %v", item.ID, err)
				suggestions = []utils.TariffCandidate{}
			}
			tasks = append(tasks, &models.ValidationTask{
				InvoiceID:  invoice.ID,
				LineItemID: &item.ID,
				TaskType:   models.TaskHSCodeMissing,
				Status:     models.TaskStatusOpen,
				Payload: models.JSONMap{
					"line_item_id":       item.ID,
					"description":        item.Description,
					"search_suggestions": suggestions,
				},
			})
		} else {
			tasks = append(tasks, &models.ValidationTask{
				InvoiceID:  invoice.ID,
				LineItemID: &item.ID,
				TaskType:   models.TaskHSCodeRefinement,
				Status:     models.TaskStatusOpen,
				Payload: models.JSONMap{
					"line_item_id": item.ID,
					"parent_code":  item.ExtractedHSCode,
					"question":     "Select a more specific 10-digit code if available",
				},
			})
		}
	}

	if err := s.repo.CreateTasks(tasks); err != nil {
		return nil, fmt.Errorf("persist validation tasks: %w", err)
	}

	status := StatusReady
	if len(tasks) > 0 {
		status = StatusNeedsUserInput
	}
	created := make([]models.ValidationTask, 0, len(tasks))
	for _, task := range tasks {
		created = append(created, *task)
	}
	return &ValidationResult{
		InvoiceID:           invoice.ID,
		Status:              status,
		Tasks:               created,
		ComputedSuggestions: computed,
	}, nil
}

// ResolveTask stores the caller-supplied resolution verbatim and closes the
// task. Resolving an already-resolved task is a no-op that returns the current
// state, mirroring the idempotent draft-confirm behavior. It does not re-run
// validation; the caller re-validates to discover remaining tasks.
func (s *ValidationService) ResolveTask(task *models.ValidationTask, resolution models.JSONMap) (*models.ValidationTask, error) {
	if task.Status == models.TaskStatusResolved {
		return task, nil
	}

	now := time.Now().UTC()
	task.Resolution = resolution
	task.Status = models.TaskStatusResolved
	task.ResolvedAt = &now
	if err := s.repo.SaveTask(task); err != nil {
		return nil, fmt.Errorf("save resolved task: %w", err)
	}
	return task, nil
}

// NormalizedTotals are the converted money fields; nil inputs stay nil.
type NormalizedTotals struct {
	TotalValue    *decimal.Decimal `json:"total_value"`
	FreightCost   *decimal.Decimal `json:"freight_cost"`
	InsuranceCost *decimal.Decimal `json:"insurance_cost"`
}

type NormalizedCurrency struct {
	NormalizedCurrency string           `json:"normalized_currency"`
	FXRate             decimal.Decimal  `json:"fx_rate"`
	NormalizedTotals   NormalizedTotals `json:"normalized_totals"`
}

// NormalizeCurrency converts the invoice's money fields into the target
// currency. Each field is converted and rounded independently to two decimal
// places, ties rounding away from zero, so rounding error never compounds
// across fields. Pure computation; nothing is persisted.
func (s *ValidationService) NormalizeCurrency(invoice *models.Invoice, targetCurrency string) (*NormalizedCurrency, error) {
	if invoice.Currency == "" {
		return nil, ErrMissingCurrency
	}

	amount := 0.0
	if invoice.TotalValue != nil {
		amount = invoice.TotalValue.InexactFloat64()
	}
	quote, err := s.fx.Quote(invoice.Currency, targetCurrency, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	if quote.Rate.IsZero() {
		return nil, ErrRateUnavailable
	}

	convert := func(value *decimal.Decimal) *decimal.Decimal {
		if value == nil {
			return nil
		}
		converted := value.Mul(quote.Rate).Round(2)
		return &converted
	}

	return &NormalizedCurrency{
		NormalizedCurrency: strings.ToUpper(targetCurrency),
		FXRate:             quote.Rate,
		NormalizedTotals: NormalizedTotals{
			TotalValue:    convert(invoice.TotalValue),
			FreightCost:   convert(invoice.FreightCost),
			InsuranceCost: convert(invoice.InsuranceCost),
		},
	}, nil
}

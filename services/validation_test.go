package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/yourusername/tradegate/models"
	"github.com/yourusername/tradegate/repository"
	"github.com/yourusername/tradegate/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	err = db.AutoMigrate(&models.Invoice{}, &models.InvoiceLineItem{}, &models.ValidationTask{})
	assert.NoError(t, err)
	return db
}

type MockTariffClient struct {
	SearchFunc   func(query string, limit int) ([]utils.TariffCandidate, error)
	ChildrenFunc func(code string) ([]utils.TariffCandidate, error)
}

func (m *MockTariffClient) Search(query string, limit int) ([]utils.TariffCandidate, error) {
	return m.SearchFunc(query, limit)
}

func (m *MockTariffClient) Children(code string) ([]utils.TariffCandidate, error) {
	return m.ChildrenFunc(code)
}

type MockFXClient struct {
	QuoteFunc func(base, quote string, amount float64) (*utils.FXQuote, error)
}

func (m *MockFXClient) Quote(base, quote string, amount float64) (*utils.FXQuote, error) {
	return m.QuoteFunc(base, quote, amount)
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newTestService(t *testing.T) (*ValidationService, *repository.InvoiceRepository, *gorm.DB) {
	db := setupTestDB(t)
	repo := repository.NewInvoiceRepository(db)
	tariff := &MockTariffClient{
		SearchFunc: func(query string, limit int) ([]utils.TariffCandidate, error) {
			return []utils.TariffCandidate{{Code: "6109100010", Description: "T-shirts, knitted", Score: 42.0}}, nil
		},
	}
	fx := &MockFXClient{
		QuoteFunc: func(base, quote string, amount float64) (*utils.FXQuote, error) {
			return &utils.FXQuote{Base: base, Quote: quote, Amount: amount, Rate: decimal.RequireFromString("1.25")}, nil
		},
	}
	return NewValidationService(repo, tariff, fx), repo, db
}

func TestValidateInvoice_InsuranceCheckIndependentOfFreight(t *testing.T) {
	svc, _, db := newTestService(t)

	invoice := models.Invoice{
		UserID:      "user-1",
		Incoterm:    "EXW",
		Currency:    "USD",
		TotalValue:  dec("1000.0"),
		FreightCost: dec("50.0"),
	}
	assert.NoError(t, db.Create(&invoice).Error)

	result, err := svc.ValidateInvoice(&invoice)
	assert.NoError(t, err)

	// Freight is present, so only the insurance check fires.
	assert.Equal(t, StatusNeedsUserInput, result.Status)
	assert.Len(t, result.Tasks, 1)
	assert.Equal(t, models.TaskInsuranceRequired, result.Tasks[0].TaskType)

	estimate, ok := result.ComputedSuggestions["insurance_estimate"].(float64)
	assert.True(t, ok)
	assert.InDelta(t, 5.0, estimate, 0.0001)
}

func TestValidateInvoice_FreightCheckIndependentOfInsurance(t *testing.T) {
	svc, _, db := newTestService(t)

	invoice := models.Invoice{
		UserID:        "user-1",
		Incoterm:      "EXW",
		Currency:      "USD",
		TotalValue:    dec("1000.0"),
		InsuranceCost: dec("5.0"),
	}
	assert.NoError(t, db.Create(&invoice).Error)

	result, err := svc.ValidateInvoice(&invoice)
	assert.NoError(t, err)

	// Insurance is present, so only the freight check fires.
	assert.Len(t, result.Tasks, 1)
	assert.Equal(t, models.TaskFreightRequired, result.Tasks[0].TaskType)
	assert.Equal(t, true, result.Tasks[0].Payload["need_freight"])
	assert.Equal(t, false, result.Tasks[0].Payload["need_insurance"])
	assert.NotContains(t, result.ComputedSuggestions, "insurance_estimate")
}

func TestValidateInvoice_FreightAndInsuranceBothFire(t *testing.T) {
	svc, _, db := newTestService(t)

	invoice := models.Invoice{UserID: "user-1", Incoterm: "fob", Currency: "USD", TotalValue: dec("200")}
	assert.NoError(t, db.Create(&invoice).Error)

	result, err := svc.ValidateInvoice(&invoice)
	assert.NoError(t, err)

	assert.Len(t, result.Tasks, 2)
	assert.Equal(t, models.TaskFreightRequired, result.Tasks[0].TaskType)
	assert.Equal(t, models.TaskInsuranceRequired, result.Tasks[1].TaskType)
	assert.Equal(t, true, result.Tasks[0].Payload["need_freight"])
	assert.Equal(t, true, result.Tasks[0].Payload["need_insurance"])
}

func TestValidateInvoice_TaskPerLineItem(t *testing.T) {
	svc, _, db := setupThreeItemInvoice(t)

	var invoice models.Invoice
	assert.NoError(t, db.First(&invoice).Error)

	result, err := svc.ValidateInvoice(&invoice)
	assert.NoError(t, err)

	missing, refinement := 0, 0
	for _, task := range result.Tasks {
		switch task.TaskType {
		case models.TaskHSCodeMissing:
			missing++
			assert.NotNil(t, task.LineItemID)
		case models.TaskHSCodeRefinement:
			refinement++
			assert.Equal(t, "61091000", task.Payload["parent_code"])
		}
	}
	assert.Equal(t, 2, missing)
	assert.Equal(t, 1, refinement)
	assert.Len(t, result.Tasks, 3)
}

func setupThreeItemInvoice(t *testing.T) (*ValidationService, *repository.InvoiceRepository, *gorm.DB) {
	svc, repo, db := newTestService(t)

	invoice := models.Invoice{UserID: "user-1", Incoterm: "CIF", Currency: "USD", InsuranceCost: dec("10")}
	assert.NoError(t, db.Create(&invoice).Error)
	items := []models.InvoiceLineItem{
		{InvoiceID: invoice.ID, Description: "Cotton t-shirts", Quantity: decimal.NewFromInt(100), SortOrder: 0},
		{InvoiceID: invoice.ID, Description: "Wool sweaters", Quantity: decimal.NewFromInt(50), SortOrder: 1, ExtractedHSCode: "61091000"},
		{InvoiceID: invoice.ID, Description: "Leather belts", Quantity: decimal.NewFromInt(20), SortOrder: 2},
	}
	for i := range items {
		assert.NoError(t, db.Create(&items[i]).Error)
	}
	return svc, repo, db
}

func TestValidateInvoice_IdempotentWhileTasksOpen(t *testing.T) {
	svc, _, db := newTestService(t)

	invoice := models.Invoice{UserID: "user-1", Incoterm: "EXW", Currency: "USD"}
	assert.NoError(t, db.Create(&invoice).Error)

	first, err := svc.ValidateInvoice(&invoice)
	assert.NoError(t, err)
	assert.Equal(t, StatusNeedsUserInput, first.Status)

	second, err := svc.ValidateInvoice(&invoice)
	assert.NoError(t, err)
	assert.Equal(t, StatusNeedsUserInput, second.Status)
	assert.Len(t, second.Tasks, len(first.Tasks))

	firstIDs := make([]string, len(first.Tasks))
	for i, task := range first.Tasks {
		firstIDs[i] = task.ID
	}
	secondIDs := make([]string, len(second.Tasks))
	for i, task := range second.Tasks {
		secondIDs[i] = task.ID
	}
	assert.ElementsMatch(t, firstIDs, secondIDs)

	var count int64
	assert.NoError(t, db.Model(&models.ValidationTask{}).Where("invoice_id = ?", invoice.ID).Count(&count).Error)
	assert.Equal(t, int64(len(first.Tasks)), count)
}

func TestValidateInvoice_LookupFailureDegradesToEmptySuggestions(t *testing.T) {
	svc, _, db := newTestService(t)
	svc.tariff = &MockTariffClient{
		SearchFunc: func(query string, limit int) ([]utils.TariffCandidate, error) {
			return nil, errors.New("tariff service unreachable")
		},
	}

	invoice := models.Invoice{UserID: "user-1", Incoterm: "CIF", Currency: "USD", InsuranceCost: dec("10")}
	assert.NoError(t, db.Create(&invoice).Error)
	item := models.InvoiceLineItem{InvoiceID: invoice.ID, Description: "Unknown widget", Quantity: decimal.NewFromInt(1), SortOrder: 0}
	assert.NoError(t, db.Create(&item).Error)

	result, err := svc.ValidateInvoice(&invoice)
	assert.NoError(t, err)
	assert.Len(t, result.Tasks, 1)
	assert.Equal(t, models.TaskHSCodeMissing, result.Tasks[0].TaskType)
	assert.Empty(t, result.Tasks[0].Payload["search_suggestions"])
}

type failingTaskRepo struct {
	*repository.InvoiceRepository
}

func (f *failingTaskRepo) CreateTasks(tasks []*models.ValidationTask) error {
	return errors.New("write refused")
}

func TestValidateInvoice_PersistenceFailureAborts(t *testing.T) {
	svc, repo, db := newTestService(t)
	svc.repo = &failingTaskRepo{InvoiceRepository: repo}

	invoice := models.Invoice{UserID: "user-1", Incoterm: "EXW", Currency: "USD"}
	assert.NoError(t, db.Create(&invoice).Error)

	result, err := svc.ValidateInvoice(&invoice)
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestValidateInvoice_ReadyWhenNothingMissing(t *testing.T) {
	svc, _, db := newTestService(t)

	invoice := models.Invoice{
		UserID:        "user-1",
		Incoterm:      "CIF",
		Currency:      "USD",
		TotalValue:    dec("500"),
		FreightCost:   dec("25"),
		InsuranceCost: dec("5"),
	}
	assert.NoError(t, db.Create(&invoice).Error)

	result, err := svc.ValidateInvoice(&invoice)
	assert.NoError(t, err)
	assert.Equal(t, StatusReady, result.Status)
	assert.Empty(t, result.Tasks)
	assert.Empty(t, result.ComputedSuggestions)
}

func TestResolveTask_TransitionsOnceAndIsIdempotent(t *testing.T) {
	svc, repo, db := newTestService(t)

	task := models.ValidationTask{
		InvoiceID: "inv-1",
		TaskType:  models.TaskInsuranceRequired,
		Status:    models.TaskStatusOpen,
	}
	assert.NoError(t, db.Create(&task).Error)

	resolution := models.JSONMap{"type": "manual", "insurance_cost": 12.5}
	resolved, err := svc.ResolveTask(&task, resolution)
	assert.NoError(t, err)
	assert.Equal(t, models.TaskStatusResolved, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)
	firstResolvedAt := *resolved.ResolvedAt

	// Re-resolving is a no-op that reports the current state.
	again, err := svc.ResolveTask(resolved, models.JSONMap{"type": "estimate"})
	assert.NoError(t, err)
	assert.Equal(t, models.TaskStatusResolved, again.Status)
	assert.Equal(t, firstResolvedAt, *again.ResolvedAt)
	assert.Equal(t, "manual", again.Resolution["type"])

	stored, err := repo.GetTask(task.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.TaskStatusResolved, stored.Status)
}

func TestValidateInvoice_FullResolutionConvergence(t *testing.T) {
	svc, repo, db := newTestService(t)

	invoice := models.Invoice{UserID: "user-1", Incoterm: "EXW", Currency: "USD", TotalValue: dec("1000")}
	assert.NoError(t, db.Create(&invoice).Error)

	first, err := svc.ValidateInvoice(&invoice)
	assert.NoError(t, err)
	assert.Equal(t, StatusNeedsUserInput, first.Status)
	assert.Len(t, first.Tasks, 2)

	open, err := repo.ListOpenTasks(invoice.ID)
	assert.NoError(t, err)
	for i := range open {
		_, err := svc.ResolveTask(&open[i], models.JSONMap{"type": "manual"})
		assert.NoError(t, err)
	}

	// The conditions behind the tasks are now satisfied.
	invoice.FreightCost = dec("40")
	invoice.InsuranceCost = dec("5")
	assert.NoError(t, db.Save(&invoice).Error)

	second, err := svc.ValidateInvoice(&invoice)
	assert.NoError(t, err)
	assert.Equal(t, StatusReady, second.Status)
	assert.Empty(t, second.Tasks)
}

func TestNormalizeCurrency_RoundsPerFieldHalfUp(t *testing.T) {
	svc, _, _ := newTestService(t)

	invoice := models.Invoice{
		Currency:      "USD",
		TotalValue:    dec("99.995"),
		InsuranceCost: dec("10.555"),
	}

	result, err := svc.NormalizeCurrency(&invoice, "gbp")
	assert.NoError(t, err)
	assert.Equal(t, "GBP", result.NormalizedCurrency)
	assert.True(t, result.FXRate.Equal(decimal.RequireFromString("1.25")))

	// 99.995 * 1.25 = 124.99375 -> 124.99 in exact decimal arithmetic.
	assert.True(t, result.NormalizedTotals.TotalValue.Equal(decimal.RequireFromString("124.99")),
		"got %s", result.NormalizedTotals.TotalValue)
	// 10.555 * 1.25 = 13.19375 -> 13.19, rounded independently of the total.
	assert.True(t, result.NormalizedTotals.InsuranceCost.Equal(decimal.RequireFromString("13.19")))
	// Absent input stays absent.
	assert.Nil(t, result.NormalizedTotals.FreightCost)
}

func TestNormalizeCurrency_MissingCurrency(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.NormalizeCurrency(&models.Invoice{}, "GBP")
	assert.ErrorIs(t, err, ErrMissingCurrency)
}

func TestNormalizeCurrency_RateUnavailable(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.fx = &MockFXClient{
		QuoteFunc: func(base, quote string, amount float64) (*utils.FXQuote, error) {
			return nil, errors.New("provider down")
		},
	}

	_, err := svc.NormalizeCurrency(&models.Invoice{Currency: "USD"}, "GBP")
	assert.ErrorIs(t, err, ErrRateUnavailable)

	svc.fx = &MockFXClient{
		QuoteFunc: func(base, quote string, amount float64) (*utils.FXQuote, error) {
			return &utils.FXQuote{Rate: decimal.Zero}, nil
		},
	}
	_, err = svc.NormalizeCurrency(&models.Invoice{Currency: "USD"}, "GBP")
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yourusername/tradegate/models"
	"github.com/yourusername/tradegate/repository"
	"github.com/yourusername/tradegate/services"
)

type InvoiceHandler struct {
	repo *repository.InvoiceRepository
	svc  *services.ValidationService
}

func NewInvoiceHandler(repo *repository.InvoiceRepository, svc *services.ValidationService) *InvoiceHandler {
	return &InvoiceHandler{repo: repo, svc: svc}
}

func currentUserID(c *gin.Context) (string, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return "", false
	}
	userID, ok := value.(string)
	return userID, ok && userID != ""
}

// ConfirmDraft turns a reviewed draft into a stored invoice. The reconciliation
// rules gate persistence and all rule violations are reported together; a
// draft already confirmed returns its invoice id again without creating a
// second invoice.
func (h *InvoiceHandler) ConfirmDraft(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	draft, err := h.repo.GetDraft(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load draft"})
		return
	}
	if draft == nil || draft.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Draft not found"})
		return
	}

	if draft.Status == models.DraftStatusConfirmed && draft.ConfirmedInvoiceID != nil {
		c.JSON(http.StatusOK, gin.H{"invoice_id": *draft.ConfirmedInvoiceID})
		return
	}

	var payload services.ConfirmPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ruleErrors := []string{}
	ruleErrors = append(ruleErrors, services.ValidateRequiredFields(payload)...)
	ruleErrors = append(ruleErrors, services.ValidateQuantities(payload)...)
	if ok, msg := services.ReconcileTotals(payload); !ok {
		ruleErrors = append(ruleErrors, msg)
	}
	if len(ruleErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": ruleErrors})
		return
	}

	invoice := models.Invoice{
		UserID:         userID,
		SupplierName:   payload.SupplierName,
		InvoiceNumber:  payload.InvoiceNumber,
		InvoiceDate:    payload.InvoiceDate,
		DueDate:        payload.DueDate,
		Incoterm:       payload.Incoterm,
		Currency:       payload.Currency,
		TotalValue:     payload.TotalValue,
		FreightCost:    payload.FreightCost,
		InsuranceCost:  payload.InsuranceCost,
		SourceUploadID: draft.UploadID,
	}
	items := make([]models.InvoiceLineItem, len(payload.LineItems))
	for i, line := range payload.LineItems {
		quantity := decimal.Zero
		if line.Quantity != nil {
			quantity = *line.Quantity
		}
		items[i] = models.InvoiceLineItem{
			Description:     line.Description,
			SKU:             line.SKU,
			Quantity:        quantity,
			UnitPrice:       line.UnitPrice,
			LineTotal:       line.LineTotal,
			ExtractedHSCode: line.ExtractedHSCode,
			SortOrder:       i,
		}
	}

	draft.ConfirmedPayload = payloadToJSONMap(payload)
	if err := h.repo.ConfirmDraft(draft, &invoice, items); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm draft"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice_id": invoice.ID})
}

func payloadToJSONMap(payload services.ConfirmPayload) models.JSONMap {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	var m models.JSONMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

// ValidateInvoice runs the validation engine for one invoice and returns the
// readiness verdict with any outstanding tasks.
func (h *InvoiceHandler) ValidateInvoice(c *gin.Context) {
	invoice := h.ownedInvoice(c)
	if invoice == nil {
		return
	}

	result, err := h.svc.ValidateInvoice(invoice)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Validation failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

type NormalizeCurrencyRequest struct {
	TargetCurrency string `json:"target_currency" binding:"required"`
}

// NormalizeCurrency converts the invoice's money fields into a target currency
// without persisting the result.
func (h *InvoiceHandler) NormalizeCurrency(c *gin.Context) {
	invoice := h.ownedInvoice(c)
	if invoice == nil {
		return
	}

	var req NormalizeCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	normalized, err := h.svc.NormalizeCurrency(invoice, req.TargetCurrency)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingCurrency):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invoice has no source currency"})
		case errors.Is(err, services.ErrRateUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "FX rate unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Currency normalization failed"})
		}
		return
	}
	c.JSON(http.StatusOK, normalized)
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice := h.ownedInvoice(c)
	if invoice == nil {
		return
	}

	items, err := h.repo.ListLineItems(invoice.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load line items"})
		return
	}
	invoice.Items = items
	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, offset := pagination(c)
	invoices, total, err := h.repo.ListInvoices(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invoices"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": invoices, "total": total, "limit": limit, "offset": offset})
}

func (h *InvoiceHandler) ListDrafts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, offset := pagination(c)
	drafts, total, err := h.repo.ListDrafts(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch drafts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": drafts, "total": total, "limit": limit, "offset": offset})
}

// ownedInvoice loads the invoice from the path id and enforces ownership,
// writing the error response itself when the invoice is unavailable.
func (h *InvoiceHandler) ownedInvoice(c *gin.Context) *models.Invoice {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil
	}

	invoice, err := h.repo.GetInvoice(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load invoice"})
		return nil
	}
	if invoice == nil || invoice.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return nil
	}
	return invoice
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 20
	offset = 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= 100 {
			limit = n
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
